package cheque

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const chequeBucketName = "cheques"

// ErrStoreUnavailable indicates the durable store rejected an operation or
// could not be reached. A caller must not assume a record was persisted when
// an insert returns this error.
var ErrStoreUnavailable = errors.New("cheque store unavailable")

// DB defines the interface for cheque persistence. Inserts are append-only;
// this service never updates or deletes committed rows.
type DB interface {
	// InsertCheque commits one record as one row
	InsertCheque(record *ChequeRecord) error

	// ListCheques returns all committed records in insertion order
	ListCheques() ([]*ChequeRecord, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening boltdb: %v", ErrStoreUnavailable, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(chequeBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating bucket: %v", ErrStoreUnavailable, err)
	}

	return &BoltDB{db: db}, nil
}

// InsertCheque commits one record as one row. Keys come from the bucket
// sequence so iteration order matches insertion order. The record is
// marshaled once and written in a single transaction; there is no partial
// field write.
func (b *BoltDB) InsertCheque(record *ChequeRecord) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(chequeBucketName))
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating sequence: %w", err)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling cheque record: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ListCheques returns all committed records in insertion order. An empty
// store yields an empty slice, not an error.
func (b *BoltDB) ListCheques() ([]*ChequeRecord, error) {
	records := make([]*ChequeRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(chequeBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var record ChequeRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling cheque record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
