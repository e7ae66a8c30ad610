package cheque

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/checkmate-io/checkmate/internal/extraction"
	"github.com/checkmate-io/checkmate/internal/pages"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service orchestrates the intake pipeline: dedupe check, page
// normalization, per-page extraction, validation, and persistence.
type Service struct {
	db         DB
	normalizer pages.Normalizer
	extractor  extraction.Extractor
	timeSource TimeSource
}

// NewService creates a new Service with the default time source
func NewService(db DB, normalizer pages.Normalizer, extractor extraction.Extractor) *Service {
	return &Service{
		db:         db,
		normalizer: normalizer,
		extractor:  extractor,
		timeSource: &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, normalizer pages.Normalizer, extractor extraction.Extractor, timeSrc TimeSource) *Service {
	return &Service{
		db:         db,
		normalizer: normalizer,
		extractor:  extractor,
		timeSource: timeSrc,
	}
}

// ProcessSubmission runs one upload through the whole pipeline and returns
// the ordered per-page outcomes.
//
// The fingerprint check happens before any other work, and the fingerprint
// is marked as soon as the submission is accepted, so resubmitting the same
// bytes within one session is always a duplicate even if some pages fail.
// The returned error is non-nil only for submission-level failures
// (unrecognized or undecodable uploads); page-level failures never abort
// sibling pages and are reported inside the result instead.
func (s *Service) ProcessSubmission(ctx context.Context, sess *Session, data []byte, mediaType string) (*SubmissionResult, error) {
	fingerprint := Fingerprint(data)
	if sess.Seen(fingerprint) {
		slog.Info("Skipping duplicate submission", "fingerprint", fingerprint)
		return &SubmissionResult{Duplicate: true, Pages: []PageOutcome{}}, nil
	}
	sess.Mark(fingerprint)

	pageImages, err := s.normalizer.Normalize(data, mediaType)
	if err != nil {
		return nil, fmt.Errorf("normalizing submission: %w", err)
	}

	outcomes := make([]PageOutcome, 0, len(pageImages))
	for i, pageImage := range pageImages {
		pageNum := i + 1

		// Cancellation is advisory: already committed pages stay committed,
		// remaining pages are simply not attempted
		if ctx.Err() != nil {
			slog.Warn("Submission cancelled", "pages_done", len(outcomes), "pages_total", len(pageImages))
			break
		}

		raw, err := s.extractor.Extract(ctx, pageImage)
		if err != nil {
			slog.Error("Extraction failed", "page", pageNum, "error", err)
			outcomes = append(outcomes, failedOutcome(pageNum, FailureExtractionUnavailable, err))
			continue
		}

		fields, err := extraction.ParseCheque(raw)
		if err != nil {
			slog.Error("Model response could not be parsed", "page", pageNum, "error", err)
			outcomes = append(outcomes, failedOutcome(pageNum, FailureMalformedResponse, err))
			continue
		}

		record := s.buildRecord(fields)
		if err := s.db.InsertCheque(record); err != nil {
			slog.Error("Persisting cheque failed", "page", pageNum, "error", err)
			outcome := failedOutcome(pageNum, FailureStoreUnavailable, err)
			// The extracted data is still surfaced even though it was not saved
			outcome.Record = record
			outcomes = append(outcomes, outcome)
			continue
		}

		outcomes = append(outcomes, PageOutcome{
			Page:   pageNum,
			Status: PageDone,
			Record: record,
		})
	}

	return &SubmissionResult{Pages: outcomes}, nil
}

// ListCheques returns all committed records in insertion order
func (s *Service) ListCheques() ([]*ChequeRecord, error) {
	records, err := s.db.ListCheques()
	if err != nil {
		return nil, fmt.Errorf("listing cheques: %w", err)
	}
	return records, nil
}

// GetStats computes the dashboard headline numbers from the committed rows
func (s *Service) GetStats() (*Stats, error) {
	records, err := s.db.ListCheques()
	if err != nil {
		return nil, fmt.Errorf("listing cheques: %w", err)
	}

	today := s.timeSource.Now().Format("2006-01-02")
	stats := &Stats{Total: len(records)}
	for _, r := range records {
		if r.UploadedAt.Format("2006-01-02") == today {
			stats.Today++
		}
		if r.Status == StatusFailed {
			stats.Failed++
		}
	}
	return stats, nil
}

// buildRecord turns validated fields into a persistable record with the
// server-assigned upload timestamp
func (s *Service) buildRecord(fields *extraction.ChequeFields) *ChequeRecord {
	return &ChequeRecord{
		PayeeName:     fields.PayeeName,
		ChequeDate:    fields.ChequeDate,
		ChequeNumber:  fields.ChequeNumber,
		AccountNumber: fields.AccountNumber,
		BankName:      fields.BankName,
		Amount:        fields.Amount,
		Status:        fields.Status,
		UploadedAt:    s.timeSource.Now(),
	}
}

func failedOutcome(page int, reason FailureKind, err error) PageOutcome {
	return PageOutcome{
		Page:    page,
		Status:  PageFailed,
		Reason:  reason,
		Message: err.Error(),
	}
}
