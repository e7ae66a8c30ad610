package cheque

import "time"

// Cheque status values as stored in the database
const (
	StatusProcessed = "Processed"
	StatusFailed    = "Failed"
)

// ChequeRecord represents the structured details extracted from one cheque image.
// All six business fields are always present; unknown values are empty strings.
type ChequeRecord struct {
	PayeeName     string    `json:"payee_name"`
	ChequeDate    string    `json:"cheque_date"` // YYYY-MM-DD or empty
	ChequeNumber  string    `json:"cheque_number"`
	AccountNumber string    `json:"account_number"` // digits only
	BankName      string    `json:"bank_name"`
	Amount        string    `json:"amount"` // numeric string
	Status        string    `json:"status"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// PageStatus is the terminal state of one page of a submission
type PageStatus string

const (
	PageDone   PageStatus = "done"
	PageFailed PageStatus = "failed"
)

// FailureKind classifies why a page or submission failed
type FailureKind string

const (
	FailureUnsupportedFormat     FailureKind = "UnsupportedFormat"
	FailureExtractionUnavailable FailureKind = "ExtractionUnavailable"
	FailureMalformedResponse     FailureKind = "MalformedResponse"
	FailureStoreUnavailable      FailureKind = "StoreUnavailable"
)

// PageOutcome is the result of processing a single page of a submission.
// Record is set when extraction and validation succeeded, even if the
// persistence step failed afterwards.
type PageOutcome struct {
	Page    int           `json:"page"` // 1-based, document order
	Status  PageStatus    `json:"status"`
	Reason  FailureKind   `json:"reason,omitempty"`
	Message string        `json:"message,omitempty"`
	Record  *ChequeRecord `json:"record,omitempty"`
}

// SubmissionResult aggregates the per-page outcomes of one upload
type SubmissionResult struct {
	Duplicate bool          `json:"duplicate"`
	Pages     []PageOutcome `json:"pages"`
}

// AllSucceeded reports whether every page of the submission was persisted.
// A duplicate or empty submission is not considered a success.
func (r *SubmissionResult) AllSucceeded() bool {
	if r.Duplicate || len(r.Pages) == 0 {
		return false
	}
	for _, p := range r.Pages {
		if p.Status != PageDone {
			return false
		}
	}
	return true
}

// Stats holds the headline dashboard numbers
type Stats struct {
	Total  int `json:"total"`
	Today  int `json:"today"`
	Failed int `json:"failed"`
}
