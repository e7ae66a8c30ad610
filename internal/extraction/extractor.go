package extraction

import "context"

// chequeExtractionPrompt is the shared instruction sent with every page.
// All providers use the same prompt so responses share one JSON shape.
const chequeExtractionPrompt = `Extract details from the scanned cheque and return the response in JSON format:
{
    "payee_name": "Full name of the payee",
    "cheque_date": "yyyy-mm-dd (e.g., '2025-02-20')",
    "cheque_number": "Cheque number as it appears",
    "account_number": "Numeric only, ignore any characters",
    "bank_name": "Full name of the bank",
    "amount": "Numeric form only (e.g., '20000')"
}
Ensure correct JSON formatting, return empty strings for missing fields, and strictly use 'YYYY-MM-DD' for cheque_date.`

// Extractor defines the interface for vision-model extraction. One call sends
// exactly one page image; callers fan out over pages themselves so a failed
// page cannot corrupt its siblings. Implementations return the model's raw
// text response without interpreting it.
type Extractor interface {
	// Extract sends one canonical JPEG page to the model and returns its raw text response
	Extract(ctx context.Context, pageJPEG []byte) (string, error)

	// Close closes the extractor and releases resources
	Close() error
}
