package extraction

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// ChequeFields contains the validated six-field payload extracted from one
// cheque page. Every field is always present; unknown values are empty
// strings.
type ChequeFields struct {
	PayeeName     string
	ChequeDate    string
	ChequeNumber  string
	AccountNumber string
	BankName      string
	Amount        string
	Status        string
}

var nonDigits = regexp.MustCompile(`\D`)

// requiredKeys is the fixed business field set every record must carry
var requiredKeys = []string{
	"payee_name",
	"cheque_date",
	"cheque_number",
	"account_number",
	"bank_name",
	"amount",
}

// ParseCheque turns the model's raw text response into validated cheque
// fields. Markdown fences are stripped, missing keys default to empty
// strings, and unknown extra keys are ignored. It performs no I/O and is
// deterministic for a given input.
func ParseCheque(raw string) (*ChequeFields, error) {
	text := strings.TrimSpace(raw)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	// Decode into a loose map so numeric values the model returns for
	// amount or account_number can still be accepted as strings
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	values := make(map[string]string, len(requiredKeys))
	for _, key := range requiredKeys {
		values[key] = stringValue(payload[key])
	}

	// Account numbers carry punctuation and MICR symbols; keep digits only
	values["account_number"] = nonDigits.ReplaceAllString(values["account_number"], "")

	// Canonical date format is YYYY-MM-DD. A bad date clears the field but
	// never rejects the record.
	if date := values["cheque_date"]; date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			slog.Warn("Invalid cheque_date in model response", "cheque_date", date)
			values["cheque_date"] = ""
		}
	}

	status := stringValue(payload["status"])
	if status == "" {
		status = "Processed"
	}

	return &ChequeFields{
		PayeeName:     values["payee_name"],
		ChequeDate:    values["cheque_date"],
		ChequeNumber:  values["cheque_number"],
		AccountNumber: values["account_number"],
		BankName:      values["bank_name"],
		Amount:        values["amount"],
		Status:        status,
	}, nil
}

// stringValue coerces a decoded JSON value to a trimmed string. Numbers keep
// their literal form; anything else (null, objects, arrays) becomes empty.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
