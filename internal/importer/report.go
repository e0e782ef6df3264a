package importer

import "encoding/json"

// maxErrors bounds the error list: a badly broken import should not grow the
// report without limit. Oldest errors win; later ones are dropped.
const maxErrors = 50

// maxNoClientErrors bounds how many unresolved-client skips get an explicit
// error entry. The counter still tracks all of them.
const maxNoClientErrors = 5

// Report aggregates the outcome of one import run. It is process-local and
// never persisted; the caller decides whether non-zero failures constitute
// an overall failure.
type Report struct {
	ClientsCreated int `json:"clients_created"`
	ClientsSkipped int `json:"clients_skipped"` // already existed

	InvoicesCreated int `json:"invoices_created"`
	InvoicesFailed  int `json:"invoices_failed"`

	// Skip sub-reasons; InvoicesSkipped() is their sum.
	SkippedMissingFields int `json:"skipped_missing_fields"`
	SkippedNoClient      int `json:"skipped_no_client"`
	SkippedDuplicate     int `json:"skipped_duplicate"`

	Errors []string `json:"errors"`
}

// InvoicesSkipped is the total of all skip sub-reasons.
func (r *Report) InvoicesSkipped() int {
	return r.SkippedMissingFields + r.SkippedNoClient + r.SkippedDuplicate
}

func (r *Report) addError(msg string) {
	if len(r.Errors) < maxErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// MarshalJSON includes the derived invoices_skipped total alongside the
// individual counters.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		*alias
		InvoicesSkipped int `json:"invoices_skipped"`
	}{(*alias)(r), r.InvoicesSkipped()})
}
