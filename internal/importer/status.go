package importer

import (
	"time"

	"yield/pkg/models"
)

// DeriveStatus infers an invoice's lifecycle status when the source does not
// supply a trustworthy one:
//
//	balance exactly 0        → paid
//	issue date after now     → draft (future-dated, not yet issued)
//	otherwise                → sent
//
// The ordering matters: a fully paid invoice is paid even when future-dated.
// An empty or unparsable issue date falls through to sent.
func DeriveStatus(balance float64, issueDate string, now time.Time) string {
	if balance == 0 {
		return models.StatusPaid
	}
	if t, ok := parseDate(issueDate); ok && t.After(now) {
		return models.StatusDraft
	}
	return models.StatusSent
}

// MapHarvestState maps a Harvest API invoice state to an internal status.
// The API state is authoritative, so it bypasses DeriveStatus entirely.
func MapHarvestState(state string) string {
	switch state {
	case "paid":
		return models.StatusPaid
	case "draft":
		return models.StatusDraft
	case "closed":
		return models.StatusWrittenOff
	default:
		return models.StatusSent
	}
}
