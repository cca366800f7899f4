package attendance

import (
	"github.com/gymcomplete/internal/dates"
)

// Record is one attendance entry. Records are immutable once written: the
// ledger supports append and query only, never update or delete.
type Record struct {
	ClassID    int        `json:"classId"`
	MemberID   int        `json:"memberId"`
	Date       dates.Date `json:"date"`
	Attended   bool       `json:"attended"`
	AmountPaid float64    `json:"amountPaid"`
}
