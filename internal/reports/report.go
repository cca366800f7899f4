package reports

import (
	"github.com/gymcomplete/internal/dates"
)

// Report is a derived, read-only aggregate over one calendar month of the
// attendance ledger.
type Report struct {
	Month              dates.Date        `json:"month"`
	TotalActiveMembers int               `json:"totalActiveMembers"`
	TotalClassesHeld   int               `json:"totalClassesHeld"`
	TotalAttendance    int               `json:"totalAttendance"`
	TotalRevenue       float64           `json:"totalRevenue"`
	ClassAttendance    []ClassAttendance `json:"classAttendance"`
	ClassRevenue       []ClassRevenue    `json:"classRevenue"`
}

type ClassAttendance struct {
	ClassName string `json:"className"`
	Count     int    `json:"count"`
}

type ClassRevenue struct {
	ClassName string  `json:"className"`
	Amount    float64 `json:"amount"`
}
