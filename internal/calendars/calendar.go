package calendars

// Calendar is a shareable feed token for a single class schedule.
type Calendar struct {
	ID      string `json:"id"`
	ClassID int    `json:"class_id"`
}
