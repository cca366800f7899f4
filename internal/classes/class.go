package classes

import (
	"slices"

	"github.com/gymcomplete/internal/dates"
	"github.com/gymcomplete/internal/waitlist"
)

// Class is a scheduled group activity with bounded capacity. It tracks the
// enrolled-member set, an ordered queue of session dates, and the overflow
// waitlist. Capacity is not enforced here: AddMember is a pure set mutation,
// the enroll/unenroll state machine in Registry owns the capacity check.
type Class struct {
	ID        int
	Name      string
	CoachName string
	FromDate  dates.Date
	ToDate    dates.Date
	Capacity  int
	Waitlist  *waitlist.Waitlist

	enrolledCount int
	sessions      []dates.Date
	members       map[int]bool
}

func New(name, coachName string, from, to dates.Date, capacity int) *Class {
	return &Class{
		Name:      name,
		CoachName: coachName,
		FromDate:  from,
		ToDate:    to,
		Capacity:  capacity,
		Waitlist:  waitlist.New(),
		members:   map[int]bool{},
	}
}

func (c *Class) IsFull() bool {
	return c.enrolledCount >= c.Capacity
}

func (c *Class) EnrolledCount() int {
	return c.enrolledCount
}

// SetEnrolledCount sets the enrollment counter. The counter is clamped up to
// the member-set size, never down: a caller can inflate it past the true set
// size but cannot shrink it below. Historical data depends on this asymmetry.
func (c *Class) SetEnrolledCount(count int) {
	if count < len(c.members) {
		c.enrolledCount = len(c.members)
		return
	}
	c.enrolledCount = count
}

func (c *Class) AddMember(memberID int) {
	c.members[memberID] = true
}

func (c *Class) RemoveMember(memberID int) {
	delete(c.members, memberID)
}

func (c *Class) IsMemberEnrolled(memberID int) bool {
	return c.members[memberID]
}

// EnrolledMembers returns the enrolled member ids in ascending order.
func (c *Class) EnrolledMembers() []int {
	out := make([]int, 0, len(c.members))
	for id := range c.members {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// CancelEnrollment removes a member and resyncs the enrollment counter to the
// member-set size. It reports whether the member was enrolled. Freed slots are
// not refilled here; promotion from the waitlist is an explicit registry call.
func (c *Class) CancelEnrollment(memberID int) bool {
	if !c.members[memberID] {
		return false
	}
	delete(c.members, memberID)
	c.enrolledCount = len(c.members)
	return true
}

// AddSession appends a session date. Duplicates are allowed.
func (c *Class) AddSession(date dates.Date) {
	c.sessions = append(c.sessions, date)
}

// RemoveSession drops every session equal to date, not just the first.
func (c *Class) RemoveSession(date dates.Date) {
	c.sessions = slices.DeleteFunc(c.sessions, func(d dates.Date) bool {
		return d.Equal(date)
	})
}

func (c *Class) Sessions() []dates.Date {
	return slices.Clone(c.sessions)
}

func (c *Class) HasSessionOnDate(date dates.Date) bool {
	for _, d := range c.sessions {
		if d.Equal(date) {
			return true
		}
	}
	return false
}
