package classes

import (
	"testing"
	"time"

	"github.com/gymcomplete/internal/dates"
)

func TestIsFull(t *testing.T) {
	class := New("Yoga", "Sara", dates.New(2024, time.January, 1), dates.New(2024, time.June, 30), 2)

	if class.IsFull() {
		t.Fatal("empty class reported full")
	}
	class.AddMember(1)
	class.SetEnrolledCount(1)
	class.AddMember(2)
	class.SetEnrolledCount(2)
	if !class.IsFull() {
		t.Fatal("class at capacity not reported full")
	}
}

func TestEnrolledCountClampsUpOnly(t *testing.T) {
	class := New("Yoga", "Sara", dates.Date{}, dates.Date{}, 10)
	class.AddMember(1)
	class.AddMember(2)

	// setting below the member-set size snaps to the set size
	class.SetEnrolledCount(0)
	if got := class.EnrolledCount(); got != 2 {
		t.Fatalf("enrolled count = %d, want 2", got)
	}

	// setting above the set size sticks: the counter may exceed the set
	class.SetEnrolledCount(5)
	if got := class.EnrolledCount(); got != 5 {
		t.Fatalf("enrolled count = %d, want 5", got)
	}
}

func TestRemoveSessionDropsAllOccurrences(t *testing.T) {
	class := New("Spin", "Adam", dates.Date{}, dates.Date{}, 10)
	jan1 := dates.New(2024, time.January, 1)
	jan8 := dates.New(2024, time.January, 8)

	class.AddSession(jan1)
	class.AddSession(jan8)
	class.AddSession(jan1)
	class.RemoveSession(jan1)

	sessions := class.Sessions()
	if len(sessions) != 1 || !sessions[0].Equal(jan8) {
		t.Fatalf("sessions = %v, want [%s]", sessions, jan8)
	}
	if class.HasSessionOnDate(jan1) {
		t.Fatal("removed session date still reported")
	}
	if !class.HasSessionOnDate(jan8) {
		t.Fatal("remaining session date not reported")
	}
}

func TestSessionsKeepInsertionOrderAndDuplicates(t *testing.T) {
	class := New("Spin", "Adam", dates.Date{}, dates.Date{}, 10)
	jan1 := dates.New(2024, time.January, 1)
	jan8 := dates.New(2024, time.January, 8)

	class.AddSession(jan8)
	class.AddSession(jan1)
	class.AddSession(jan8)

	sessions := class.Sessions()
	if len(sessions) != 3 {
		t.Fatalf("sessions = %v, want 3 entries", sessions)
	}
	if !sessions[0].Equal(jan8) || !sessions[1].Equal(jan1) || !sessions[2].Equal(jan8) {
		t.Fatalf("sessions out of order: %v", sessions)
	}
}

func TestCancelEnrollment(t *testing.T) {
	class := New("Yoga", "Sara", dates.Date{}, dates.Date{}, 5)
	class.AddMember(1)
	class.AddMember(2)
	class.SetEnrolledCount(2)
	class.Waitlist.Add(3, false)

	if !class.CancelEnrollment(1) {
		t.Fatal("cancel of enrolled member = false")
	}
	if class.CancelEnrollment(1) {
		t.Fatal("cancel twice = true")
	}
	if got := class.EnrolledCount(); got != 1 {
		t.Fatalf("enrolled count = %d, want 1", got)
	}
	// no automatic promotion: the waitlisted member stays waitlisted
	if class.IsMemberEnrolled(3) {
		t.Fatal("waitlisted member auto-enrolled on cancellation")
	}
	if !class.Waitlist.Contains(3) {
		t.Fatal("waitlisted member lost on cancellation")
	}
}
