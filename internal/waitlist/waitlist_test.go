package waitlist

import (
	"testing"
	"time"
)

func TestVIPBeforeNonVIP(t *testing.T) {
	w := New()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	w.AddWithTime(1, false, t0)
	w.AddWithTime(2, true, t0.Add(time.Hour))

	if next, ok := w.Next(); !ok || next != 2 {
		t.Fatalf("next = %d, %t, want 2", next, ok)
	}
	if got, ok := w.Pop(); !ok || got != 2 {
		t.Fatalf("pop = %d, %t, want 2", got, ok)
	}
	if got, ok := w.Pop(); !ok || got != 1 {
		t.Fatalf("pop = %d, %t, want 1", got, ok)
	}
}

func TestJoinTimeBreaksTies(t *testing.T) {
	w := New()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	w.AddWithTime(1, false, t0)
	w.AddWithTime(2, false, t0.Add(time.Minute))
	w.AddWithTime(3, true, t0.Add(2*time.Minute))
	w.AddWithTime(4, true, t0.Add(3*time.Minute))

	want := []int{3, 4, 1, 2}
	for i, id := range want {
		got, ok := w.Pop()
		if !ok || got != id {
			t.Fatalf("pop %d = %d, %t, want %d", i, got, ok, id)
		}
	}
	if _, ok := w.Pop(); ok {
		t.Fatal("pop on empty waitlist returned an entry")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	w := New()
	w.Add(1, false)
	w.Add(1, true)
	w.Add(1, false)

	if w.Len() != 1 {
		t.Fatalf("len = %d, want 1", w.Len())
	}
	if got := w.Members(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("members = %v, want [1]", got)
	}
}

func TestLazyRemoval(t *testing.T) {
	w := New()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	w.AddWithTime(1, true, t0)
	w.AddWithTime(2, false, t0.Add(time.Minute))

	if !w.Remove(1) {
		t.Fatal("remove existing member = false")
	}
	if w.Remove(1) {
		t.Fatal("remove twice = true")
	}
	if w.Contains(1) {
		t.Fatal("removed member still reported as queued")
	}
	// the dead entry still sits in the queue, but must never be observable
	if next, ok := w.Next(); !ok || next != 2 {
		t.Fatalf("next = %d, %t, want 2", next, ok)
	}
	if got, ok := w.Pop(); !ok || got != 2 {
		t.Fatalf("pop = %d, %t, want 2", got, ok)
	}
	if _, ok := w.Pop(); ok {
		t.Fatal("pop returned a removed member")
	}
}

func TestEntriesKeepPriorityOrder(t *testing.T) {
	w := New()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	w.AddWithTime(1, false, t0)
	w.AddWithTime(2, true, t0.Add(time.Minute))
	w.Remove(1)

	entries := w.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %v, want a single entry", entries)
	}
	if entries[0].MemberID != 2 || !entries[0].VIP {
		t.Fatalf("entries[0] = %+v, want member 2, VIP", entries[0])
	}
}

func TestClear(t *testing.T) {
	w := New()
	w.Add(1, false)
	w.Add(2, true)
	w.Clear()

	if !w.Empty() {
		t.Fatal("waitlist not empty after clear")
	}
	if _, ok := w.Next(); ok {
		t.Fatal("next returned an entry after clear")
	}
}
