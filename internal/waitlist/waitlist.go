package waitlist

import (
	"container/heap"
	"time"
)

// Entry is a single waitlisted member. VIP entries rank before non-VIP
// entries, earlier join times rank first within the same VIP status.
type Entry struct {
	MemberID int       `json:"memberId"`
	VIP      bool      `json:"isVIP"`
	JoinTime time.Time `json:"joinTime"`
}

type rankedEntry struct {
	Entry
	seq uint64
}

type entryHeap []rankedEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].VIP != h[j].VIP {
		return h[i].VIP
	}
	if !h[i].JoinTime.Equal(h[j].JoinTime) {
		return h[i].JoinTime.Before(h[j].JoinTime)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(rankedEntry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Waitlist is a priority-ordered overflow queue for a single class.
//
// Removal is lazy: Remove only deletes the member from the membership index,
// the queued entry stays behind until the next Pop rebuilds the queue. Every
// read filters entries against the index, so a removed member is never
// returned even while its entry still occupies a slot.
type Waitlist struct {
	entries entryHeap
	members map[int]bool
	seq     uint64
}

func New() *Waitlist {
	return &Waitlist{
		members: map[int]bool{},
	}
}

// Add queues a member with the current wall-clock join time. Adding a member
// that is already queued is a no-op.
func (w *Waitlist) Add(memberID int, vip bool) {
	w.AddWithTime(memberID, vip, time.Now())
}

// AddWithTime queues a member with an explicit join time. Adding a member
// that is already queued is a no-op.
func (w *Waitlist) AddWithTime(memberID int, vip bool, joinTime time.Time) {
	if w.members[memberID] {
		return
	}
	w.seq++
	heap.Push(&w.entries, rankedEntry{
		Entry: Entry{
			MemberID: memberID,
			VIP:      vip,
			JoinTime: joinTime,
		},
		seq: w.seq,
	})
	w.members[memberID] = true
}

// Remove deletes a member from the membership index and reports whether the
// member was queued. The queued entry is left in place for the next Pop to
// discard.
func (w *Waitlist) Remove(memberID int) bool {
	if !w.members[memberID] {
		return false
	}
	delete(w.members, memberID)
	return true
}

// Next returns the highest-priority live member without dequeueing it.
func (w *Waitlist) Next() (int, bool) {
	for _, e := range w.ordered() {
		return e.MemberID, true
	}
	return 0, false
}

// Pop dequeues and returns the highest-priority live member. Entries whose
// membership has been revoked are discarded for good on the way.
func (w *Waitlist) Pop() (int, bool) {
	for w.entries.Len() > 0 {
		e := heap.Pop(&w.entries).(rankedEntry)
		if !w.members[e.MemberID] {
			continue
		}
		delete(w.members, e.MemberID)
		return e.MemberID, true
	}
	return 0, false
}

func (w *Waitlist) Contains(memberID int) bool {
	return w.members[memberID]
}

// Members returns live member ids in priority order.
func (w *Waitlist) Members() []int {
	entries := w.ordered()
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.MemberID
	}
	return out
}

// Entries returns live entries in priority order.
func (w *Waitlist) Entries() []Entry {
	return w.ordered()
}

func (w *Waitlist) Len() int {
	return len(w.members)
}

func (w *Waitlist) Empty() bool {
	return len(w.members) == 0
}

func (w *Waitlist) Clear() {
	w.entries = nil
	w.members = map[int]bool{}
}

func (w *Waitlist) ordered() []Entry {
	tmp := make(entryHeap, len(w.entries))
	copy(tmp, w.entries)
	var out []Entry
	for tmp.Len() > 0 {
		e := heap.Pop(&tmp).(rankedEntry)
		if w.members[e.MemberID] {
			out = append(out, e.Entry)
		}
	}
	return out
}
