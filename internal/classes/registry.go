package classes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gymcomplete/internal/clock"
	"github.com/gymcomplete/internal/dates"
	"github.com/gymcomplete/internal/events"
	"github.com/gymcomplete/internal/waitlist"
)

var (
	ErrClassNotFound        = errors.New("class not found")
	ErrClassHasID           = errors.New("class already has an id")
	ErrInvalidClassID       = errors.New("invalid class id")
	ErrMemberNotEnrolled    = errors.New("member not enrolled in class")
	ErrAlreadyEnrolled      = errors.New("member already enrolled in class")
	ErrInactiveSubscription = errors.New("only active members can enroll in classes")
	ErrAlreadyWaitlisted    = errors.New("member already in waitlist")
	ErrNotInWaitlist        = errors.New("member not found in waitlist")
	ErrWaitlistEmpty        = errors.New("no members in waitlist")

	// ErrClassFull doubles as the "full, waitlisted" signal: EnrollMember on
	// a full class queues the member before returning it.
	ErrClassFull = errors.New("class is full")
)

// MemberDirectory is the subscription oracle plus the per-member class
// history the enrollment machine writes to.
type MemberDirectory interface {
	IsSubscriptionActive(ctx context.Context, memberID int) bool
	IsVIPMember(ctx context.Context, memberID int) bool
	AddClassToHistory(ctx context.Context, memberID, classID int) error
	RemoveClassFromHistory(ctx context.Context, memberID, classID int) error
}

// Registry owns the class collection and every enrollment, waitlist, and
// session transition on it. All mutations flow through one mutex; persistence
// is load-all/save-all, gated by a dirty flag.
type Registry struct {
	logger  *slog.Logger
	store   *Store
	members MemberDirectory
	clock   clock.Clock
	bus     *events.Bus

	mu          sync.Mutex
	classesByID map[int]*Class
	dirty       bool
}

func NewRegistry(
	logger *slog.Logger,
	store *Store,
	members MemberDirectory,
	clock clock.Clock,
	bus *events.Bus,
) *Registry {
	return &Registry{
		logger:      logger,
		store:       store,
		members:     members,
		clock:       clock,
		bus:         bus,
		classesByID: map[int]*Class{},
	}
}

// Load reads the persisted collection into memory. Unreadable data degrades
// to an empty collection; the condition is logged rather than fatal so the
// application stays available.
func (r *Registry) Load(ctx context.Context) error {
	classes, err := r.store.LoadAll(ctx)
	if err != nil {
		r.logger.Warn("classes data unreadable, starting with an empty collection", "error", err)
		classes = nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classesByID = make(map[int]*Class, len(classes))
	for _, class := range classes {
		r.classesByID[class.ID] = class
	}
	r.dirty = false
	return nil
}

// Save persists the whole collection and clears the dirty flag. The snapshot
// is encoded under the lock so concurrent mutators cannot race the write.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	encoded := make([]storedClass, 0, len(r.classesByID))
	for _, class := range r.classesByID {
		encoded = append(encoded, encodeClass(class))
	}
	r.mu.Unlock()

	if err := r.store.SaveAll(ctx, encoded); err != nil {
		return fmt.Errorf("save classes: %w", err)
	}
	r.mu.Lock()
	r.dirty = false
	r.mu.Unlock()
	return nil
}

// Flush saves once if anything changed since the last save. Called at
// shutdown; a failed save is logged and otherwise ignored.
func (r *Registry) Flush(ctx context.Context) {
	r.mu.Lock()
	dirty := r.dirty
	r.mu.Unlock()
	if !dirty {
		return
	}
	if err := r.Save(ctx); err != nil {
		r.logger.Error("flush classes", "error", err)
	}
}

// View is a read snapshot of a class, safe to hold after the registry moves
// on. EnrolledMembers and Waitlist are live-only state: they are part of the
// view but not of the persisted format.
type View struct {
	ID              int              `json:"id"`
	ClassName       string           `json:"className"`
	CoachName       string           `json:"coachName"`
	From            dates.Date       `json:"from"`
	To              dates.Date       `json:"to"`
	Capacity        int              `json:"capacity"`
	NumOfEnrolled   int              `json:"numOfEnrolled"`
	Sessions        []dates.Date     `json:"sessions"`
	EnrolledMembers []int            `json:"enrolledMembers"`
	Waitlist        []waitlist.Entry `json:"waitlist"`
}

func snapshot(class *Class) View {
	return View{
		ID:              class.ID,
		ClassName:       class.Name,
		CoachName:       class.CoachName,
		From:            class.FromDate,
		To:              class.ToDate,
		Capacity:        class.Capacity,
		NumOfEnrolled:   class.EnrolledCount(),
		Sessions:        class.Sessions(),
		EnrolledMembers: class.EnrolledMembers(),
		Waitlist:        class.Waitlist.Entries(),
	}
}

// AddClass registers a new class and assigns its id. The caller must leave
// the id zero.
func (r *Registry) AddClass(ctx context.Context, class *Class) (int, error) {
	if class.ID != 0 {
		return 0, fmt.Errorf("%w: %d", ErrClassHasID, class.ID)
	}
	r.mu.Lock()
	id := r.nextIDLocked()
	class.ID = id
	r.classesByID[id] = class
	r.dirty = true
	name := class.Name
	r.mu.Unlock()

	r.bus.Publish(ctx, events.Event{Type: events.TypeClassCreated, ClassID: id, ClassName: name})
	return id, nil
}

func (r *Registry) UpdateClass(ctx context.Context, class *Class) error {
	if class.ID == 0 {
		return ErrInvalidClassID
	}
	r.mu.Lock()
	if _, ok := r.classesByID[class.ID]; !ok {
		r.mu.Unlock()
		return ErrClassNotFound
	}
	r.classesByID[class.ID] = class
	r.dirty = true
	r.mu.Unlock()

	r.bus.Publish(ctx, events.Event{Type: events.TypeClassUpdated, ClassID: class.ID, ClassName: class.Name})
	return nil
}

func (r *Registry) DeleteClass(ctx context.Context, classID int) error {
	r.mu.Lock()
	class, ok := r.classesByID[classID]
	if !ok {
		r.mu.Unlock()
		return ErrClassNotFound
	}
	delete(r.classesByID, classID)
	r.dirty = true
	name := class.Name
	r.mu.Unlock()

	r.bus.Publish(ctx, events.Event{Type: events.TypeClassDeleted, ClassID: classID, ClassName: name})
	return nil
}

func (r *Registry) GetClass(_ context.Context, classID int) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classesByID[classID]
	if !ok {
		return View{}, ErrClassNotFound
	}
	return snapshot(class), nil
}

func (r *Registry) ListClasses(_ context.Context) []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collectLocked(func(*Class) bool { return true })
}

func (r *Registry) ClassesByCoach(_ context.Context, coachName string) []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collectLocked(func(class *Class) bool {
		return class.CoachName == coachName
	})
}

func (r *Registry) ClassesByDate(_ context.Context, date dates.Date) []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collectLocked(func(class *Class) bool {
		return class.HasSessionOnDate(date)
	})
}

// HasClass reports whether a class id is registered. The attendance ledger
// checks it before accepting records.
func (r *Registry) HasClass(_ context.Context, classID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.classesByID[classID]
	return ok
}

// ClassNames maps every registered class id to its display name.
func (r *Registry) ClassNames(_ context.Context) map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]string, len(r.classesByID))
	for id, class := range r.classesByID {
		out[id] = class.Name
	}
	return out
}

// EnrollMember runs the enrollment state machine:
//
//  1. unknown class fails with ErrClassNotFound
//  2. an inactive subscription fails with ErrInactiveSubscription
//  3. a member already enrolled in the class fails with ErrAlreadyEnrolled
//  4. a full class queues the member on the waitlist and fails with
//     ErrClassFull; the enrollment itself does not happen in this call
//  5. otherwise the member is enrolled and the class recorded in their
//     history
func (r *Registry) EnrollMember(ctx context.Context, classID, memberID int) error {
	r.mu.Lock()
	class, ok := r.classesByID[classID]
	if !ok {
		r.mu.Unlock()
		return ErrClassNotFound
	}

	if !r.members.IsSubscriptionActive(ctx, memberID) {
		r.mu.Unlock()
		return ErrInactiveSubscription
	}

	if class.IsMemberEnrolled(memberID) {
		r.mu.Unlock()
		return ErrAlreadyEnrolled
	}

	if class.IsFull() {
		vip := r.members.IsVIPMember(ctx, memberID)
		class.Waitlist.AddWithTime(memberID, vip, r.clock.Now())
		r.dirty = true
		name := class.Name
		r.mu.Unlock()

		r.bus.Publish(ctx, events.Event{Type: events.TypeMemberWaitlisted, ClassID: classID, ClassName: name, MemberID: memberID})
		return fmt.Errorf("%w: member %d added to waitlist", ErrClassFull, memberID)
	}

	class.AddMember(memberID)
	class.SetEnrolledCount(class.EnrolledCount() + 1)
	r.dirty = true
	name := class.Name
	r.mu.Unlock()

	if err := r.members.AddClassToHistory(ctx, memberID, classID); err != nil {
		r.logger.Warn("record class history", "member_id", memberID, "class_id", classID, "error", err)
	}
	r.bus.Publish(ctx, events.Event{Type: events.TypeMemberEnrolled, ClassID: classID, ClassName: name, MemberID: memberID})
	return nil
}

// UnenrollMember removes an enrolled member. Promotion from the waitlist is
// not automatic; call PromoteNextWaitlistMember to fill the freed slot.
func (r *Registry) UnenrollMember(ctx context.Context, classID, memberID int) error {
	r.mu.Lock()
	class, ok := r.classesByID[classID]
	if !ok {
		r.mu.Unlock()
		return ErrClassNotFound
	}
	if !class.CancelEnrollment(memberID) {
		r.mu.Unlock()
		return ErrMemberNotEnrolled
	}
	r.dirty = true
	name := class.Name
	r.mu.Unlock()

	if err := r.members.RemoveClassFromHistory(ctx, memberID, classID); err != nil {
		r.logger.Warn("clear class history", "member_id", memberID, "class_id", classID, "error", err)
	}
	r.bus.Publish(ctx, events.Event{Type: events.TypeMemberUnenrolled, ClassID: classID, ClassName: name, MemberID: memberID})
	return nil
}

// PromoteNextWaitlistMember pops the highest-priority live waitlist entry and
// runs it through the enrollment state machine.
func (r *Registry) PromoteNextWaitlistMember(ctx context.Context, classID int) (int, error) {
	r.mu.Lock()
	class, ok := r.classesByID[classID]
	if !ok {
		r.mu.Unlock()
		return 0, ErrClassNotFound
	}
	if class.IsFull() {
		r.mu.Unlock()
		return 0, fmt.Errorf("cannot promote: %w", ErrClassFull)
	}
	memberID, ok := class.Waitlist.Pop()
	if !ok {
		r.mu.Unlock()
		return 0, ErrWaitlistEmpty
	}
	r.dirty = true
	r.mu.Unlock()

	if err := r.EnrollMember(ctx, classID, memberID); err != nil {
		return 0, fmt.Errorf("enroll promoted member %d: %w", memberID, err)
	}
	r.bus.Publish(ctx, events.Event{Type: events.TypeMemberPromoted, ClassID: classID, MemberID: memberID})
	return memberID, nil
}

func (r *Registry) IsClassFull(_ context.Context, classID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if class, ok := r.classesByID[classID]; ok {
		return class.IsFull()
	}
	return false
}

func (r *Registry) EnrolledCount(_ context.Context, classID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if class, ok := r.classesByID[classID]; ok {
		return class.EnrolledCount()
	}
	return 0
}

// AddToWaitlist queues a member directly, without the enrollment machine.
func (r *Registry) AddToWaitlist(ctx context.Context, classID, memberID int, vip bool) error {
	r.mu.Lock()
	class, ok := r.classesByID[classID]
	if !ok {
		r.mu.Unlock()
		return ErrClassNotFound
	}
	if class.Waitlist.Contains(memberID) {
		r.mu.Unlock()
		return ErrAlreadyWaitlisted
	}
	class.Waitlist.AddWithTime(memberID, vip, r.clock.Now())
	r.dirty = true
	name := class.Name
	r.mu.Unlock()

	r.bus.Publish(ctx, events.Event{Type: events.TypeMemberWaitlisted, ClassID: classID, ClassName: name, MemberID: memberID})
	return nil
}

func (r *Registry) RemoveFromWaitlist(_ context.Context, classID, memberID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classesByID[classID]
	if !ok {
		return ErrClassNotFound
	}
	if !class.Waitlist.Remove(memberID) {
		return ErrNotInWaitlist
	}
	r.dirty = true
	return nil
}

// NextWaitlistMember peeks the highest-priority live entry. ok is false when
// the waitlist is empty.
func (r *Registry) NextWaitlistMember(_ context.Context, classID int) (memberID int, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, found := r.classesByID[classID]
	if !found {
		return 0, false, ErrClassNotFound
	}
	memberID, ok = class.Waitlist.Next()
	return memberID, ok, nil
}

func (r *Registry) GetWaitlist(_ context.Context, classID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classesByID[classID]
	if !ok {
		return nil, ErrClassNotFound
	}
	return class.Waitlist.Members(), nil
}

func (r *Registry) WaitlistSize(_ context.Context, classID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if class, ok := r.classesByID[classID]; ok {
		return class.Waitlist.Len()
	}
	return 0
}

func (r *Registry) AddSession(ctx context.Context, classID int, date dates.Date) error {
	r.mu.Lock()
	class, ok := r.classesByID[classID]
	if !ok {
		r.mu.Unlock()
		return ErrClassNotFound
	}
	class.AddSession(date)
	r.dirty = true
	name := class.Name
	r.mu.Unlock()

	r.bus.Publish(ctx, events.Event{Type: events.TypeClassUpdated, ClassID: classID, ClassName: name})
	return nil
}

func (r *Registry) RemoveSession(ctx context.Context, classID int, date dates.Date) error {
	r.mu.Lock()
	class, ok := r.classesByID[classID]
	if !ok {
		r.mu.Unlock()
		return ErrClassNotFound
	}
	class.RemoveSession(date)
	r.dirty = true
	name := class.Name
	r.mu.Unlock()

	r.bus.Publish(ctx, events.Event{Type: events.TypeClassUpdated, ClassID: classID, ClassName: name})
	return nil
}

func (r *Registry) ClassSessions(_ context.Context, classID int) ([]dates.Date, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classesByID[classID]
	if !ok {
		return nil, ErrClassNotFound
	}
	return class.Sessions(), nil
}

func (r *Registry) nextIDLocked() int {
	maxID := 0
	for id := range r.classesByID {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

func (r *Registry) collectLocked(match func(*Class) bool) []View {
	var out []View
	for _, class := range r.classesByID {
		if match(class) {
			out = append(out, snapshot(class))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
