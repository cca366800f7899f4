package events

import (
	"context"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Type uint

const (
	TypeUnknown Type = iota
	TypeClassCreated
	TypeClassUpdated
	TypeClassDeleted
	TypeMemberEnrolled
	TypeMemberUnenrolled
	TypeMemberWaitlisted
	TypeMemberPromoted
	TypeAttendanceRecorded
)

func (t Type) String() string {
	switch t {
	case TypeClassCreated:
		return "class_created"
	case TypeClassUpdated:
		return "class_updated"
	case TypeClassDeleted:
		return "class_deleted"
	case TypeMemberEnrolled:
		return "member_enrolled"
	case TypeMemberUnenrolled:
		return "member_unenrolled"
	case TypeMemberWaitlisted:
		return "member_waitlisted"
	case TypeMemberPromoted:
		return "member_promoted"
	case TypeAttendanceRecorded:
		return "attendance_recorded"
	default:
		return "unknown"
	}
}

// Event describes a registry state change.
type Event struct {
	Type      Type
	ClassID   int
	ClassName string
	MemberID  int
}

// Bus fans registry changes out to subscribers. Dispatch is synchronous: the
// registry runs single-writer, and subscribers are expected to return quickly
// or hand off themselves.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]func(context.Context, Event)
}

func NewBus() *Bus {
	return &Bus{
		subscribers: map[string]func(context.Context, Event){},
	}
}

// Subscribe registers a callback and returns an id for Unsubscribe.
func (b *Bus) Subscribe(fn func(context.Context, Event)) string {
	id := gonanoid.Must()
	b.mu.Lock()
	b.subscribers[id] = fn
	b.mu.Unlock()
	return id
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	subscribers := make([]func(context.Context, Event), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subscribers = append(subscribers, fn)
	}
	b.mu.RUnlock()
	for _, fn := range subscribers {
		fn(ctx, event)
	}
}
