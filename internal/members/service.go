package members

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gymcomplete/internal/clock"
)

var ErrAlreadyExists = errors.New("already exists")

// Service answers subscription questions for the enrollment engine and keeps
// each member's class history. Subscription checks read the injected clock, so
// the simulated application time decides who counts as active.
type Service struct {
	store *Store
	clock clock.Clock
}

func NewService(
	store *Store,
	clock clock.Clock,
) *Service {
	return &Service{
		store: store,
		clock: clock,
	}
}

// IsSubscriptionActive reports whether the member currently holds an active
// subscription. Unknown members are reported inactive.
func (s *Service) IsSubscriptionActive(ctx context.Context, memberID int) bool {
	member, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return false
	}
	return member.Subscription.ActiveAt(s.clock.Now())
}

// IsVIPMember reports whether the member holds a VIP subscription. Unknown
// members are reported non-VIP.
func (s *Service) IsVIPMember(ctx context.Context, memberID int) bool {
	member, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return false
	}
	return member.Subscription.VIP
}

func (s *Service) CreateMember(ctx context.Context, member *Member) error {
	if _, err := s.store.FindByID(ctx, member.ID); err == nil {
		return fmt.Errorf("member %d: %w", member.ID, ErrAlreadyExists)
	}
	return s.store.Insert(ctx, member)
}

func (s *Service) UpdateMember(ctx context.Context, member *Member) error {
	if _, err := s.store.FindByID(ctx, member.ID); err != nil {
		return fmt.Errorf("member %d: %w", member.ID, err)
	}
	return s.store.Insert(ctx, member)
}

func (s *Service) GetMember(ctx context.Context, memberID int) (*Member, error) {
	return s.store.FindByID(ctx, memberID)
}

func (s *Service) ListMembers(ctx context.Context) ([]*Member, error) {
	return s.store.ListMembers(ctx)
}

func (s *Service) DeleteMember(ctx context.Context, memberID int) error {
	if _, err := s.store.FindByID(ctx, memberID); err != nil {
		return fmt.Errorf("member %d: %w", memberID, err)
	}
	return s.store.DeleteMember(ctx, memberID)
}

// AddClassToHistory records a successful enrollment in the member's history.
func (s *Service) AddClassToHistory(ctx context.Context, memberID, classID int) error {
	member, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("member %d: %w", memberID, err)
	}
	member.ClassHistory = append(member.ClassHistory, classID)
	return s.store.Insert(ctx, member)
}

// RemoveClassFromHistory drops every occurrence of the class from the
// member's history.
func (s *Service) RemoveClassFromHistory(ctx context.Context, memberID, classID int) error {
	member, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("member %d: %w", memberID, err)
	}
	member.ClassHistory = slices.DeleteFunc(member.ClassHistory, func(id int) bool {
		return id == classID
	})
	return s.store.Insert(ctx, member)
}

func (s *Service) ClassHistory(ctx context.Context, memberID int) ([]int, error) {
	member, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %d: %w", memberID, err)
	}
	return member.ClassHistory, nil
}

// MembersNeedingRenewal returns members whose subscription ends within
// daysThreshold days of the current application time.
func (s *Service) MembersNeedingRenewal(ctx context.Context, daysThreshold int) ([]*Member, error) {
	all, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	today := s.clock.Now()
	var out []*Member
	for _, member := range all {
		end := member.Subscription.End.Time()
		daysLeft := int(end.Sub(today).Hours() / 24)
		if daysLeft >= 0 && daysLeft <= daysThreshold {
			out = append(out, member)
		}
	}
	return out, nil
}
