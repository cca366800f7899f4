package members

import (
	"context"
	"testing"
	"time"

	"github.com/gymcomplete/internal/clock"
	"github.com/gymcomplete/internal/dates"
)

func newTestService(t *testing.T, now time.Time) (*Service, *clock.Simulated) {
	t.Helper()
	store := newTestStore(t)
	c := clock.NewSimulated(now)
	c.Pause()
	return NewService(store, c), c
}

func TestIsSubscriptionActive(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	service, c := newTestService(t, now)

	ctx := context.Background()
	if err := service.CreateMember(ctx, &Member{
		ID: 1,
		Subscription: Subscription{
			Start: dates.New(2024, time.June, 1),
			End:   dates.New(2024, time.June, 30),
		},
	}); err != nil {
		t.Fatal(err)
	}

	if !service.IsSubscriptionActive(ctx, 1) {
		t.Fatal("subscription inside its range reported inactive")
	}
	if service.IsSubscriptionActive(ctx, 2) {
		t.Fatal("unknown member reported active")
	}

	// the simulated clock drives expiry
	c.AdvanceDays(30)
	if service.IsSubscriptionActive(ctx, 1) {
		t.Fatal("expired subscription reported active")
	}
}

func TestIsVIPMember(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, now)

	ctx := context.Background()
	if err := service.CreateMember(ctx, &Member{
		ID:           1,
		Subscription: Subscription{VIP: true},
	}); err != nil {
		t.Fatal(err)
	}

	if !service.IsVIPMember(ctx, 1) {
		t.Fatal("vip member reported non-vip")
	}
	if service.IsVIPMember(ctx, 2) {
		t.Fatal("unknown member reported vip")
	}
}

func TestClassHistory(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, now)

	ctx := context.Background()
	if err := service.CreateMember(ctx, &Member{ID: 1}); err != nil {
		t.Fatal(err)
	}

	for _, classID := range []int{10, 20, 10} {
		if err := service.AddClassToHistory(ctx, 1, classID); err != nil {
			t.Fatal(err)
		}
	}

	history, err := service.ClassHistory(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 || history[0] != 10 || history[1] != 20 || history[2] != 10 {
		t.Fatalf("history = %v", history)
	}

	if err := service.RemoveClassFromHistory(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}
	history, err = service.ClassHistory(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0] != 20 {
		t.Fatalf("history after removal = %v", history)
	}
}

func TestMembersNeedingRenewal(t *testing.T) {
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, now)

	ctx := context.Background()
	soon := &Member{ID: 1, Subscription: Subscription{End: dates.New(2024, time.June, 20)}}
	later := &Member{ID: 2, Subscription: Subscription{End: dates.New(2024, time.December, 31)}}
	lapsed := &Member{ID: 3, Subscription: Subscription{End: dates.New(2024, time.May, 1)}}
	for _, m := range []*Member{soon, later, lapsed} {
		if err := service.CreateMember(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	due, err := service.MembersNeedingRenewal(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != 1 {
		t.Fatalf("due = %v, want member 1 only", due)
	}
}
