package calendars

import (
	"context"
	"fmt"
	"io"

	ics "github.com/arran4/golang-ical"
	"github.com/gymcomplete/internal/classes"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type ClassDirectory interface {
	GetClass(ctx context.Context, classID int) (classes.View, error)
}

type Service struct {
	store   *Store
	classes ClassDirectory
}

func NewService(store *Store, classes ClassDirectory) *Service {
	return &Service{
		store:   store,
		classes: classes,
	}
}

// CreateCalendar mints a feed token for a class. The id is unguessable, so
// the feed url can be handed out without further authentication.
func (s *Service) CreateCalendar(ctx context.Context, classID int) (*Calendar, error) {
	if _, err := s.classes.GetClass(ctx, classID); err != nil {
		return nil, fmt.Errorf("get class %d: %w", classID, err)
	}
	cal := &Calendar{
		ID:      gonanoid.Must(),
		ClassID: classID,
	}
	if err := s.store.InsertCalendar(ctx, cal); err != nil {
		return nil, fmt.Errorf("insert calendar: %w", err)
	}
	return cal, nil
}

func (s *Service) WriteICal(ctx context.Context, w io.Writer, id string) error {
	cal, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find by id %q: %w", id, err)
	}
	class, err := s.classes.GetClass(ctx, cal.ClassID)
	if err != nil {
		return fmt.Errorf("get class %d: %w", cal.ClassID, err)
	}
	icalendar := ics.NewCalendar()
	icalendar.SetName(class.ClassName)
	for i, session := range class.Sessions {
		ievent := icalendar.AddEvent(fmt.Sprintf("%d-%d-%s", class.ID, i, session))
		ievent.SetSummary(class.ClassName)
		if class.CoachName != "" {
			ievent.SetDescription(fmt.Sprintf("Coach: %s", class.CoachName))
		}
		ievent.SetAllDayStartAt(session.Time())
		ievent.SetAllDayEndAt(session.AddDays(1).Time())
	}
	return icalendar.SerializeTo(w)
}
