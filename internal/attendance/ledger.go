package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gymcomplete/internal/dates"
	"github.com/gymcomplete/internal/events"
)

var ErrClassNotFound = errors.New("class not found")

// ClassDirectory answers whether a class id exists; the ledger refuses
// records for unknown classes.
type ClassDirectory interface {
	HasClass(ctx context.Context, classID int) bool
}

// Ledger is the append-only attendance record store plus its queries. The
// full record list lives in memory and every append is written through.
type Ledger struct {
	logger  *slog.Logger
	store   *Store
	classes ClassDirectory
	bus     *events.Bus

	mu      sync.Mutex
	records []Record
}

func NewLedger(
	logger *slog.Logger,
	store *Store,
	classes ClassDirectory,
	bus *events.Bus,
) *Ledger {
	return &Ledger{
		logger:  logger,
		store:   store,
		classes: classes,
		bus:     bus,
	}
}

// Load reads the persisted ledger. Unreadable data degrades to an empty
// ledger and is logged.
func (l *Ledger) Load(ctx context.Context) error {
	records, err := l.store.ListRecords(ctx)
	if err != nil {
		l.logger.Warn("attendance data unreadable, starting with an empty ledger", "error", err)
		records = nil
	}
	l.mu.Lock()
	l.records = records
	l.mu.Unlock()
	return nil
}

// RecordAttendance appends one immutable record and writes it through.
func (l *Ledger) RecordAttendance(ctx context.Context, record Record) error {
	if !l.classes.HasClass(ctx, record.ClassID) {
		return ErrClassNotFound
	}
	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()

	if err := l.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("persist attendance record: %w", err)
	}
	l.bus.Publish(ctx, events.Event{
		Type:     events.TypeAttendanceRecorded,
		ClassID:  record.ClassID,
		MemberID: record.MemberID,
	})
	return nil
}

// Records returns the class's records between startDate and endDate,
// bounds inclusive.
func (l *Ledger) Records(_ context.Context, classID int, startDate, endDate dates.Date) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, record := range l.records {
		if record.ClassID != classID {
			continue
		}
		if record.Date.Before(startDate) || record.Date.After(endDate) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// AttendanceCount counts attended records for the class on an exact date.
func (l *Ledger) AttendanceCount(_ context.Context, classID int, date dates.Date) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, record := range l.records {
		if record.ClassID == classID && record.Date.Equal(date) && record.Attended {
			count++
		}
	}
	return count
}

// ClassRevenue sums amountPaid over the range. Unattended-but-paid records
// count: revenue tracks money taken, not bodies in the room.
func (l *Ledger) ClassRevenue(_ context.Context, classID int, startDate, endDate dates.Date) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	revenue := 0.0
	for _, record := range l.records {
		if record.ClassID != classID {
			continue
		}
		if record.Date.Before(startDate) || record.Date.After(endDate) {
			continue
		}
		revenue += record.AmountPaid
	}
	return revenue
}
