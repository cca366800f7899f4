package reports

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gymcomplete/internal/attendance"
	"github.com/gymcomplete/internal/dates"
)

type fakeLedger []attendance.Record

func (l fakeLedger) Records(_ context.Context, classID int, startDate, endDate dates.Date) []attendance.Record {
	var out []attendance.Record
	for _, record := range l {
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

type fakeDirectory map[int]string

func (d fakeDirectory) ClassNames(_ context.Context) map[int]string {
	return d
}

func newTestService(t *testing.T, ledger fakeLedger, directory fakeDirectory) *Service {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(NewStore(db), ledger, directory)
}

func TestGenerateMonthlyReport(t *testing.T) {
	april := dates.New(2024, time.April, 1)
	ledger := fakeLedger{
		{ClassID: 1, MemberID: 9, Date: dates.New(2024, time.April, 3), Attended: true, AmountPaid: 20},
		{ClassID: 1, MemberID: 10, Date: dates.New(2024, time.April, 10), Attended: true, AmountPaid: 20},
		// paid but absent: revenue queries see it, the report does not
		{ClassID: 1, MemberID: 11, Date: dates.New(2024, time.April, 17), Attended: false, AmountPaid: 20},
		{ClassID: 2, MemberID: 9, Date: dates.New(2024, time.April, 5), Attended: true, AmountPaid: 35},
		// outside the month
		{ClassID: 1, MemberID: 9, Date: dates.New(2024, time.May, 1), Attended: true, AmountPaid: 20},
	}
	directory := fakeDirectory{1: "Yoga", 2: "Spin", 3: "Pilates"}
	service := newTestService(t, ledger, directory)

	report := service.GenerateMonthlyReport(context.Background(), april)

	if report.TotalClassesHeld != 2 {
		t.Fatalf("classes held = %d, want 2", report.TotalClassesHeld)
	}
	if report.TotalAttendance != 3 {
		t.Fatalf("attendance = %d, want 3", report.TotalAttendance)
	}
	if report.TotalRevenue != 75 {
		t.Fatalf("revenue = %f, want 75", report.TotalRevenue)
	}
	// member 9 attended two classes, counted once
	if report.TotalActiveMembers != 2 {
		t.Fatalf("active members = %d, want 2", report.TotalActiveMembers)
	}

	if len(report.ClassAttendance) != 2 {
		t.Fatalf("class attendance = %v", report.ClassAttendance)
	}
	// sorted by class name
	if report.ClassAttendance[0].ClassName != "Spin" || report.ClassAttendance[0].Count != 1 {
		t.Fatalf("class attendance[0] = %+v", report.ClassAttendance[0])
	}
	if report.ClassAttendance[1].ClassName != "Yoga" || report.ClassAttendance[1].Count != 2 {
		t.Fatalf("class attendance[1] = %+v", report.ClassAttendance[1])
	}
	if len(report.ClassRevenue) != 2 || report.ClassRevenue[1].Amount != 40 {
		t.Fatalf("class revenue = %v", report.ClassRevenue)
	}
}

func TestSaveAppendsWithoutDeduplication(t *testing.T) {
	service := newTestService(t, nil, fakeDirectory{})
	april := dates.New(2024, time.April, 1)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := service.SaveMonthlyReport(ctx, &Report{Month: april}); err != nil {
			t.Fatal(err)
		}
	}

	saved, err := service.GetMonthlyReports(ctx, april, april)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved reports = %d, want 2 (history is append-only)", len(saved))
	}
}

func TestGetMonthlyReportsFiltersAndSorts(t *testing.T) {
	service := newTestService(t, nil, fakeDirectory{})

	ctx := context.Background()
	months := []dates.Date{
		dates.New(2024, time.March, 1),
		dates.New(2024, time.January, 1),
		dates.New(2024, time.June, 1),
	}
	for _, month := range months {
		if err := service.SaveMonthlyReport(ctx, &Report{Month: month}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := service.GetMonthlyReports(ctx, dates.New(2024, time.January, 1), dates.New(2024, time.April, 30))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("reports = %d, want 2", len(got))
	}
	if !got[0].Month.Equal(dates.New(2024, time.January, 1)) || !got[1].Month.Equal(dates.New(2024, time.March, 1)) {
		t.Fatalf("reports out of order: %s, %s", got[0].Month, got[1].Month)
	}
}
