package reports

import (
	"context"
	"fmt"
	"sort"

	"github.com/gymcomplete/internal/attendance"
	"github.com/gymcomplete/internal/dates"
)

// Ledger is the slice of the attendance ledger the aggregation reads.
type Ledger interface {
	Records(ctx context.Context, classID int, startDate, endDate dates.Date) []attendance.Record
}

// ClassDirectory maps registered class ids to display names.
type ClassDirectory interface {
	ClassNames(ctx context.Context) map[int]string
}

type Service struct {
	store   *Store
	ledger  Ledger
	classes ClassDirectory
}

func NewService(
	store *Store,
	ledger Ledger,
	classes ClassDirectory,
) *Service {
	return &Service{
		store:   store,
		ledger:  ledger,
		classes: classes,
	}
}

// GenerateMonthlyReport aggregates the calendar month containing the given
// date. It is read-only; the report is persisted only by an explicit
// SaveMonthlyReport call.
func (s *Service) GenerateMonthlyReport(ctx context.Context, month dates.Date) *Report {
	report := &Report{Month: month}
	startDate := month.MonthStart()
	endDate := month.MonthEnd()

	names := s.classes.ClassNames(ctx)
	attendanceByName := map[string]int{}
	revenueByName := map[string]float64{}
	activeMembers := map[int]bool{}

	for classID, className := range names {
		records := s.ledger.Records(ctx, classID, startDate, endDate)
		if len(records) == 0 {
			continue
		}
		report.TotalClassesHeld++
		for _, record := range records {
			if !record.Attended {
				continue
			}
			attendanceByName[className]++
			revenueByName[className] += record.AmountPaid
			activeMembers[record.MemberID] = true
			report.TotalAttendance++
			report.TotalRevenue += record.AmountPaid
		}
	}

	for name, count := range attendanceByName {
		if count > 0 {
			report.ClassAttendance = append(report.ClassAttendance, ClassAttendance{ClassName: name, Count: count})
		}
	}
	for name, amount := range revenueByName {
		if amount > 0 {
			report.ClassRevenue = append(report.ClassRevenue, ClassRevenue{ClassName: name, Amount: amount})
		}
	}
	sort.Slice(report.ClassAttendance, func(i, j int) bool {
		return report.ClassAttendance[i].ClassName < report.ClassAttendance[j].ClassName
	})
	sort.Slice(report.ClassRevenue, func(i, j int) bool {
		return report.ClassRevenue[i].ClassName < report.ClassRevenue[j].ClassName
	})

	report.TotalActiveMembers = len(activeMembers)
	return report
}

// SaveMonthlyReport appends the report to the history. Generating the same
// month twice and saving both leaves two history entries.
func (s *Service) SaveMonthlyReport(ctx context.Context, report *Report) error {
	if err := s.store.Insert(ctx, report); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetMonthlyReports returns saved reports whose month falls between startDate
// and endDate inclusive, sorted by month ascending.
func (s *Service) GetMonthlyReports(ctx context.Context, startDate, endDate dates.Date) ([]*Report, error) {
	all, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	var out []*Report
	for _, report := range all {
		if report.Month.Before(startDate) || report.Month.After(endDate) {
			continue
		}
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out, nil
}
