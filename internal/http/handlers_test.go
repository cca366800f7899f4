package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gymcomplete/internal/attendance"
	"github.com/gymcomplete/internal/calendars"
	"github.com/gymcomplete/internal/classes"
	"github.com/gymcomplete/internal/clock"
	"github.com/gymcomplete/internal/events"
	"github.com/gymcomplete/internal/keys"
	"github.com/gymcomplete/internal/members"
	"github.com/gymcomplete/internal/reports"
)

func newTestHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	key, err := keys.NewKey()
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appClock := clock.NewSimulated(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	bus := events.NewBus()

	membersService := members.NewService(members.NewStore(db, key), appClock)
	registry := classes.NewRegistry(logger, classes.NewStore(db), membersService, appClock, bus)
	ledger := attendance.NewLedger(logger, attendance.NewStore(db), registry, bus)
	reportsService := reports.NewService(reports.NewStore(db), ledger, registry)
	calendarsService := calendars.NewService(calendars.NewStore(db), registry)

	return Handler(logger, registry, membersService, ledger, reportsService, calendarsService)
}

func do(t *testing.T, handler http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(method, path, reader))
	return recorder
}

func TestEnrollmentFlow(t *testing.T) {
	handler := newTestHandler(t)

	for _, body := range []string{
		`{"id":1,"name":"a","email":"a@example.com","subscription":{"plan":"monthly","vip":false,"start":"2024-01-01","end":"2024-12-31"}}`,
		`{"id":2,"name":"b","email":"b@example.com","subscription":{"plan":"monthly","vip":false,"start":"2024-01-01","end":"2024-12-31"}}`,
		`{"id":3,"name":"c","email":"c@example.com","subscription":{"plan":"monthly","vip":false,"start":"2023-01-01","end":"2023-12-31"}}`,
	} {
		if recorder := do(t, handler, "POST", "/members", body); recorder.Code != http.StatusCreated {
			t.Fatalf("create member: %d %s", recorder.Code, recorder.Body)
		}
	}

	recorder := do(t, handler, "POST", "/classes", `{"className":"Yoga","coachName":"Alice","from":"2024-04-01","to":"2024-06-30","capacity":1}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create class: %d %s", recorder.Code, recorder.Body)
	}
	var view classes.View
	if err := json.Unmarshal(recorder.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.ID != 1 {
		t.Fatalf("class id = %d, want 1", view.ID)
	}

	if recorder := do(t, handler, "POST", "/classes/1/enrollments/1", ""); recorder.Code != http.StatusCreated {
		t.Fatalf("enroll: %d %s", recorder.Code, recorder.Body)
	}

	// class is at capacity: second member lands on the waitlist
	recorder = do(t, handler, "POST", "/classes/1/enrollments/2", "")
	if recorder.Code != http.StatusConflict {
		t.Fatalf("enroll full: %d %s", recorder.Code, recorder.Body)
	}
	var conflict struct {
		Waitlisted bool `json:"waitlisted"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &conflict); err != nil {
		t.Fatal(err)
	}
	if !conflict.Waitlisted {
		t.Fatalf("expected waitlisted body, got %s", recorder.Body)
	}

	if recorder := do(t, handler, "POST", "/classes/1/enrollments/3", ""); recorder.Code != http.StatusForbidden {
		t.Fatalf("enroll expired: %d %s", recorder.Code, recorder.Body)
	}

	if recorder := do(t, handler, "POST", "/classes/1/enrollments/1", ""); recorder.Code != http.StatusConflict {
		t.Fatalf("enroll twice: %d %s", recorder.Code, recorder.Body)
	}

	if recorder := do(t, handler, "DELETE", "/classes/1/enrollments/1", ""); recorder.Code != http.StatusNoContent {
		t.Fatalf("unenroll: %d %s", recorder.Code, recorder.Body)
	}

	recorder = do(t, handler, "POST", "/classes/1/promotions", "")
	if recorder.Code != http.StatusCreated {
		t.Fatalf("promote: %d %s", recorder.Code, recorder.Body)
	}
	var promoted struct {
		MemberID int `json:"memberId"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &promoted); err != nil {
		t.Fatal(err)
	}
	if promoted.MemberID != 2 {
		t.Fatalf("promoted member = %d, want 2", promoted.MemberID)
	}

	if recorder := do(t, handler, "GET", "/classes/999", ""); recorder.Code != http.StatusNotFound {
		t.Fatalf("missing class: %d", recorder.Code)
	}

	if recorder := do(t, handler, "POST", "/save", ""); recorder.Code != http.StatusNoContent {
		t.Fatalf("save: %d %s", recorder.Code, recorder.Body)
	}
}

func TestAttendanceAndReports(t *testing.T) {
	handler := newTestHandler(t)

	do(t, handler, "POST", "/classes", `{"className":"Spin","coachName":"Bob","from":"2024-04-01","to":"2024-06-30","capacity":10}`)

	recorder := do(t, handler, "POST", "/attendance", `{"classId":1,"memberId":7,"date":"2024-04-03","attended":true,"amountPaid":20}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("record attendance: %d %s", recorder.Code, recorder.Body)
	}

	if recorder := do(t, handler, "POST", "/attendance", `{"classId":99,"memberId":7,"date":"2024-04-03","attended":true,"amountPaid":20}`); recorder.Code != http.StatusNotFound {
		t.Fatalf("attendance unknown class: %d", recorder.Code)
	}

	recorder = do(t, handler, "GET", "/classes/1/attendance/count?date=2024-04-03", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("count: %d %s", recorder.Code, recorder.Body)
	}
	var count struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &count); err != nil {
		t.Fatal(err)
	}
	if count.Count != 1 {
		t.Fatalf("count = %d, want 1", count.Count)
	}

	recorder = do(t, handler, "GET", "/reports/monthly?month=2024-04-15", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("generate report: %d %s", recorder.Code, recorder.Body)
	}
	var report reports.Report
	if err := json.Unmarshal(recorder.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.TotalRevenue != 20 {
		t.Fatalf("revenue = %f, want 20", report.TotalRevenue)
	}
}

func TestCalendarFeed(t *testing.T) {
	handler := newTestHandler(t)

	do(t, handler, "POST", "/classes", `{"className":"Pilates","coachName":"Eve","from":"2024-04-01","to":"2024-06-30","capacity":10}`)
	do(t, handler, "POST", "/classes/1/sessions", `{"date":"2024-04-03"}`)

	recorder := do(t, handler, "POST", "/classes/1/calendars", "")
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create calendar: %d %s", recorder.Code, recorder.Body)
	}
	var created struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	recorder = do(t, handler, "GET", created.URL, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("get calendar: %d %s", recorder.Code, recorder.Body)
	}
	if !strings.Contains(recorder.Body.String(), "BEGIN:VCALENDAR") {
		t.Fatalf("not an ics feed: %s", recorder.Body)
	}

	if recorder := do(t, handler, "GET", "/calendars/nope/sessions.ics", ""); recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown calendar: %d %s", recorder.Code, recorder.Body)
	}
}
