package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gymcomplete/internal/attendance"
	"github.com/gymcomplete/internal/calendars"
	"github.com/gymcomplete/internal/classes"
	"github.com/gymcomplete/internal/dates"
	"github.com/gymcomplete/internal/members"
	"github.com/gymcomplete/internal/reports"
)

func Handler(
	logger *slog.Logger,
	registry *classes.Registry,
	membersService *members.Service,
	ledger *attendance.Ledger,
	reportsService *reports.Service,
	calendarsService *calendars.Service,
) http.HandlerFunc {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /classes", handleCreateClass(logger, registry))
	mux.HandleFunc("GET /classes", handleListClasses(logger, registry))
	mux.HandleFunc("GET /classes/{class_id}", handleGetClass(logger, registry))
	mux.HandleFunc("PUT /classes/{class_id}", handleUpdateClass(logger, registry))
	mux.HandleFunc("DELETE /classes/{class_id}", handleDeleteClass(logger, registry))

	mux.HandleFunc("POST /classes/{class_id}/sessions", handleAddSession(logger, registry))
	mux.HandleFunc("GET /classes/{class_id}/sessions", handleListSessions(logger, registry))
	mux.HandleFunc("DELETE /classes/{class_id}/sessions/{date}", handleRemoveSession(logger, registry))

	mux.HandleFunc("POST /classes/{class_id}/enrollments/{member_id}", handleEnroll(logger, registry))
	mux.HandleFunc("DELETE /classes/{class_id}/enrollments/{member_id}", handleUnenroll(logger, registry))
	mux.HandleFunc("POST /classes/{class_id}/promotions", handlePromote(logger, registry))

	mux.HandleFunc("POST /classes/{class_id}/waitlist/{member_id}", handleAddToWaitlist(logger, registry, membersService))
	mux.HandleFunc("DELETE /classes/{class_id}/waitlist/{member_id}", handleRemoveFromWaitlist(logger, registry))
	mux.HandleFunc("GET /classes/{class_id}/waitlist", handleGetWaitlist(logger, registry))
	mux.HandleFunc("GET /classes/{class_id}/waitlist/next", handleNextWaitlistMember(logger, registry))

	mux.HandleFunc("POST /attendance", handleRecordAttendance(logger, ledger))
	mux.HandleFunc("GET /classes/{class_id}/attendance", handleListAttendance(logger, ledger))
	mux.HandleFunc("GET /classes/{class_id}/attendance/count", handleAttendanceCount(logger, ledger))
	mux.HandleFunc("GET /classes/{class_id}/revenue", handleClassRevenue(logger, ledger))

	mux.HandleFunc("GET /reports/monthly", handleGenerateReport(logger, reportsService))
	mux.HandleFunc("POST /reports/monthly", handleSaveReport(logger, reportsService))
	mux.HandleFunc("GET /reports", handleListReports(logger, reportsService))

	mux.HandleFunc("POST /classes/{class_id}/calendars", handleCreateCalendar(logger, calendarsService))
	mux.HandleFunc("GET /calendars/{calendar_id}/sessions.ics", handleGetCalendar(logger, calendarsService))

	mux.HandleFunc("POST /members", handleCreateMember(logger, membersService))
	mux.HandleFunc("GET /members", handleListMembers(logger, membersService))
	mux.HandleFunc("GET /members/{member_id}", handleGetMember(logger, membersService))
	mux.HandleFunc("PUT /members/{member_id}", handleUpdateMember(logger, membersService))
	mux.HandleFunc("DELETE /members/{member_id}", handleDeleteMember(logger, membersService))
	mux.HandleFunc("GET /members/{member_id}/history", handleClassHistory(logger, membersService))
	mux.HandleFunc("GET /members/renewals", handleRenewals(logger, membersService))

	mux.HandleFunc("POST /save", handleSave(logger, registry))

	return WithAccessLogs(logger)(mux.ServeHTTP)
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "error", err)
	}
}

func writeError(logger *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, classes.ErrClassFull):
		writeJSON(logger, w, http.StatusConflict, map[string]any{"error": err.Error(), "waitlisted": true})
	case errors.Is(err, classes.ErrClassNotFound),
		errors.Is(err, members.ErrNotFound),
		errors.Is(err, calendars.ErrNotFound),
		errors.Is(err, attendance.ErrClassNotFound),
		errors.Is(err, classes.ErrNotInWaitlist):
		writeJSON(logger, w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, classes.ErrAlreadyWaitlisted),
		errors.Is(err, classes.ErrAlreadyEnrolled),
		errors.Is(err, classes.ErrMemberNotEnrolled),
		errors.Is(err, classes.ErrWaitlistEmpty),
		errors.Is(err, classes.ErrClassHasID),
		errors.Is(err, members.ErrAlreadyExists):
		writeJSON(logger, w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, classes.ErrInactiveSubscription):
		writeJSON(logger, w, http.StatusForbidden, map[string]any{"error": err.Error()})
	case errors.Is(err, classes.ErrInvalidClassID):
		writeJSON(logger, w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	default:
		logger.Error("request failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeBadRequest(logger *slog.Logger, w http.ResponseWriter, err error) {
	writeJSON(logger, w, http.StatusBadRequest, map[string]any{"error": err.Error()})
}

func pathInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

type classRequest struct {
	ClassName string     `json:"className"`
	CoachName string     `json:"coachName"`
	From      dates.Date `json:"from"`
	To        dates.Date `json:"to"`
	Capacity  int        `json:"capacity"`
}

func handleCreateClass(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request classRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		class := classes.New(request.ClassName, request.CoachName, request.From, request.To, request.Capacity)
		id, err := registry.AddClass(r.Context(), class)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		view, err := registry.GetClass(r.Context(), id)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, view)
	}
}

func handleListClasses(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var views []classes.View
		switch {
		case query.Get("coach") != "":
			views = registry.ClassesByCoach(r.Context(), query.Get("coach"))
		case query.Get("date") != "":
			date, err := dates.Parse(query.Get("date"))
			if err != nil {
				writeBadRequest(logger, w, err)
				return
			}
			views = registry.ClassesByDate(r.Context(), date)
		default:
			views = registry.ListClasses(r.Context())
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"classes": views})
	}
}

func handleGetClass(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		view, err := registry.GetClass(r.Context(), classID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, view)
	}
}

func handleUpdateClass(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		var request classRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		class := classes.New(request.ClassName, request.CoachName, request.From, request.To, request.Capacity)
		class.ID = classID
		if err := registry.UpdateClass(r.Context(), class); err != nil {
			writeError(logger, w, err)
			return
		}
		view, err := registry.GetClass(r.Context(), classID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, view)
	}
}

func handleDeleteClass(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := registry.DeleteClass(r.Context(), classID); err != nil {
			writeError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAddSession(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		var request struct {
			Date dates.Date `json:"date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := registry.AddSession(r.Context(), classID, request.Date); err != nil {
			writeError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func handleListSessions(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		sessions, err := registry.ClassSessions(r.Context(), classID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

func handleRemoveSession(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		date, err := dates.Parse(r.PathValue("date"))
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := registry.RemoveSession(r.Context(), classID, date); err != nil {
			writeError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleEnroll(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := registry.EnrollMember(r.Context(), classID, memberID); err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, map[string]any{"enrolled": true})
	}
}

func handleUnenroll(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := registry.UnenrollMember(r.Context(), classID, memberID); err != nil {
			writeError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePromote(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		memberID, err := registry.PromoteNextWaitlistMember(r.Context(), classID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, map[string]any{"memberId": memberID})
	}
}

func handleAddToWaitlist(
	logger *slog.Logger,
	registry *classes.Registry,
	membersService *members.Service,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		vip := membersService.IsVIPMember(r.Context(), memberID)
		if err := registry.AddToWaitlist(r.Context(), classID, memberID, vip); err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, map[string]any{"waitlisted": true})
	}
}

func handleRemoveFromWaitlist(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := registry.RemoveFromWaitlist(r.Context(), classID, memberID); err != nil {
			writeError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGetWaitlist(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		memberIDs, err := registry.GetWaitlist(r.Context(), classID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"members": memberIDs})
	}
}

func handleNextWaitlistMember(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		memberID, ok, err := registry.NextWaitlistMember(r.Context(), classID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		if !ok {
			writeError(logger, w, classes.ErrWaitlistEmpty)
			return
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"memberId": memberID})
	}
}

func handleRecordAttendance(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record attendance.Record
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := ledger.RecordAttendance(r.Context(), record); err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, record)
	}
}

func dateRange(r *http.Request) (dates.Date, dates.Date, error) {
	from, err := dates.Parse(r.URL.Query().Get("from"))
	if err != nil {
		return dates.Date{}, dates.Date{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err := dates.Parse(r.URL.Query().Get("to"))
	if err != nil {
		return dates.Date{}, dates.Date{}, fmt.Errorf("invalid to: %w", err)
	}
	return from, to, nil
}

func handleListAttendance(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		from, to, err := dateRange(r)
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		records := ledger.Records(r.Context(), classID, from, to)
		writeJSON(logger, w, http.StatusOK, map[string]any{"records": records})
	}
}

func handleAttendanceCount(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		date, err := dates.Parse(r.URL.Query().Get("date"))
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		count := ledger.AttendanceCount(r.Context(), classID, date)
		writeJSON(logger, w, http.StatusOK, map[string]any{"count": count})
	}
}

func handleClassRevenue(logger *slog.Logger, ledger *attendance.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		from, to, err := dateRange(r)
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		revenue := ledger.ClassRevenue(r.Context(), classID, from, to)
		writeJSON(logger, w, http.StatusOK, map[string]any{"revenue": revenue})
	}
}

func handleGenerateReport(logger *slog.Logger, reportsService *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, err := dates.Parse(r.URL.Query().Get("month"))
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		report := reportsService.GenerateMonthlyReport(r.Context(), month.MonthStart())
		writeJSON(logger, w, http.StatusOK, report)
	}
}

func handleSaveReport(logger *slog.Logger, reportsService *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Month dates.Date `json:"month"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		report := reportsService.GenerateMonthlyReport(r.Context(), request.Month.MonthStart())
		if err := reportsService.SaveMonthlyReport(r.Context(), report); err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, report)
	}
}

func handleListReports(logger *slog.Logger, reportsService *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, to, err := dateRange(r)
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		saved, err := reportsService.GetMonthlyReports(r.Context(), from, to)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"reports": saved})
	}
}

func handleCreateCalendar(logger *slog.Logger, calendarsService *calendars.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classID, err := pathInt(r, "class_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		cal, err := calendarsService.CreateCalendar(r.Context(), classID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, map[string]any{
			"id":  cal.ID,
			"url": fmt.Sprintf("/calendars/%s/sessions.ics", cal.ID),
		})
	}
}

func handleGetCalendar(logger *slog.Logger, calendarsService *calendars.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := calendarsService.WriteICal(r.Context(), &buf, r.PathValue("calendar_id")); err != nil {
			writeError(logger, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		if _, err := buf.WriteTo(w); err != nil {
			logger.Error("write calendar", "error", err)
		}
	}
}

func handleCreateMember(logger *slog.Logger, membersService *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var member members.Member
		if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := membersService.CreateMember(r.Context(), &member); err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusCreated, member)
	}
}

func handleListMembers(logger *slog.Logger, membersService *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := membersService.ListMembers(r.Context())
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"members": all})
	}
}

func handleGetMember(logger *slog.Logger, membersService *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		member, err := membersService.GetMember(r.Context(), memberID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, member)
	}
}

func handleUpdateMember(logger *slog.Logger, membersService *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		var member members.Member
		if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		member.ID = memberID
		if err := membersService.UpdateMember(r.Context(), &member); err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, member)
	}
}

func handleDeleteMember(logger *slog.Logger, membersService *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		if err := membersService.DeleteMember(r.Context(), memberID); err != nil {
			writeError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleClassHistory(logger *slog.Logger, membersService *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := pathInt(r, "member_id")
		if err != nil {
			writeBadRequest(logger, w, err)
			return
		}
		history, err := membersService.ClassHistory(r.Context(), memberID)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"classHistory": history})
	}
}

func handleRenewals(logger *slog.Logger, membersService *members.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := strconv.Atoi(r.URL.Query().Get("days"))
		if err != nil {
			writeBadRequest(logger, w, fmt.Errorf("invalid days: %w", err))
			return
		}
		expiring, err := membersService.MembersNeedingRenewal(r.Context(), days)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, map[string]any{"members": expiring})
	}
}

func handleSave(logger *slog.Logger, registry *classes.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := registry.Save(r.Context()); err != nil {
			writeError(logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
