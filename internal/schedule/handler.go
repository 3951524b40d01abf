package schedule

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shifterhq/shifter/internal/transport"
	"github.com/shifterhq/shifter/internal/user"
	"github.com/shifterhq/shifter/pkg/logger"
)

type ServiceAPI interface {
	ListShifts(actor *user.User, month string) ([]*Shift, error)
	ListTasks(actor *user.User, month string) ([]*Task, error)
	BulkImport(actor *user.User, rows []ShiftDTO) (int, error)
	ClearDay(actor *user.User, date string) error
	ClearMonth(actor *user.User, month string) error
	MonthHours(actor *user.User, month string) (map[string]float64, error)
}

// Handler is the read and batch surface for the schedule. Single-row writes
// go through the request workflow instead.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListShifts handles GET /shifts?month=YYYY-MM
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	shifts, err := h.Service.ListShifts(actor, r.URL.Query().Get("month"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, shifts)
}

// ListTasks handles GET /tasks?month=YYYY-MM
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.Service.ListTasks(actor, r.URL.Query().Get("month"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, tasks)
}

// BulkImport handles POST /shifts/bulk
func (h *Handler) BulkImport(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var rows []ShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.Service.BulkImport(actor, rows)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// ClearDay handles DELETE /shifts/day?date=YYYY-MM-DD
func (h *Handler) ClearDay(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.ClearDay(actor, r.URL.Query().Get("date")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// ClearMonth handles DELETE /shifts/month?month=YYYY-MM
func (h *Handler) ClearMonth(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.ClearMonth(actor, r.URL.Query().Get("month")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// MonthHours handles GET /shifts/hours?month=YYYY-MM
func (h *Handler) MonthHours(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hours, err := h.Service.MonthHours(actor, r.URL.Query().Get("month"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, hours)
}
