package request

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/shifterhq/shifter/internal/transport"
	"github.com/shifterhq/shifter/internal/user"
	"github.com/shifterhq/shifter/pkg/logger"
)

type ServiceAPI interface {
	Submit(actor *user.User, kind Kind, payload MutationPayload) (Result, error)
	Resolve(requestID int64, approve bool, approver *user.User) (Result, error)
	ResolveAll(approver *user.User) (Result, error)
	RequestTransfer(actor *user.User, targetStoreCode string) (Result, error)
	RespondTransfer(requestID int64, approve bool, approver *user.User) (Result, error)
	List(actor *user.User) ([]*Request, error)
}

// Handler is the HTTP mutation surface. Every shift and task write goes
// through Submit so the web UI and the bot share one authority model.
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

type decisionDTO struct {
	Decision string `json:"decision"`
}

type transferDTO struct {
	TargetStoreCode string `json:"target_store_code"`
}

// CreateShift handles POST /shifts
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, KindAddShift)
}

// DeleteShift handles DELETE /shifts/{id}
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	h.submitDelete(w, r, KindDeleteShift)
}

// CreateTask handles POST /tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, KindAddTask)
}

// DeleteTask handles DELETE /tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.submitDelete(w, r, KindDeleteTask)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind Kind) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload MutationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.Submit(actor, kind, payload)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) submitDelete(w http.ResponseWriter, r *http.Request, kind Kind) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.Service.Submit(actor, kind, MutationPayload{ID: id})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// ListRequests handles GET /requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reqs, err := h.Service.List(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, reqs)
}

// ResolveRequest handles POST /requests/{id}/action
func (h *Handler) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var dto decisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if dto.Decision != "approve" && dto.Decision != "reject" {
		h.WriteError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}

	res, err := h.Service.Resolve(id, dto.Decision == "approve", actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// ApproveAll handles POST /requests/approve-all
func (h *Handler) ApproveAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res, err := h.Service.ResolveAll(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// RequestTransfer handles POST /requests/transfer
func (h *Handler) RequestTransfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto transferDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Service.RequestTransfer(actor, dto.TargetStoreCode)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// RespondTransfer handles POST /requests/transfer/{id}/respond
func (h *Handler) RespondTransfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var dto decisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if dto.Decision != "approve" && dto.Decision != "reject" {
		h.WriteError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}

	res, err := h.Service.RespondTransfer(id, dto.Decision == "approve", actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}
