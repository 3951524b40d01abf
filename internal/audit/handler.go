package audit

import (
	"log/slog"
	"net/http"

	"github.com/shifterhq/shifter/internal/transport"
	"github.com/shifterhq/shifter/internal/user"
	"github.com/shifterhq/shifter/pkg/logger"
)

type ServiceAPI interface {
	List(actor *user.User) ([]*Entry, error)
}

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

// ListLogs handles GET /logs
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.Service.List(actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, entries)
}
