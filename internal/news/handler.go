package news

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shifterhq/shifter/internal/transport"
	"github.com/shifterhq/shifter/internal/user"
	"github.com/shifterhq/shifter/pkg/logger"
)

type ServiceAPI interface {
	Publish(actor *user.User, dto PublishDTO) (*Post, error)
	List() ([]*Post, error)
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

// ListNews handles GET /news
func (h *Handler) ListNews(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Service.List()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, posts)
}

// PublishNews handles POST /news
func (h *Handler) PublishNews(w http.ResponseWriter, r *http.Request) {
	actor, ok := user.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto PublishDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.Service.Publish(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, post)
}
