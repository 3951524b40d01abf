package bot

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shifterhq/shifter/internal/transport"
	"github.com/shifterhq/shifter/pkg/logger"
)

// WebhookHandler receives telegram updates at /bot/{token}. The path token
// must match the bot token, which is the standard webhook shared secret.
type WebhookHandler struct {
	*transport.BaseHandler
	bot   *Bot
	token string
}

func NewWebhookHandler(bot *Bot, token string) *WebhookHandler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &WebhookHandler{
		BaseHandler: transport.NewBaseHandler(lg),
		bot:         bot,
		token:       token,
	}
}

// threadIDs mirrors the parts of the update payload the client library
// predates: forum topic ids on incoming messages.
type threadIDs struct {
	Message *struct {
		MessageThreadID *int64 `json:"message_thread_id"`
	} `json:"message"`
}

// HandleUpdate handles POST /bot/{token}
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "token") != h.token {
		h.Logger.Warn("webhook call with wrong token")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.Logger.Warn("undecodable update", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid update")
		return
	}

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil {
			break
		}
		h.bot.HandleCallback(cb.ID, cb.Data, cb.From.ID,
			cb.Message.Chat.ID, cb.Message.MessageID, cb.Message.Text)

	case update.Message != nil:
		var extra threadIDs
		var topicID *int64
		if json.Unmarshal(body, &extra) == nil && extra.Message != nil {
			topicID = extra.Message.MessageThreadID
		}
		h.bot.HandleMessage(update.Message.From.ID, update.Message.Chat.ID, topicID, update.Message.Text)
	}

	// Telegram only needs a 200 to mark the update delivered.
	w.WriteHeader(http.StatusOK)
}
