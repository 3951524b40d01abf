package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/user"
)

const managerOnlyAlert = "⛔️ Тільки для SM"

// callbackContext carries one pressed button through the dispatch table.
type callbackContext struct {
	callbackID string
	data       string
	suffix     string
	chatID     int64
	messageID  int
	text       string
	actor      *user.User
}

type route struct {
	prefix      string
	managerOnly bool
	handle      func(cb *callbackContext)
}

// routes returns the callback dispatch table. Order matters only for
// overlapping prefixes, which the table avoids.
func (b *Bot) routes() []route {
	return []route{
		{prefix: "approve_req_", managerOnly: true, handle: b.onResolveRequest(true)},
		{prefix: "reject_req_", managerOnly: true, handle: b.onResolveRequest(false)},
		{prefix: "approve_user_", managerOnly: true, handle: b.onUserVerdict(true)},
		{prefix: "reject_user_", managerOnly: true, handle: b.onUserVerdict(false)},
		{prefix: "transfer_approve_", managerOnly: true, handle: b.onTransferVerdict(true)},
		{prefix: "transfer_reject_", managerOnly: true, handle: b.onTransferVerdict(false)},
		{prefix: "approve_all_requests", managerOnly: true, handle: b.onApproveAll},
		{prefix: "read_news_", handle: b.onReadNews},
		{prefix: "set_remind_", handle: b.onSetReminder},
		{prefix: "menu_shifts", handle: b.onMyShifts},
		{prefix: "menu_daysoff", handle: b.onMyDaysOff},
		{prefix: "menu_onduty", handle: b.onOnDuty},
		{prefix: "menu_settings", handle: b.onSettings},
		{prefix: "menu_back", handle: b.onMenuBack},
	}
}

// HandleCallback resolves the pressing account and dispatches by prefix.
func (b *Bot) HandleCallback(callbackID, data string, fromChatID, messageChatID int64, messageID int, messageText string) {
	actor, err := b.users.GetByChatID(fromChatID)
	if err != nil {
		b.answer(callbackID, "Акаунт не знайдено. Використайте /login", true)
		return
	}

	for _, r := range b.routes() {
		if !strings.HasPrefix(data, r.prefix) {
			continue
		}
		if r.managerOnly && !actor.IsManager() {
			b.answer(callbackID, managerOnlyAlert, true)
			return
		}
		r.handle(&callbackContext{
			callbackID: callbackID,
			data:       data,
			suffix:     strings.TrimPrefix(data, r.prefix),
			chatID:     messageChatID,
			messageID:  messageID,
			text:       messageText,
			actor:      actor,
		})
		return
	}

	b.logger.Warn("unknown callback", "data", data, "chat_id", fromChatID)
	b.answer(callbackID, "", false)
}

func (b *Bot) onResolveRequest(approve bool) func(cb *callbackContext) {
	return func(cb *callbackContext) {
		id, err := strconv.ParseInt(cb.suffix, 10, 64)
		if err != nil {
			b.answer(cb.callbackID, "", false)
			return
		}

		res, err := b.requests.Resolve(id, approve, cb.actor)
		if err != nil {
			b.logger.Error("callback resolve failed", "request_id", id, "error", err)
			b.answer(cb.callbackID, "Помилка обробки запиту", true)
			return
		}
		if !res.Success {
			b.editStale(cb)
			return
		}

		verdict := fmt.Sprintf("✅ Схвалено (SM: %s)", cb.actor.Name)
		if !approve {
			verdict = fmt.Sprintf("❌ Відхилено (SM: %s)", cb.actor.Name)
		}
		b.editVerdict(cb, verdict)
	}
}

func (b *Bot) onUserVerdict(approve bool) func(cb *callbackContext) {
	return func(cb *callbackContext) {
		id, err := strconv.ParseInt(cb.suffix, 10, 64)
		if err != nil {
			b.answer(cb.callbackID, "", false)
			return
		}

		var verdict string
		if approve {
			if _, err := b.users.ApproveUser(cb.actor, id); err != nil {
				b.editStale(cb)
				return
			}
			verdict = fmt.Sprintf("✅ Прийнято (SM: %s)", cb.actor.Name)
		} else {
			if _, err := b.users.RejectUser(cb.actor, id); err != nil {
				b.editStale(cb)
				return
			}
			verdict = fmt.Sprintf("❌ Відхилено (SM: %s)", cb.actor.Name)
		}
		b.editVerdict(cb, verdict)
	}
}

func (b *Bot) onTransferVerdict(approve bool) func(cb *callbackContext) {
	return func(cb *callbackContext) {
		id, err := strconv.ParseInt(cb.suffix, 10, 64)
		if err != nil {
			b.answer(cb.callbackID, "", false)
			return
		}

		res, err := b.requests.RespondTransfer(id, approve, cb.actor)
		if err != nil {
			b.logger.Error("transfer callback failed", "request_id", id, "error", err)
			b.answer(cb.callbackID, "Помилка обробки запиту", true)
			return
		}
		if !res.Success {
			b.editStale(cb)
			return
		}

		verdict := fmt.Sprintf("✅ Схвалено (SM: %s)", cb.actor.Name)
		if !approve {
			verdict = fmt.Sprintf("❌ Відхилено (SM: %s)", cb.actor.Name)
		}
		b.editVerdict(cb, verdict)
	}
}

func (b *Bot) onApproveAll(cb *callbackContext) {
	res, err := b.requests.ResolveAll(cb.actor)
	if err != nil {
		b.logger.Error("bulk approval callback failed", "error", err)
		b.answer(cb.callbackID, "Помилка обробки", true)
		return
	}
	b.edit(cb, fmt.Sprintf("✅ %s (SM: %s)", res.Message, cb.actor.Name))
	b.answer(cb.callbackID, "", false)
}

func (b *Bot) onReadNews(cb *callbackContext) {
	id, err := strconv.ParseInt(cb.suffix, 10, 64)
	if err != nil {
		b.answer(cb.callbackID, "", false)
		return
	}
	if err := b.news.MarkRead(id, cb.actor.Name); err != nil {
		b.answer(cb.callbackID, "Новину не знайдено", true)
		return
	}
	b.answer(cb.callbackID, "Дякую! 👁", false)
}

func (b *Bot) onSetReminder(cb *callbackContext) {
	pref := cb.suffix
	if err := b.users.SetReminderPref(cb.actor.ID, pref); err != nil {
		b.answer(cb.callbackID, "Невідоме налаштування", true)
		return
	}
	b.edit(cb, fmt.Sprintf("⏰ Нагадування: %s", reminderLabel(pref)))
	b.answer(cb.callbackID, "Збережено", false)
}

func (b *Bot) onSettings(cb *callbackContext) {
	keyboard := [][]notify.Button{
		{
			{Label: "Вимкнути", Action: "set_remind_none"},
			{Label: "На початку", Action: "set_remind_start"},
		},
		{
			{Label: "За 1 год", Action: "set_remind_1h"},
			{Label: "За 12 год", Action: "set_remind_12h"},
		},
		{
			{Label: "20:00 напередодні", Action: "set_remind_20:00"},
		},
		{
			{Label: "⬅️ Назад", Action: "menu_back"},
		},
	}
	if err := b.transport.EditMessageText(cb.chatID, cb.messageID,
		fmt.Sprintf("⚙️ Налаштування\nПоточне нагадування: %s", reminderLabel(cb.actor.ReminderPref)),
		notify.MessageOptions{Keyboard: keyboard}); err != nil {
		b.logger.Error("settings edit failed", "chat_id", cb.chatID, "error", err)
	}
	b.answer(cb.callbackID, "", false)
}

func (b *Bot) onMenuBack(cb *callbackContext) {
	if err := b.transport.EditMessageText(cb.chatID, cb.messageID, menuText(cb.actor),
		notify.MessageOptions{Keyboard: menuKeyboard(cb.actor)}); err != nil {
		b.logger.Error("menu edit failed", "chat_id", cb.chatID, "error", err)
	}
	b.answer(cb.callbackID, "", false)
}

// editVerdict rewrites the routed message in place, keeping the original
// text under the verdict so the manager still sees what was decided.
func (b *Bot) editVerdict(cb *callbackContext, verdict string) {
	text := verdict
	if cb.text != "" {
		text = verdict + "\n\n" + cb.text
	}
	b.edit(cb, text)
	b.answer(cb.callbackID, "", false)
}

func (b *Bot) editStale(cb *callbackContext) {
	b.edit(cb, "⚠️ Запит вже оброблено.")
	b.answer(cb.callbackID, "", false)
}

func (b *Bot) edit(cb *callbackContext, text string) {
	if err := b.transport.EditMessageText(cb.chatID, cb.messageID, text, notify.MessageOptions{}); err != nil {
		b.logger.Error("message edit failed", "chat_id", cb.chatID, "message_id", cb.messageID, "error", err)
	}
}

func (b *Bot) answer(callbackID, text string, alert bool) {
	if err := b.transport.AnswerCallback(callbackID, text, alert); err != nil {
		b.logger.Error("callback answer failed", "callback_id", callbackID, "error", err)
	}
}

func reminderLabel(pref string) string {
	switch pref {
	case "none":
		return "вимкнено"
	case "start":
		return "на початку зміни"
	case "1h":
		return "за 1 годину"
	case "12h":
		return "за 12 годин"
	default:
		return pref + " напередодні"
	}
}
