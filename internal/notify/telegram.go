package notify

import (
	"encoding/json"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shifterhq/shifter/internal"
)

// TelegramTransport implements Transport on top of the Bot API client. All
// messages go out as HTML.
type TelegramTransport struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewTelegramTransport(bot *tgbotapi.BotAPI, logger *slog.Logger) *TelegramTransport {
	return &TelegramTransport{bot: bot, logger: logger}
}

func (t *TelegramTransport) SendMessage(chatID int64, text string, opts MessageOptions) (int, error) {
	// The client library predates forum topics, so topic sends go through
	// raw params instead of MessageConfig.
	if opts.TopicID != nil {
		return t.sendToTopic(chatID, *opts.TopicID, text, opts)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = opts.Silent
	if len(opts.Keyboard) > 0 {
		msg.ReplyMarkup = buildKeyboard(opts.Keyboard)
	}

	sent, err := t.bot.Send(msg)
	if err != nil {
		t.logger.Error("telegram send failed", "chat_id", chatID, "error", err)
		return 0, internal.NewTransportError("failed to send message", err)
	}
	return sent.MessageID, nil
}

func (t *TelegramTransport) sendToTopic(chatID, topicID int64, text string, opts MessageOptions) (int, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	params.AddNonEmpty("message_thread_id", strconv.FormatInt(topicID, 10))
	params.AddBool("disable_notification", opts.Silent)
	if len(opts.Keyboard) > 0 {
		if err := params.AddInterface("reply_markup", buildKeyboard(opts.Keyboard)); err != nil {
			return 0, internal.NewTransportError("failed to encode keyboard", err)
		}
	}

	resp, err := t.bot.MakeRequest("sendMessage", params)
	if err != nil {
		t.logger.Error("telegram topic send failed", "chat_id", chatID, "topic_id", topicID, "error", err)
		return 0, internal.NewTransportError("failed to send topic message", err)
	}

	var sent struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return 0, internal.NewTransportError("failed to decode send response", err)
	}
	return sent.MessageID, nil
}

func (t *TelegramTransport) EditMessageText(chatID int64, messageID int, text string, opts MessageOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if len(opts.Keyboard) > 0 {
		markup := buildKeyboard(opts.Keyboard)
		edit.ReplyMarkup = &markup
	}

	if _, err := t.bot.Request(edit); err != nil {
		t.logger.Error("telegram edit failed", "chat_id", chatID, "message_id", messageID, "error", err)
		return internal.NewTransportError("failed to edit message", err)
	}
	return nil
}

func (t *TelegramTransport) AnswerCallback(callbackID, text string, alert bool) error {
	var cb tgbotapi.CallbackConfig
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	} else {
		cb = tgbotapi.NewCallback(callbackID, text)
	}

	if _, err := t.bot.Request(cb); err != nil {
		t.logger.Error("telegram callback answer failed", "callback_id", callbackID, "error", err)
		return internal.NewTransportError("failed to answer callback", err)
	}
	return nil
}

func buildKeyboard(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		kbRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action))
		}
		kbRows = append(kbRows, kbRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}
