package notify

import (
	"log/slog"
)

// UserDirectory resolves schedule display names to linked chats. Implemented
// by the user repository.
type UserDirectory interface {
	ChatIDByName(name string) (int64, bool, error)
}

// Channel is a store broadcast target: the store group chat plus an
// optional forum topic inside it.
type Channel struct {
	ChatID  int64
	TopicID *int64
}

// StoreDirectory lists store broadcast channels. Implemented by the store
// repository.
type StoreDirectory interface {
	NewsChannels() ([]Channel, error)
}

// Notifier is the high-level send surface services use. Personal messages
// respect quiet hours through the queue, store broadcasts go straight out.
type Notifier struct {
	queue  *Queue
	users  UserDirectory
	stores StoreDirectory
	logger *slog.Logger
}

func NewNotifier(queue *Queue, users UserDirectory, stores StoreDirectory, logger *slog.Logger) *Notifier {
	return &Notifier{queue: queue, users: users, stores: stores, logger: logger}
}

// NotifyUser sends a personal message to the user behind a schedule name.
// Users without a linked chat are skipped silently.
func (n *Notifier) NotifyUser(name, text string) {
	chatID, ok, err := n.users.ChatIDByName(name)
	if err != nil {
		n.logger.Error("chat lookup failed", "name", name, "error", err)
		return
	}
	if !ok {
		n.logger.Debug("no linked chat for user", "name", name)
		return
	}
	n.queue.Deliver(chatID, text, MessageOptions{})
}

// NotifyChat sends a quiet-hours-aware message to a known chat id.
func (n *Notifier) NotifyChat(chatID int64, text string) {
	n.queue.Deliver(chatID, text, MessageOptions{})
}

// NotifyChatButtons sends an actionable message immediately, bypassing the
// quiet window, and returns the message id for later in-place edits.
func (n *Notifier) NotifyChatButtons(chatID int64, text string, buttons [][]Button) (int, error) {
	return n.queue.SendNow(chatID, text, MessageOptions{Keyboard: buttons})
}

// NotifyStores broadcasts text to every store news channel.
func (n *Notifier) NotifyStores(text string) {
	n.NotifyStoresButtons(text, nil)
}

// NotifyStoresButtons broadcasts an actionable message to every store news
// channel. Messages with keyboards are not deferrable, so these always go
// out immediately.
func (n *Notifier) NotifyStoresButtons(text string, buttons [][]Button) {
	channels, err := n.stores.NewsChannels()
	if err != nil {
		n.logger.Error("store channel lookup failed", "error", err)
		return
	}
	for _, ch := range channels {
		n.queue.Deliver(ch.ChatID, text, MessageOptions{TopicID: ch.TopicID, Keyboard: buttons})
	}
}
