package notify

// Button is one inline keyboard button. Action is the opaque callback data
// the approval router dispatches on.
type Button struct {
	Label  string
	Action string
}

// MessageOptions carries the optional parts of an outgoing message. TopicID
// targets a forum topic inside a group chat, Silent suppresses the client
// notification sound.
type MessageOptions struct {
	TopicID  *int64
	Keyboard [][]Button
	Silent   bool
}

// Transport is the messaging backend. The Telegram implementation lives in
// this package, tests substitute a recording fake.
type Transport interface {
	// SendMessage delivers text to a chat and returns the provider message id.
	SendMessage(chatID int64, text string, opts MessageOptions) (int, error)
	// EditMessageText rewrites a previously sent message in place.
	EditMessageText(chatID int64, messageID int, text string, opts MessageOptions) error
	// AnswerCallback acknowledges a callback query, optionally as an alert popup.
	AnswerCallback(callbackID, text string, alert bool) error
}
