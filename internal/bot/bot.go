package bot

import (
	"log/slog"
	"time"

	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/request"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/store"
	"github.com/shifterhq/shifter/internal/user"
)

// UserService is the account surface the bot needs.
type UserService interface {
	GetByChatID(chatID int64) (*user.User, error)
	ApproveUser(actor *user.User, userID int64) (*user.User, error)
	RejectUser(actor *user.User, userID int64) (*user.User, error)
	SetReminderPref(userID int64, pref string) error
	LinkByCredentials(username, password string, chatID int64) (*user.User, error)
}

// RequestService is the workflow surface behind approval buttons.
type RequestService interface {
	Resolve(requestID int64, approve bool, approver *user.User) (request.Result, error)
	ResolveAll(approver *user.User) (request.Result, error)
	RespondTransfer(requestID int64, approve bool, approver *user.User) (request.Result, error)
}

// ScheduleService feeds the menu views.
type ScheduleService interface {
	ShiftsForName(name, fromDate string) ([]*schedule.Shift, error)
	OnDuty(date string, storeID *int64) ([]*schedule.Shift, error)
}

// StoreService handles group chat binding commands.
type StoreService interface {
	LinkChat(actor *user.User, code string, chatID int64) (*store.Store, error)
	SetNewsTopic(actor *user.User, chatID int64, topicID *int64) (*store.Store, error)
	SetEveningTopic(actor *user.User, chatID int64, topicID *int64) (*store.Store, error)
	SetReportTime(actor *user.User, chatID int64, clock string) (*store.Store, error)
}

// NewsService records acknowledgements.
type NewsService interface {
	MarkRead(postID int64, readerName string) error
}

// Bot dispatches telegram updates: slash commands, menu buttons and the
// approval callback surface.
type Bot struct {
	transport notify.Transport
	users     UserService
	requests  RequestService
	schedule  ScheduleService
	stores    StoreService
	news      NewsService
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
}

func New(transport notify.Transport, users UserService, requests RequestService, scheduleSvc ScheduleService, stores StoreService, newsSvc NewsService, logger *slog.Logger, loc *time.Location) *Bot {
	return &Bot{
		transport: transport,
		users:     users,
		requests:  requests,
		schedule:  scheduleSvc,
		stores:    stores,
		news:      newsSvc,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// WithClock overrides the bot clock, for tests.
func (b *Bot) WithClock(now func() time.Time) *Bot {
	b.now = now
	return b
}

func (b *Bot) today() string {
	return b.now().In(b.loc).Format(schedule.DateLayout)
}
