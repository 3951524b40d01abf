package bot_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shifterhq/shifter/internal/bot"
	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/request"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/store"
	"github.com/shifterhq/shifter/internal/user"
)

func TestBot(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Bot Suite")
}

type edit struct {
	chatID    int64
	messageID int
	text      string
}

type answer struct {
	text  string
	alert bool
}

// Mock transport recording every outgoing interaction
type mockTransport struct {
	sent     []string
	edits    []edit
	answers  []answer
	editFail error
}

func (m *mockTransport) SendMessage(chatID int64, text string, opts notify.MessageOptions) (int, error) {
	m.sent = append(m.sent, text)
	return len(m.sent), nil
}

func (m *mockTransport) EditMessageText(chatID int64, messageID int, text string, opts notify.MessageOptions) error {
	if m.editFail != nil {
		return m.editFail
	}
	m.edits = append(m.edits, edit{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (m *mockTransport) AnswerCallback(callbackID, text string, alert bool) error {
	m.answers = append(m.answers, answer{text: text, alert: alert})
	return nil
}

// Mock user service keyed by chat id
type mockUserService struct {
	byChat    map[int64]*user.User
	approved  []int64
	rejected  []int64
	prefs     map[int64]string
	prefError error
}

func (m *mockUserService) GetByChatID(chatID int64) (*user.User, error) {
	u, ok := m.byChat[chatID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (m *mockUserService) ApproveUser(actor *user.User, userID int64) (*user.User, error) {
	m.approved = append(m.approved, userID)
	return &user.User{ID: userID}, nil
}

func (m *mockUserService) RejectUser(actor *user.User, userID int64) (*user.User, error) {
	m.rejected = append(m.rejected, userID)
	return &user.User{ID: userID}, nil
}

func (m *mockUserService) SetReminderPref(userID int64, pref string) error {
	if m.prefError != nil {
		return m.prefError
	}
	m.prefs[userID] = pref
	return nil
}

func (m *mockUserService) LinkByCredentials(username, password string, chatID int64) (*user.User, error) {
	return nil, errors.New("not used")
}

// Mock request workflow with scriptable results
type mockRequestService struct {
	resolveResult request.Result
	resolveError  error
	resolved      []int64
	resolvedAll   bool
	transferIDs   []int64
}

func (m *mockRequestService) Resolve(requestID int64, approve bool, approver *user.User) (request.Result, error) {
	m.resolved = append(m.resolved, requestID)
	return m.resolveResult, m.resolveError
}

func (m *mockRequestService) ResolveAll(approver *user.User) (request.Result, error) {
	m.resolvedAll = true
	return request.Result{Success: true, Message: "Схвалено запитів: 2"}, nil
}

func (m *mockRequestService) RespondTransfer(requestID int64, approve bool, approver *user.User) (request.Result, error) {
	m.transferIDs = append(m.transferIDs, requestID)
	return m.resolveResult, m.resolveError
}

type mockScheduleService struct{}

func (m *mockScheduleService) ShiftsForName(name, fromDate string) ([]*schedule.Shift, error) {
	return nil, nil
}

func (m *mockScheduleService) OnDuty(date string, storeID *int64) ([]*schedule.Shift, error) {
	return nil, nil
}

type mockStoreService struct{}

func (m *mockStoreService) LinkChat(actor *user.User, code string, chatID int64) (*store.Store, error) {
	return nil, errors.New("not used")
}

func (m *mockStoreService) SetNewsTopic(actor *user.User, chatID int64, topicID *int64) (*store.Store, error) {
	return nil, errors.New("not used")
}

func (m *mockStoreService) SetEveningTopic(actor *user.User, chatID int64, topicID *int64) (*store.Store, error) {
	return nil, errors.New("not used")
}

func (m *mockStoreService) SetReportTime(actor *user.User, chatID int64, clock string) (*store.Store, error) {
	return nil, errors.New("not used")
}

type mockNewsService struct {
	read      []int64
	readError error
}

func (m *mockNewsService) MarkRead(postID int64, readerName string) error {
	if m.readError != nil {
		return m.readError
	}
	m.read = append(m.read, postID)
	return nil
}

var _ = Describe("Bot callbacks", func() {
	var (
		transport *mockTransport
		users     *mockUserService
		requests  *mockRequestService
		news      *mockNewsService
		b         *bot.Bot

		managerChat  int64
		employeeChat int64
	)

	kyiv, _ := time.LoadLocation("Europe/Kyiv")

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		managerChat = 100
		employeeChat = 200
		storeID := int64(1)

		transport = &mockTransport{}
		users = &mockUserService{
			byChat: map[int64]*user.User{
				managerChat:  {ID: 1, Name: "Олена", Role: user.RoleStoreManager, Status: user.StatusActive, StoreID: &storeID},
				employeeChat: {ID: 2, Name: "Марія", Role: user.RoleEmployee, Status: user.StatusActive, StoreID: &storeID, ReminderPref: "20:00"},
			},
			prefs: make(map[int64]string),
		}
		requests = &mockRequestService{resolveResult: request.Result{Success: true}}
		news = &mockNewsService{}

		b = bot.New(transport, users, requests, &mockScheduleService{}, &mockStoreService{}, news, logger, kyiv)
	})

	Describe("dispatch", func() {
		It("asks unknown chats to log in", func() {
			b.HandleCallback("cb1", "approve_req_5", 999, 999, 1, "text")

			Expect(transport.answers).To(HaveLen(1))
			Expect(transport.answers[0].text).To(ContainSubstring("/login"))
			Expect(transport.answers[0].alert).To(BeTrue())
			Expect(requests.resolved).To(BeEmpty())
		})

		It("answers unknown callbacks silently", func() {
			b.HandleCallback("cb1", "does_not_exist", managerChat, managerChat, 1, "")

			Expect(transport.answers).To(HaveLen(1))
			Expect(transport.answers[0].text).To(BeEmpty())
			Expect(transport.answers[0].alert).To(BeFalse())
		})

		It("gates approval buttons behind the manager role", func() {
			b.HandleCallback("cb1", "approve_req_5", employeeChat, managerChat, 1, "text")

			Expect(transport.answers).To(HaveLen(1))
			Expect(transport.answers[0].text).To(Equal("⛔️ Тільки для SM"))
			Expect(transport.answers[0].alert).To(BeTrue())
			Expect(requests.resolved).To(BeEmpty())
		})
	})

	Describe("request resolution", func() {
		It("rewrites the message with the verdict and keeps the original text", func() {
			b.HandleCallback("cb1", "approve_req_5", managerChat, managerChat, 7, "📅 Запит на зміну")

			Expect(requests.resolved).To(Equal([]int64{5}))
			Expect(transport.edits).To(HaveLen(1))
			Expect(transport.edits[0].messageID).To(Equal(7))
			Expect(transport.edits[0].text).To(ContainSubstring("✅ Схвалено (SM: Олена)"))
			Expect(transport.edits[0].text).To(ContainSubstring("📅 Запит на зміну"))
		})

		It("shows the rejection verdict", func() {
			b.HandleCallback("cb1", "reject_req_5", managerChat, managerChat, 7, "текст")

			Expect(transport.edits[0].text).To(ContainSubstring("❌ Відхилено (SM: Олена)"))
		})

		It("marks already resolved requests as stale", func() {
			requests.resolveResult = request.Result{Success: false}

			b.HandleCallback("cb1", "approve_req_5", managerChat, managerChat, 7, "текст")

			Expect(transport.edits).To(HaveLen(1))
			Expect(transport.edits[0].text).To(Equal("⚠️ Запит вже оброблено."))
		})

		It("alerts on workflow errors", func() {
			requests.resolveError = errors.New("db down")

			b.HandleCallback("cb1", "approve_req_5", managerChat, managerChat, 7, "текст")

			Expect(transport.edits).To(BeEmpty())
			Expect(transport.answers[0].alert).To(BeTrue())
		})

		It("approves the whole backlog in one press", func() {
			b.HandleCallback("cb1", "approve_all_requests", managerChat, managerChat, 7, "")

			Expect(requests.resolvedAll).To(BeTrue())
			Expect(transport.edits[0].text).To(ContainSubstring("Схвалено запитів: 2"))
			Expect(transport.edits[0].text).To(ContainSubstring("Олена"))
		})
	})

	Describe("registration verdicts", func() {
		It("approves the applicant and stamps the manager", func() {
			b.HandleCallback("cb1", "approve_user_9", managerChat, managerChat, 3, "👤 Нова заявка")

			Expect(users.approved).To(Equal([]int64{9}))
			Expect(transport.edits[0].text).To(ContainSubstring("✅ Прийнято (SM: Олена)"))
		})

		It("ignores malformed applicant ids", func() {
			b.HandleCallback("cb1", "approve_user_abc", managerChat, managerChat, 3, "")

			Expect(users.approved).To(BeEmpty())
			Expect(transport.edits).To(BeEmpty())
		})
	})

	Describe("reminder settings", func() {
		It("stores the chosen preference and confirms", func() {
			b.HandleCallback("cb1", "set_remind_1h", employeeChat, employeeChat, 4, "")

			Expect(users.prefs[int64(2)]).To(Equal("1h"))
			Expect(transport.edits[0].text).To(ContainSubstring("за 1 годину"))
			Expect(transport.answers[0].text).To(Equal("Збережено"))
		})

		It("alerts on an unknown preference", func() {
			users.prefError = errors.New("unknown reminder preference")

			b.HandleCallback("cb1", "set_remind_soon", employeeChat, employeeChat, 4, "")

			Expect(transport.edits).To(BeEmpty())
			Expect(transport.answers[0].alert).To(BeTrue())
		})
	})

	Describe("news acknowledgement", func() {
		It("records the reader", func() {
			b.HandleCallback("cb1", "read_news_12", employeeChat, managerChat, 4, "")

			Expect(news.read).To(Equal([]int64{12}))
			Expect(transport.answers[0].text).To(ContainSubstring("Дякую"))
		})

		It("alerts when the post is gone", func() {
			news.readError = errors.New("news not found")

			b.HandleCallback("cb1", "read_news_12", employeeChat, managerChat, 4, "")

			Expect(transport.answers[0].alert).To(BeTrue())
		})
	})
})
