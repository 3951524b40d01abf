package reminder_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/reminder"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/store"
	"github.com/shifterhq/shifter/internal/user"
)

func TestReminder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reminder Suite")
}

type sentMessage struct {
	chatID int64
	text   string
	opts   notify.MessageOptions
}

type mockTransport struct {
	sent []sentMessage
}

func (m *mockTransport) SendMessage(chatID int64, text string, opts notify.MessageOptions) (int, error) {
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return len(m.sent), nil
}

func (m *mockTransport) EditMessageText(chatID int64, messageID int, text string, opts notify.MessageOptions) error {
	return nil
}

func (m *mockTransport) AnswerCallback(callbackID, text string, alert bool) error {
	return nil
}

func (m *mockTransport) textsFor(chatID int64) []string {
	var out []string
	for _, s := range m.sent {
		if s.chatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

type mockPendingRepository struct {
	rows []*notify.PendingNotification
}

func (m *mockPendingRepository) Create(n *notify.PendingNotification) error {
	n.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, n)
	return nil
}

func (m *mockPendingRepository) ListOldestFirst() ([]*notify.PendingNotification, error) {
	out := make([]*notify.PendingNotification, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *mockPendingRepository) Delete(id int64) error {
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Fake schedule keyed by (date, store-insensitive); store filters only apply
// to evening report lookups where the fake stores per-store slices.
type fakeScheduleSource struct {
	shifts map[string][]*schedule.Shift
	tasks  map[string][]*schedule.Task
}

func (f *fakeScheduleSource) ListShiftsByDate(date string, storeID *int64) ([]*schedule.Shift, error) {
	return f.shifts[date], nil
}

func (f *fakeScheduleSource) ListTasksByDate(date string, storeID *int64) ([]*schedule.Task, error) {
	return f.tasks[date], nil
}

type fakeUserSource struct {
	accounts []*user.User
	roster   []string
}

func (f *fakeUserSource) ListLinked() ([]*user.User, error) {
	return f.accounts, nil
}

func (f *fakeUserSource) AssignableNames(storeID *int64) ([]string, error) {
	return f.roster, nil
}

type fakeStoreSource struct {
	byClock map[string][]*store.Store
}

func (f *fakeStoreSource) ListByReportTime(clock string) ([]*store.Store, error) {
	return f.byClock[clock], nil
}

var _ = Describe("Scanner", func() {
	var (
		transport *mockTransport
		pending   *mockPendingRepository
		schedules *fakeScheduleSource
		users     *fakeUserSource
		stores    *fakeStoreSource
		scanner   *reminder.Scanner
		clock     time.Time
	)

	kyiv, _ := time.LoadLocation("Europe/Kyiv")

	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, kyiv)
	}

	linked := func(name, pref string, chatID int64) *user.User {
		return &user.User{Name: name, ReminderPref: pref, TelegramChatID: &chatID, Status: user.StatusActive}
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		transport = &mockTransport{}
		schedules = &fakeScheduleSource{
			shifts: make(map[string][]*schedule.Shift),
			tasks:  make(map[string][]*schedule.Task),
		}
		users = &fakeUserSource{}
		stores = &fakeStoreSource{byClock: make(map[string][]*store.Store)}

		pending = &mockPendingRepository{}
		queue := notify.NewQueue(transport, pending, logger, kyiv, 22, 8, 0).
			WithClock(func() time.Time { return clock })
		scanner = reminder.NewScanner(schedules, users, stores, queue, logger, kyiv).
			WithClock(func() time.Time { return clock })
	})

	Describe("ScanAndRemind", func() {
		BeforeEach(func() {
			clock = at(8, 0)
			schedules.shifts["2026-03-10"] = []*schedule.Shift{
				{Date: "2026-03-10", Name: "Марія", Start: "08:00", End: "17:00"},
				{Date: "2026-03-10", Name: "Андрій", Start: "09:00", End: "18:00"},
			}
			schedules.shifts["2026-03-11"] = []*schedule.Shift{
				{Date: "2026-03-11", Name: "Олег", Start: "20:00", End: "23:00"},
				{Date: "2026-03-11", Name: "Ніна", Start: "10:00", End: "19:00"},
			}
		})

		It("reminds at shift start for the start preference", func() {
			users.accounts = []*user.User{linked("Марія", user.ReminderAtStart, 10)}

			scanner.ScanAndRemind()

			Expect(transport.textsFor(10)).To(ConsistOf(
				ContainSubstring("зміна починається о <b>08:00</b>")))
		})

		It("reminds an hour ahead for the 1h preference", func() {
			users.accounts = []*user.User{linked("Андрій", user.ReminderHourBefore, 20)}

			scanner.ScanAndRemind()

			Expect(transport.textsFor(20)).To(ConsistOf(
				ContainSubstring("через годину, о <b>09:00</b>")))
		})

		It("reminds 12 hours before tomorrow's shift", func() {
			users.accounts = []*user.User{linked("Олег", user.ReminderHalfDay, 30)}

			scanner.ScanAndRemind()

			Expect(transport.textsFor(30)).To(ConsistOf(
				ContainSubstring("Завтра зміна о <b>20:00</b>")))
		})

		It("fires fixed clock preferences only at their hour", func() {
			users.accounts = []*user.User{linked("Ніна", "20:00", 40)}

			scanner.ScanAndRemind()
			Expect(transport.sent).To(BeEmpty())

			clock = at(20, 0)
			scanner.ScanAndRemind()
			Expect(transport.textsFor(40)).To(ConsistOf(
				ContainSubstring("Завтра зміна о <b>10:00</b>")))
		})

		It("skips accounts with reminders off", func() {
			users.accounts = []*user.User{linked("Марія", user.ReminderNone, 10)}

			scanner.ScanAndRemind()

			Expect(transport.sent).To(BeEmpty())
		})

		It("does not remind about vacation rows", func() {
			schedules.shifts["2026-03-11"] = []*schedule.Shift{
				{Date: "2026-03-11", Name: "Ніна", Start: schedule.StatusVacation},
			}
			clock = at(20, 0)
			users.accounts = []*user.User{linked("Ніна", "20:00", 40)}

			scanner.ScanAndRemind()

			Expect(transport.sent).To(BeEmpty())
		})

		It("reminds about tasks one hour ahead regardless of the shift preference", func() {
			schedules.tasks["2026-03-10"] = []*schedule.Task{
				{Date: "2026-03-10", Name: "Марія", Title: "Інвентаризація", Start: "09:00"},
			}
			users.accounts = []*user.User{linked("Марія", user.ReminderNone, 10), linked("Марія", "12:00", 11)}

			scanner.ScanAndRemind()

			// Reminders off silences shifts and tasks alike.
			Expect(transport.textsFor(10)).To(BeEmpty())
			Expect(transport.textsFor(11)).To(ConsistOf(
				ContainSubstring("Через годину задача: <b>Інвентаризація</b>")))
		})

		It("wraps task reminders past midnight into the quiet-hours backlog", func() {
			clock = time.Date(2026, 3, 10, 23, 0, 0, 0, kyiv)
			schedules.tasks["2026-03-11"] = []*schedule.Task{
				{Date: "2026-03-11", Name: "Марія", Title: "Приймання", Start: "00:30"},
			}
			users.accounts = []*user.User{linked("Марія", "12:00", 10)}

			scanner.ScanAndRemind()

			// 23:00 is inside the quiet window, so the reminder is parked.
			Expect(transport.sent).To(BeEmpty())
			Expect(pending.rows).To(HaveLen(1))
			Expect(pending.rows[0].Text).To(ContainSubstring("Приймання"))
		})
	})

	Describe("SendEveningReports", func() {
		var (
			groupChat int64
			topicID   int64
		)

		BeforeEach(func() {
			clock = at(21, 0)
			groupChat = -100500
			topicID = 7
			stores.byClock["21:00"] = []*store.Store{{
				ID: 1, Code: "CENTER", ChatID: &groupChat, EveningTopicID: &topicID, ReportTime: "21:00",
			}}
			schedules.shifts["2026-03-11"] = []*schedule.Shift{
				{Date: "2026-03-11", Name: "Марія", Start: "09:00", End: "18:00"},
				{Date: "2026-03-11", Name: "Олег", Start: schedule.StatusVacation},
			}
			schedules.tasks["2026-03-11"] = []*schedule.Task{
				{Date: "2026-03-11", Name: "Ніна", Title: "Інвентаризація", Start: "10:00"},
			}
			users.roster = []string{"Марія", "Олег", "Ніна", "Ірина"}
		})

		It("sends tomorrow's plan into the store topic", func() {
			scanner.SendEveningReports()

			Expect(transport.sent).To(HaveLen(1))
			report := transport.sent[0]
			Expect(report.chatID).To(Equal(groupChat))
			Expect(report.opts.TopicID).To(Equal(&topicID))
			Expect(report.text).To(ContainSubstring("План на 2026-03-11"))
			Expect(report.text).To(ContainSubstring("Марія: 09:00–18:00"))
			Expect(report.text).To(ContainSubstring("Відсутні:"))
			Expect(report.text).To(ContainSubstring("Олег: Відпустка"))
			Expect(report.text).To(ContainSubstring("Ніна: Інвентаризація (10:00)"))
			Expect(report.text).To(ContainSubstring("Вихідні:</b> Ніна, Ірина"))
		})

		It("does nothing when no store reports at this minute", func() {
			clock = at(21, 1)

			scanner.SendEveningReports()

			Expect(transport.sent).To(BeEmpty())
		})

		It("skips stores without a bound group chat", func() {
			stores.byClock["21:00"] = []*store.Store{{ID: 1, Code: "CENTER", ReportTime: "21:00"}}

			scanner.SendEveningReports()

			Expect(transport.sent).To(BeEmpty())
		})
	})
})
