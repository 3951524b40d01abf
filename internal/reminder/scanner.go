package reminder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/store"
	"github.com/shifterhq/shifter/internal/user"
)

// ScheduleSource feeds the scanner day slices of the schedule.
type ScheduleSource interface {
	ListShiftsByDate(date string, storeID *int64) ([]*schedule.Shift, error)
	ListTasksByDate(date string, storeID *int64) ([]*schedule.Task, error)
}

// UserSource lists accounts the scanner can reach and store rosters for the
// evening report.
type UserSource interface {
	ListLinked() ([]*user.User, error)
	AssignableNames(storeID *int64) ([]string, error)
}

// StoreSource finds stores whose evening report is due at a wall-clock time.
type StoreSource interface {
	ListByReportTime(clock string) ([]*store.Store, error)
}

// Scanner runs the worker's periodic passes: personal shift reminders on the
// hour, per-store evening reports at each store's configured minute, and the
// quiet-hours backlog flush.
type Scanner struct {
	schedule ScheduleSource
	users    UserSource
	stores   StoreSource
	queue    *notify.Queue
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewScanner(scheduleSrc ScheduleSource, users UserSource, stores StoreSource, queue *notify.Queue, logger *slog.Logger, loc *time.Location) *Scanner {
	return &Scanner{
		schedule: scheduleSrc,
		users:    users,
		stores:   stores,
		queue:    queue,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock overrides the scanner clock, for tests.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// ScanAndRemind runs one hourly reminder pass. Each linked account is matched
// against its preference:
//
//	start  shift starting this hour today
//	1h     shift starting next hour today
//	12h    tomorrow's shift, 12 hours before its start
//	HH:MM  tomorrow's shift, at that wall-clock hour
//
// Task reminders go out one hour ahead regardless of the shift preference,
// wrapping past midnight for tasks starting at 00:xx.
func (s *Scanner) ScanAndRemind() {
	now := s.now().In(s.loc)
	hour := now.Hour()
	today := now.Format(schedule.DateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(schedule.DateLayout)

	shiftsToday, err := s.schedule.ListShiftsByDate(today, nil)
	if err != nil {
		s.logger.Error("reminder pass aborted, shift load failed", "date", today, "error", err)
		return
	}
	shiftsTomorrow, err := s.schedule.ListShiftsByDate(tomorrow, nil)
	if err != nil {
		s.logger.Error("reminder pass aborted, shift load failed", "date", tomorrow, "error", err)
		return
	}

	todayByName := indexShifts(shiftsToday)
	tomorrowByName := indexShifts(shiftsTomorrow)

	taskDate, taskHour := today, hour+1
	if taskHour == 24 {
		taskDate, taskHour = tomorrow, 0
	}
	tasks, err := s.schedule.ListTasksByDate(taskDate, nil)
	if err != nil {
		s.logger.Error("reminder pass aborted, task load failed", "date", taskDate, "error", err)
		return
	}
	tasksByName := indexTasks(tasks)

	accounts, err := s.users.ListLinked()
	if err != nil {
		s.logger.Error("reminder pass aborted, account load failed", "error", err)
		return
	}

	sent := 0
	for _, account := range accounts {
		if account.ReminderPref == user.ReminderNone || account.TelegramChatID == nil {
			continue
		}
		chatID := *account.TelegramChatID

		sent += s.remindShifts(account, chatID, hour, todayByName, tomorrowByName)

		// Task reminders go out one hour ahead for everyone, whatever the
		// shift preference says.
		for _, task := range tasksByName[account.Name] {
			if task.StartHour() == taskHour {
				s.queue.Deliver(chatID, fmt.Sprintf("📌 Через годину задача: <b>%s</b> (%s)", task.Title, task.Start), notify.MessageOptions{})
				sent++
			}
		}
	}

	if sent > 0 {
		s.logger.Info("reminder pass finished", "hour", hour, "sent", sent)
	}
}

// remindShifts matches one account's shift reminder preference against the
// current hour and returns how many reminders went out.
func (s *Scanner) remindShifts(account *user.User, chatID int64, hour int, todayByName, tomorrowByName map[string][]*schedule.Shift) int {
	sent := 0
	switch account.ReminderPref {
	case user.ReminderAtStart:
		for _, shift := range todayByName[account.Name] {
			if shift.StartHour() == hour {
				s.queue.Deliver(chatID, fmt.Sprintf("⏰ Ваша зміна починається о <b>%s</b>.", shift.Start), notify.MessageOptions{})
				sent++
			}
		}
	case user.ReminderHourBefore:
		for _, shift := range todayByName[account.Name] {
			if shift.StartHour() == hour+1 {
				s.queue.Deliver(chatID, fmt.Sprintf("⏰ Ваша зміна через годину, о <b>%s</b>.", shift.Start), notify.MessageOptions{})
				sent++
			}
		}
	case user.ReminderHalfDay:
		for _, shift := range tomorrowByName[account.Name] {
			start := shift.StartHour()
			if start >= 0 && (start+12)%24 == hour {
				s.queue.Deliver(chatID, fmt.Sprintf("⏰ Завтра зміна о <b>%s</b>.", shift.Start), notify.MessageOptions{})
				sent++
			}
		}
	default:
		// Fixed HH:MM preferences fire at that hour about the next day's
		// shift, never about one already underway.
		pref, err := time.Parse(schedule.ClockLayout, account.ReminderPref)
		if err != nil || pref.Hour() != hour {
			return 0
		}
		for _, shift := range tomorrowByName[account.Name] {
			if shift.IsWorking() {
				s.queue.Deliver(chatID, fmt.Sprintf("⏰ Завтра зміна о <b>%s</b>.", shift.Start), notify.MessageOptions{})
				sent++
			}
		}
	}
	return sent
}

// SendEveningReports runs one minute pass, sending tomorrow's plan to every
// store whose report time matches the current wall clock.
func (s *Scanner) SendEveningReports() {
	now := s.now().In(s.loc)
	clock := now.Format(schedule.ClockLayout)

	stores, err := s.stores.ListByReportTime(clock)
	if err != nil {
		s.logger.Error("evening report pass aborted, store load failed", "clock", clock, "error", err)
		return
	}
	if len(stores) == 0 {
		return
	}

	tomorrow := now.AddDate(0, 0, 1).Format(schedule.DateLayout)
	for _, st := range stores {
		if st.ChatID == nil {
			continue
		}

		shifts, err := s.schedule.ListShiftsByDate(tomorrow, &st.ID)
		if err != nil {
			s.logger.Error("evening report skipped, shift load failed", "store", st.Code, "error", err)
			continue
		}
		tasks, err := s.schedule.ListTasksByDate(tomorrow, &st.ID)
		if err != nil {
			s.logger.Error("evening report skipped, task load failed", "store", st.Code, "error", err)
			continue
		}
		roster, err := s.users.AssignableNames(&st.ID)
		if err != nil {
			s.logger.Error("evening report skipped, roster load failed", "store", st.Code, "error", err)
			continue
		}

		s.queue.Deliver(*st.ChatID, eveningReport(tomorrow, shifts, tasks, roster),
			notify.MessageOptions{TopicID: st.EveningTopicID})
		s.logger.Info("evening report sent", "store", st.Code, "date", tomorrow)
	}
}

// FlushDueNotifications drains the quiet-hours backlog once the window is
// open.
func (s *Scanner) FlushDueNotifications() {
	s.queue.FlushDue()
}

// eveningReport renders tomorrow's plan for one store: who works, who is
// away, what tasks are due, and who has a day off.
func eveningReport(date string, shifts []*schedule.Shift, tasks []*schedule.Task, roster []string) string {
	var working, away []*schedule.Shift
	scheduled := make(map[string]bool, len(shifts))
	for _, shift := range shifts {
		scheduled[shift.Name] = true
		if shift.IsWorking() {
			working = append(working, shift)
		} else {
			away = append(away, shift)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 <b>План на %s</b>\n", date)

	sb.WriteString("\n👥 <b>На зміні:</b>\n")
	if len(working) == 0 {
		sb.WriteString("немає змін у графіку\n")
	}
	for _, shift := range working {
		fmt.Fprintf(&sb, "%s: %s–%s\n", shift.Name, shift.Start, shift.End)
	}

	if len(away) > 0 {
		sb.WriteString("\n🏖 <b>Відсутні:</b>\n")
		for _, shift := range away {
			fmt.Fprintf(&sb, "%s: %s\n", shift.Name, shift.Start)
		}
	}

	if len(tasks) > 0 {
		sb.WriteString("\n📌 <b>Задачі:</b>\n")
		for _, task := range tasks {
			if task.AllDay || task.Start == "" {
				fmt.Fprintf(&sb, "%s: %s\n", task.Name, task.Title)
			} else {
				fmt.Fprintf(&sb, "%s: %s (%s)\n", task.Name, task.Title, task.Start)
			}
		}
	}

	var daysOff []string
	for _, name := range roster {
		if !scheduled[name] {
			daysOff = append(daysOff, name)
		}
	}
	if len(daysOff) > 0 {
		sb.WriteString("\n🛋 <b>Вихідні:</b> ")
		sb.WriteString(strings.Join(daysOff, ", "))
		sb.WriteString("\n")
	}

	return sb.String()
}

func indexShifts(shifts []*schedule.Shift) map[string][]*schedule.Shift {
	byName := make(map[string][]*schedule.Shift, len(shifts))
	for _, shift := range shifts {
		byName[shift.Name] = append(byName[shift.Name], shift)
	}
	return byName
}

func indexTasks(tasks []*schedule.Task) map[string][]*schedule.Task {
	byName := make(map[string][]*schedule.Task, len(tasks))
	for _, task := range tasks {
		byName[task.Name] = append(byName[task.Name], task)
	}
	return byName
}
