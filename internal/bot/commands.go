package bot

import (
	"fmt"
	"strings"

	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/user"
)

// HandleMessage dispatches slash commands. topicID is the forum topic the
// message arrived in, when the chat has topics.
func (b *Bot) HandleMessage(fromChatID, chatID int64, topicID *int64, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	switch cmd {
	case "/start":
		b.cmdStart(fromChatID)
	case "/my_id":
		b.send(chatID, topicID, fmt.Sprintf("Ваш ID: <code>%d</code>", fromChatID))
	case "/login":
		b.cmdLogin(fromChatID, chatID, args)
	case "/link_store":
		b.cmdLinkStore(fromChatID, chatID, args)
	case "/set_news":
		b.cmdSetTopic(fromChatID, chatID, topicID, true)
	case "/set_evening":
		b.cmdSetTopic(fromChatID, chatID, topicID, false)
	case "/set_time":
		b.cmdSetTime(fromChatID, chatID, args)
	}
}

func (b *Bot) cmdStart(chatID int64) {
	actor, err := b.users.GetByChatID(chatID)
	if err != nil {
		b.send(chatID, nil,
			"👋 Вітаю! Це бот графіку змін.\n"+
				"Щоб прив'язати акаунт, надішліть:\n<code>/login логін пароль</code>")
		return
	}
	b.sendMenu(chatID, actor)
}

func (b *Bot) cmdLogin(fromChatID, chatID int64, args []string) {
	if len(args) != 2 {
		b.send(chatID, nil, "Формат: <code>/login логін пароль</code>")
		return
	}

	actor, err := b.users.LinkByCredentials(args[0], args[1], fromChatID)
	if err != nil {
		b.logger.Warn("bot login failed", "chat_id", fromChatID, "error", err)
		b.send(chatID, nil, "❌ Невірний логін або пароль.")
		return
	}

	b.send(chatID, nil, fmt.Sprintf("✅ Акаунт <b>%s</b> прив'язано.", actor.Name))
	b.sendMenu(chatID, actor)
}

func (b *Bot) cmdLinkStore(fromChatID, chatID int64, args []string) {
	actor, err := b.users.GetByChatID(fromChatID)
	if err != nil {
		b.send(chatID, nil, "Спершу прив'яжіть акаунт: /login")
		return
	}
	if len(args) != 1 {
		b.send(chatID, nil, "Формат: <code>/link_store КОД</code>")
		return
	}

	st, err := b.stores.LinkChat(actor, args[0], chatID)
	if err != nil {
		b.send(chatID, nil, "❌ Не вдалося прив'язати чат до магазину.")
		return
	}
	b.send(chatID, nil, fmt.Sprintf("✅ Чат прив'язано до магазину <b>%s</b>.", st.Name))
}

func (b *Bot) cmdSetTopic(fromChatID, chatID int64, topicID *int64, newsTopic bool) {
	actor, err := b.users.GetByChatID(fromChatID)
	if err != nil {
		b.send(chatID, topicID, "Спершу прив'яжіть акаунт: /login")
		return
	}

	var label string
	if newsTopic {
		_, err = b.stores.SetNewsTopic(actor, chatID, topicID)
		label = "новин"
	} else {
		_, err = b.stores.SetEveningTopic(actor, chatID, topicID)
		label = "вечірнього звіту"
	}
	if err != nil {
		b.send(chatID, topicID, "❌ Не вдалося зберегти. Чат прив'язано до магазину?")
		return
	}
	b.send(chatID, topicID, fmt.Sprintf("✅ Тему для %s збережено.", label))
}

func (b *Bot) cmdSetTime(fromChatID, chatID int64, args []string) {
	actor, err := b.users.GetByChatID(fromChatID)
	if err != nil {
		b.send(chatID, nil, "Спершу прив'яжіть акаунт: /login")
		return
	}
	if len(args) != 1 {
		b.send(chatID, nil, "Формат: <code>/set_time ГГ:ХХ</code>")
		return
	}

	st, err := b.stores.SetReportTime(actor, chatID, args[0])
	if err != nil {
		b.send(chatID, nil, "❌ Не вдалося зберегти час звіту.")
		return
	}
	b.send(chatID, nil, fmt.Sprintf("✅ Вечірній звіт о <b>%s</b>.", st.ReportTime))
}

func (b *Bot) sendMenu(chatID int64, actor *user.User) {
	if _, err := b.transport.SendMessage(chatID, menuText(actor),
		notify.MessageOptions{Keyboard: menuKeyboard(actor)}); err != nil {
		b.logger.Error("menu send failed", "chat_id", chatID, "error", err)
	}
}

func menuText(actor *user.User) string {
	return fmt.Sprintf("📋 Меню\nПривіт, <b>%s</b>!", actor.Name)
}

func menuKeyboard(actor *user.User) [][]notify.Button {
	rows := [][]notify.Button{
		{
			{Label: "📅 Мої зміни", Action: "menu_shifts"},
			{Label: "🏖 Мої вихідні", Action: "menu_daysoff"},
		},
		{
			{Label: "👥 Зараз на зміні", Action: "menu_onduty"},
			{Label: "⚙️ Налаштування", Action: "menu_settings"},
		},
	}
	if actor.IsManager() {
		rows = append(rows, []notify.Button{
			{Label: "✅ Схвалити всі запити", Action: "approve_all_requests"},
		})
	}
	return rows
}

func (b *Bot) onMyShifts(cb *callbackContext) {
	shifts, err := b.schedule.ShiftsForName(cb.actor.Name, b.today())
	if err != nil {
		b.answer(cb.callbackID, "Помилка завантаження", true)
		return
	}

	var sb strings.Builder
	sb.WriteString("📅 <b>Мої зміни</b>\n")
	count := 0
	for _, s := range shifts {
		if !s.IsWorking() {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s–%s\n", s.Date, s.Start, s.End)
		count++
	}
	if count == 0 {
		sb.WriteString("Немає запланованих змін.")
	}
	b.editWithBack(cb, sb.String())
}

func (b *Bot) onMyDaysOff(cb *callbackContext) {
	shifts, err := b.schedule.ShiftsForName(cb.actor.Name, b.today())
	if err != nil {
		b.answer(cb.callbackID, "Помилка завантаження", true)
		return
	}

	scheduled := make(map[string]bool, len(shifts))
	statuses := make(map[string]string)
	for _, s := range shifts {
		scheduled[s.Date] = true
		if s.IsVacation() || s.IsSickLeave() {
			statuses[s.Date] = s.Start
		}
	}

	var sb strings.Builder
	sb.WriteString("🏖 <b>Мої вихідні</b> (14 днів)\n")
	day := b.now().In(b.loc)
	for i := 0; i < 14; i++ {
		date := day.AddDate(0, 0, i).Format(schedule.DateLayout)
		if status, ok := statuses[date]; ok {
			fmt.Fprintf(&sb, "%s: %s\n", date, status)
		} else if !scheduled[date] {
			fmt.Fprintf(&sb, "%s: вихідний\n", date)
		}
	}
	b.editWithBack(cb, sb.String())
}

func (b *Bot) onOnDuty(cb *callbackContext) {
	shifts, err := b.schedule.OnDuty(b.today(), cb.actor.StoreID)
	if err != nil {
		b.answer(cb.callbackID, "Помилка завантаження", true)
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 <b>Сьогодні на зміні</b>\n")
	if len(shifts) == 0 {
		sb.WriteString("Нікого немає в графіку.")
	}
	for _, s := range shifts {
		fmt.Fprintf(&sb, "%s: %s–%s\n", s.Name, s.Start, s.End)
	}
	b.editWithBack(cb, sb.String())
}

func (b *Bot) editWithBack(cb *callbackContext, text string) {
	if err := b.transport.EditMessageText(cb.chatID, cb.messageID, text,
		notify.MessageOptions{Keyboard: [][]notify.Button{{{Label: "⬅️ Назад", Action: "menu_back"}}}}); err != nil {
		b.logger.Error("menu view edit failed", "chat_id", cb.chatID, "error", err)
	}
	b.answer(cb.callbackID, "", false)
}

func (b *Bot) send(chatID int64, topicID *int64, text string) {
	if _, err := b.transport.SendMessage(chatID, text, notify.MessageOptions{TopicID: topicID}); err != nil {
		b.logger.Error("bot send failed", "chat_id", chatID, "error", err)
	}
}
