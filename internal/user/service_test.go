package user_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/core/events"
	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/user"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

// Mock repository for testing
type mockUserRepository struct {
	users  map[int64]*user.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[int64]*user.User), nextID: 1}
}

func (m *mockUserRepository) Create(u *user.User) error {
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (m *mockUserRepository) GetByUsername(username string) (*user.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepository) GetByChatID(chatID int64) (*user.User, error) {
	for _, u := range m.users {
		if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockUserRepository) List(storeID *int64) ([]*user.User, error) {
	var out []*user.User
	for id := int64(1); id < m.nextID; id++ {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		if storeID != nil && (u.StoreID == nil || *u.StoreID != *storeID) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepository) ListManagersByStore(storeID int64) ([]*user.User, error) {
	var out []*user.User
	for _, u := range m.users {
		if u.Role == user.RoleStoreManager && u.StoreID != nil && *u.StoreID == storeID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepository) Update(u *user.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) UpdateReminderPref(id int64, pref string) error {
	u, ok := m.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.ReminderPref = pref
	return nil
}

func (m *mockUserRepository) Delete(id int64) error {
	delete(m.users, id)
	return nil
}

// Mock store directory with one known join code
type mockStoreDirectory struct {
	codes map[string]int64
}

func (m *mockStoreDirectory) StoreIDByCode(code string) (int64, error) {
	id, ok := m.codes[code]
	if !ok {
		return 0, internal.ErrStoreNotFound
	}
	return id, nil
}

// Mock notifier recording chat messages
type mockNotifier struct {
	chatMessages   map[int64][]string
	buttonMessages map[int64][]string
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{
		chatMessages:   make(map[int64][]string),
		buttonMessages: make(map[int64][]string),
	}
}

func (m *mockNotifier) NotifyChat(chatID int64, text string) {
	m.chatMessages[chatID] = append(m.chatMessages[chatID], text)
}

func (m *mockNotifier) NotifyChatButtons(chatID int64, text string, buttons [][]notify.Button) (int, error) {
	m.buttonMessages[chatID] = append(m.buttonMessages[chatID], text)
	return len(m.buttonMessages[chatID]), nil
}

// Mock schedule purger
type mockPurger struct {
	purged []string
}

func (m *mockPurger) PurgeUserFuture(name string, from time.Time) error {
	m.purged = append(m.purged, name)
	return nil
}

var _ = Describe("Classify", func() {
	It("covers every role in the closed set", func() {
		Expect(user.Classify(user.RoleAdmin)).To(Equal(user.CapabilityAllowed))
		Expect(user.Classify(user.RoleStoreManager)).To(Equal(user.CapabilityAllowed))
		Expect(user.Classify(user.RoleSeniorEmployee)).To(Equal(user.CapabilityPending))
		Expect(user.Classify(user.RoleEmployee)).To(Equal(user.CapabilityPending))
		Expect(user.Classify(user.RoleRegional)).To(Equal(user.CapabilityForbidden))
		Expect(user.Classify(user.RoleGuest)).To(Equal(user.CapabilityForbidden))
	})

	It("treats unknown roles as unauthorized", func() {
		Expect(user.Classify(user.Role("intern"))).To(Equal(user.CapabilityUnauthorized))
	})
})

var _ = Describe("UserService", func() {
	var (
		svc      *user.Service
		repo     *mockUserRepository
		notifier *mockNotifier
		purger   *mockPurger

		storeID     int64
		managerChat int64
		manager     *user.User
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		storeID = 1
		managerChat = 100
		repo = newMockUserRepository()
		notifier = newMockNotifier()
		purger = &mockPurger{}

		manager = &user.User{
			Username: "manager", Name: "Олена",
			Role: user.RoleStoreManager, Status: user.StatusActive,
			StoreID: &storeID, TelegramChatID: &managerChat,
		}
		Expect(repo.Create(manager)).To(Succeed())

		svc = user.NewService(repo, &mockStoreDirectory{codes: map[string]int64{"CENTER": storeID}},
			notifier, purger, events.NewEventBus(logger), logger, bcrypt.MinCost)
	})

	Describe("Register", func() {
		dto := user.RegisterDTO{
			Username: "newbie", Password: "secret1", Name: "Марія", StoreCode: "CENTER",
		}

		It("creates a pending guest bound to the store", func() {
			created, err := svc.Register(dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Status).To(Equal(user.StatusPending))
			Expect(created.Role).To(Equal(user.RoleGuest))
			Expect(*created.StoreID).To(Equal(storeID))
			Expect(created.PasswordHash).NotTo(Equal("secret1"))
		})

		It("routes the application to the store managers", func() {
			_, err := svc.Register(dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.buttonMessages[managerChat]).To(HaveLen(1))
			Expect(notifier.buttonMessages[managerChat][0]).To(ContainSubstring("Марія"))
		})

		It("refuses a taken username", func() {
			_, err := svc.Register(dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Register(dto)
			Expect(err).To(MatchError(internal.ErrUsernameTaken))
		})

		It("refuses an unknown store code", func() {
			bad := dto
			bad.Username = "other"
			bad.StoreCode = "NOPE"
			_, err := svc.Register(bad)
			Expect(err).To(MatchError(internal.ErrStoreNotFound))
		})
	})

	Describe("ApproveUser", func() {
		var pending *user.User

		BeforeEach(func() {
			created, err := svc.Register(user.RegisterDTO{
				Username: "newbie", Password: "secret1", Name: "Марія", StoreCode: "CENTER",
			})
			Expect(err).NotTo(HaveOccurred())
			pending = created
		})

		It("activates the account as a regular employee", func() {
			approved, err := svc.ApproveUser(manager, pending.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(user.StatusActive))
			Expect(approved.Role).To(Equal(user.RoleEmployee))
		})

		It("tells the applicant when a chat is linked", func() {
			chat := int64(555)
			pending.TelegramChatID = &chat
			Expect(repo.Update(pending)).To(Succeed())

			_, err := svc.ApproveUser(manager, pending.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.chatMessages[chat]).To(ContainElement(ContainSubstring("підтверджено")))
		})

		It("refuses non-managers", func() {
			_, err := svc.ApproveUser(pending, pending.ID)
			Expect(err).To(MatchError(internal.ErrForbiddenRole))
		})

		It("refuses managers of another store", func() {
			otherStore := int64(2)
			outsider := &user.User{Username: "out", Name: "Ігор", Role: user.RoleStoreManager, Status: user.StatusActive, StoreID: &otherStore}
			Expect(repo.Create(outsider)).To(Succeed())

			_, err := svc.ApproveUser(outsider, pending.ID)
			Expect(err).To(MatchError(internal.ErrNotYourStore))
		})
	})

	Describe("RejectUser", func() {
		It("deletes the pending account", func() {
			created, err := svc.Register(user.RegisterDTO{
				Username: "newbie", Password: "secret1", Name: "Марія", StoreCode: "CENTER",
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.RejectUser(manager, created.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.GetByID(created.ID)
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("Update", func() {
		var employee *user.User

		BeforeEach(func() {
			employee = &user.User{
				Username: "emp", Name: "Марія",
				Role: user.RoleEmployee, Status: user.StatusActive, StoreID: &storeID,
			}
			Expect(repo.Create(employee)).To(Succeed())
		})

		It("lets anyone edit their own profile fields", func() {
			phone := "+380501112233"
			updated, err := svc.Update(employee, employee.ID, user.UpdateUserDTO{Phone: &phone})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Phone).To(Equal(phone))
		})

		It("keeps role changes manager-only even on self", func() {
			role := user.RoleStoreManager
			_, err := svc.Update(employee, employee.ID, user.UpdateUserDTO{Role: &role})
			Expect(err).To(MatchError(internal.ErrForbiddenRole))
		})

		It("keeps store moves admin-only", func() {
			other := int64(2)
			_, err := svc.Update(manager, employee.ID, user.UpdateUserDTO{StoreID: &other})
			Expect(err).To(MatchError(internal.ErrForbiddenRole))
		})

		It("purges the future schedule when blocking an account", func() {
			chat := int64(777)
			employee.TelegramChatID = &chat
			Expect(repo.Update(employee)).To(Succeed())

			status := user.StatusBlocked
			_, err := svc.Update(manager, employee.ID, user.UpdateUserDTO{Status: &status})

			Expect(err).NotTo(HaveOccurred())
			Expect(purger.purged).To(Equal([]string{"Марія"}))
			Expect(notifier.chatMessages[chat]).To(ContainElement(ContainSubstring("заблоковано")))
		})

		It("does not purge again when the account is already blocked", func() {
			status := user.StatusBlocked
			_, err := svc.Update(manager, employee.ID, user.UpdateUserDTO{Status: &status})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Update(manager, employee.ID, user.UpdateUserDTO{Status: &status})
			Expect(err).NotTo(HaveOccurred())
			Expect(purger.purged).To(HaveLen(1))
		})
	})

	Describe("SetReminderPref", func() {
		It("accepts relative modes and fixed clocks", func() {
			for _, pref := range []string{"none", "start", "1h", "12h", "19:30"} {
				Expect(svc.SetReminderPref(manager.ID, pref)).To(Succeed())
			}
		})

		It("rejects garbage", func() {
			err := svc.SetReminderPref(manager.ID, "whenever")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LinkByCredentials", func() {
		var account *user.User

		BeforeEach(func() {
			hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
			Expect(err).NotTo(HaveOccurred())
			account = &user.User{
				Username: "emp", Name: "Марія", PasswordHash: string(hash),
				Role: user.RoleEmployee, Status: user.StatusActive, StoreID: &storeID,
			}
			Expect(repo.Create(account)).To(Succeed())
		})

		It("binds the chat on valid credentials", func() {
			linked, err := svc.LinkByCredentials("emp", "secret1", 555)

			Expect(err).NotTo(HaveOccurred())
			Expect(*linked.TelegramChatID).To(Equal(int64(555)))
		})

		It("refuses a wrong password", func() {
			_, err := svc.LinkByCredentials("emp", "wrong", 555)
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("refuses blocked accounts", func() {
			account.Status = user.StatusBlocked
			Expect(repo.Update(account)).To(Succeed())

			_, err := svc.LinkByCredentials("emp", "secret1", 555)
			Expect(err).To(MatchError(internal.ErrUserBlocked))
		})
	})
})
