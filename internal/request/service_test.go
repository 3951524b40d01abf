package request_test

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/core/events"
	"github.com/shifterhq/shifter/internal/notify"
	"github.com/shifterhq/shifter/internal/request"
	"github.com/shifterhq/shifter/internal/schedule"
	"github.com/shifterhq/shifter/internal/store"
	"github.com/shifterhq/shifter/internal/user"
)

func TestRequestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Request Workflow Suite")
}

// Mock repository for testing
type mockRequestRepository struct {
	requests map[int64]*request.Request
	nextID   int64
}

func newMockRequestRepository() *mockRequestRepository {
	return &mockRequestRepository{requests: make(map[int64]*request.Request), nextID: 1}
}

func (m *mockRequestRepository) Create(req *request.Request) error {
	req.ID = m.nextID
	m.nextID++
	req.CreatedAt = time.Now()
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestRepository) GetByID(id int64) (*request.Request, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, errors.New("request not found")
	}
	return req, nil
}

func (m *mockRequestRepository) List(storeID *int64) ([]*request.Request, error) {
	var out []*request.Request
	for id := int64(1); id < m.nextID; id++ {
		req, ok := m.requests[id]
		if !ok {
			continue
		}
		if storeID != nil && (req.StoreID == nil || *req.StoreID != *storeID) {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (m *mockRequestRepository) FindTransfer(createdBy string, targetStoreID int64) (*request.Request, error) {
	for _, req := range m.requests {
		if req.Kind == request.KindTransfer && req.CreatedBy == createdBy &&
			req.StoreID != nil && *req.StoreID == targetStoreID {
			return req, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRequestRepository) Delete(id int64) error {
	delete(m.requests, id)
	return nil
}

// Mock scheduler recording applied mutations
type mockScheduler struct {
	shifts      map[int64]*schedule.Shift
	tasks       map[int64]*schedule.Task
	shiftWrites []string
	taskWrites  []string
	nextID      int64
	replaceErr  error
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{
		shifts: make(map[int64]*schedule.Shift),
		tasks:  make(map[int64]*schedule.Task),
		nextID: 1,
	}
}

func (m *mockScheduler) ReplaceShift(date, name, start, end string, storeID *int64) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.shifts[m.nextID] = &schedule.Shift{ID: m.nextID, Date: date, Name: name, Start: start, End: end, StoreID: storeID}
	m.nextID++
	m.shiftWrites = append(m.shiftWrites, fmt.Sprintf("%s/%s %s-%s", date, name, start, end))
	return nil
}

func (m *mockScheduler) DeleteShiftByID(id int64) (*schedule.Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return nil, internal.ErrShiftNotFound
	}
	delete(m.shifts, id)
	return s, nil
}

func (m *mockScheduler) GetShift(id int64) (*schedule.Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return nil, internal.ErrShiftNotFound
	}
	return s, nil
}

func (m *mockScheduler) CreateTask(date, name, title, description, start string, allDay bool, storeID *int64) error {
	m.tasks[m.nextID] = &schedule.Task{ID: m.nextID, Date: date, Name: name, Title: title}
	m.nextID++
	m.taskWrites = append(m.taskWrites, fmt.Sprintf("%s/%s %s", date, name, title))
	return nil
}

func (m *mockScheduler) DeleteTaskByID(id int64) (*schedule.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, internal.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return t, nil
}

// Mock roster
type mockRoster struct {
	managers       []*user.User
	names          []string
	moves          []int64
	storesByName   map[string]int64
	managerQueries []int64
}

func (m *mockRoster) ListManagersByStore(storeID int64) ([]*user.User, error) {
	m.managerQueries = append(m.managerQueries, storeID)
	return m.managers, nil
}

func (m *mockRoster) AssignableNames(storeID *int64) ([]string, error) {
	return m.names, nil
}

func (m *mockRoster) StoreIDByName(name string) (*int64, error) {
	id, ok := m.storesByName[name]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (m *mockRoster) MoveToStore(userID, storeID int64) error {
	m.moves = append(m.moves, userID)
	return nil
}

// Mock store finder
type mockStoreFinder struct {
	stores map[string]*store.Store
}

func (m *mockStoreFinder) GetByCode(code string) (*store.Store, error) {
	st, ok := m.stores[code]
	if !ok {
		return nil, internal.ErrStoreNotFound
	}
	return st, nil
}

// Mock notifier recording personal and button messages
type mockNotifier struct {
	userMessages   map[string][]string
	buttonMessages []string
	buttonChats    []int64
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{userMessages: make(map[string][]string)}
}

func (m *mockNotifier) NotifyUser(name, text string) {
	m.userMessages[name] = append(m.userMessages[name], text)
}

func (m *mockNotifier) NotifyChatButtons(chatID int64, text string, buttons [][]notify.Button) (int, error) {
	m.buttonChats = append(m.buttonChats, chatID)
	m.buttonMessages = append(m.buttonMessages, text)
	return len(m.buttonMessages), nil
}

var _ = Describe("RequestService", func() {
	var (
		svc      *request.Service
		repo     *mockRequestRepository
		sched    *mockScheduler
		roster   *mockRoster
		finder   *mockStoreFinder
		notifier *mockNotifier

		storeID    int64
		manager    *user.User
		employee   *user.User
		regional   *user.User
		managerTwo *user.User
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		storeID = 1
		chatID := int64(100)
		manager = &user.User{ID: 1, Name: "Олена", Role: user.RoleStoreManager, Status: user.StatusActive, StoreID: &storeID, TelegramChatID: &chatID}
		employee = &user.User{ID: 2, Name: "Марія", Role: user.RoleEmployee, Status: user.StatusActive, StoreID: &storeID}
		regional = &user.User{ID: 3, Name: "Петро", Role: user.RoleRegional, Status: user.StatusActive}
		managerTwo = &user.User{ID: 4, Name: "Ірина", Role: user.RoleStoreManager, Status: user.StatusActive}

		repo = newMockRequestRepository()
		sched = newMockScheduler()
		roster = &mockRoster{
			managers:     []*user.User{manager},
			names:        []string{"Марія", "Андрій"},
			storesByName: map[string]int64{"Марія": storeID, "Андрій": storeID},
		}
		finder = &mockStoreFinder{stores: map[string]*store.Store{
			"WEST": {ID: 2, Name: "Західний", Code: "WEST"},
		}}
		notifier = newMockNotifier()

		svc = request.NewService(repo, sched, roster, finder, notifier,
			events.NewEventBus(logger), logger).
			WithClock(func() time.Time {
				return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
			})
	})

	Describe("Submit", func() {
		It("applies a manager's shift write immediately", func() {
			res, err := svc.Submit(manager, request.KindAddShift, request.MutationPayload{
				Date: "2026-03-15", Name: "Марія", Start: "09:00", End: "18:00",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.Pending).To(BeFalse())
			Expect(sched.shiftWrites).To(HaveLen(1))
			Expect(repo.requests).To(BeEmpty())
		})

		It("notifies the affected employee about an upcoming shift", func() {
			_, err := svc.Submit(manager, request.KindAddShift, request.MutationPayload{
				Date: "2026-03-15", Name: "Марія", Start: "09:00", End: "18:00",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.userMessages["Марія"]).To(HaveLen(1))
		})

		Context("store stamping", func() {
			BeforeEach(func() {
				roster.storesByName["Зоя"] = 2
			})

			It("stamps the write with the affected employee's store", func() {
				_, err := svc.Submit(manager, request.KindAddShift, request.MutationPayload{
					Date: "2026-03-15", Name: "Зоя", Start: "09:00", End: "18:00",
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(*sched.shifts[1].StoreID).To(Equal(int64(2)))
			})

			It("stamps a store-less admin's write with the employee's store", func() {
				admin := &user.User{ID: 9, Name: "Адмін", Role: user.RoleAdmin, Status: user.StatusActive}

				_, err := svc.Submit(admin, request.KindAddShift, request.MutationPayload{
					Date: "2026-03-15", Name: "Зоя", Start: "09:00", End: "18:00",
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(*sched.shifts[1].StoreID).To(Equal(int64(2)))
			})

			It("falls back to the actor's store for unresolvable names", func() {
				_, err := svc.Submit(manager, request.KindAddShift, request.MutationPayload{
					Date: "2026-03-15", Name: "Невідома", Start: "09:00", End: "18:00",
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(*sched.shifts[1].StoreID).To(Equal(storeID))
			})

			It("routes a proposal to the affected employee's store managers", func() {
				res, err := svc.Submit(employee, request.KindAddShift, request.MutationPayload{
					Date: "2026-03-15", Name: "Зоя", Start: "09:00", End: "18:00",
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Pending).To(BeTrue())
				Expect(*repo.requests[1].StoreID).To(Equal(int64(2)))
				Expect(roster.managerQueries).To(Equal([]int64{2}))
			})
		})

		It("stays silent about shifts written into the past", func() {
			_, err := svc.Submit(manager, request.KindAddShift, request.MutationPayload{
				Date: "2026-02-01", Name: "Марія", Start: "09:00", End: "18:00",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.userMessages).To(BeEmpty())
		})

		It("parks an employee's write as a pending request", func() {
			res, err := svc.Submit(employee, request.KindAddShift, request.MutationPayload{
				Date: "2026-03-15", Name: "Марія", Start: "09:00", End: "18:00",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.Pending).To(BeTrue())
			Expect(sched.shiftWrites).To(BeEmpty())
			Expect(repo.requests).To(HaveLen(1))
		})

		It("routes the pending request to the store managers with verdict buttons", func() {
			_, err := svc.Submit(employee, request.KindAddShift, request.MutationPayload{
				Date: "2026-03-15", Name: "Марія", Start: "09:00", End: "18:00",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(notifier.buttonChats).To(Equal([]int64{100}))
			Expect(notifier.buttonMessages[0]).To(ContainSubstring("Марія"))
		})

		It("refuses read-only roles without erroring", func() {
			res, err := svc.Submit(regional, request.KindAddShift, request.MutationPayload{
				Date: "2026-03-15", Name: "Марія", Start: "09:00", End: "18:00",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeFalse())
			Expect(res.Message).NotTo(BeEmpty())
			Expect(sched.shiftWrites).To(BeEmpty())
			Expect(repo.requests).To(BeEmpty())
		})

		It("rejects payloads missing required fields", func() {
			_, err := svc.Submit(manager, request.KindAddShift, request.MutationPayload{Name: "Марія"})
			Expect(err).To(HaveOccurred())
		})

		It("fans a task for all out to the whole roster", func() {
			res, err := svc.Submit(manager, request.KindAddTask, request.MutationPayload{
				Date: "2026-03-15", Name: request.TaskTargetAll, Title: "Інвентаризація",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(sched.taskWrites).To(HaveLen(2))
		})
	})

	Describe("Resolve", func() {
		var requestID int64

		BeforeEach(func() {
			res, err := svc.Submit(employee, request.KindAddShift, request.MutationPayload{
				Date: "2026-03-15", Name: "Марія", Start: "09:00", End: "18:00",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Pending).To(BeTrue())
			requestID = 1
		})

		It("applies the payload and deletes the request on approval", func() {
			res, err := svc.Resolve(requestID, true, manager)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(sched.shiftWrites).To(HaveLen(1))
			Expect(repo.requests).To(BeEmpty())
		})

		It("tells the requester about the verdict", func() {
			_, err := svc.Resolve(requestID, true, manager)

			Expect(err).NotTo(HaveOccurred())
			messages := notifier.userMessages["Марія"]
			Expect(messages).NotTo(BeEmpty())
			Expect(messages[len(messages)-1]).To(ContainSubstring("Схвалено"))
			Expect(messages[len(messages)-1]).To(ContainSubstring(manager.Name))
		})

		It("discards without applying on rejection", func() {
			res, err := svc.Resolve(requestID, false, manager)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(sched.shiftWrites).To(BeEmpty())
			Expect(repo.requests).To(BeEmpty())
			Expect(notifier.userMessages["Марія"]).To(ContainElement(ContainSubstring("Відхилено")))
		})

		It("answers success=false on a second resolution instead of applying twice", func() {
			_, err := svc.Resolve(requestID, true, manager)
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.Resolve(requestID, true, manager)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeFalse())
			Expect(sched.shiftWrites).To(HaveLen(1))
		})

		It("refuses non-managers", func() {
			_, err := svc.Resolve(requestID, true, employee)
			Expect(err).To(MatchError(internal.ErrForbiddenRole))
		})

		It("refuses managers of other stores", func() {
			otherStore := int64(9)
			managerTwo.StoreID = &otherStore
			_, err := svc.Resolve(requestID, true, managerTwo)
			Expect(err).To(MatchError(internal.ErrNotYourStore))
		})
	})

	Describe("ResolveAll", func() {
		BeforeEach(func() {
			for day := 11; day <= 13; day++ {
				_, err := svc.Submit(employee, request.KindAddShift, request.MutationPayload{
					Date: fmt.Sprintf("2026-03-%d", day), Name: "Марія", Start: "09:00", End: "18:00",
				})
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("approves everything in scope and aggregates per requester", func() {
			res, err := svc.ResolveAll(manager)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.Message).To(ContainSubstring("3"))
			Expect(sched.shiftWrites).To(HaveLen(3))
			Expect(repo.requests).To(BeEmpty())

			aggregated := notifier.userMessages["Марія"]
			Expect(aggregated[len(aggregated)-1]).To(ContainSubstring("Схвалено запитів: 3"))
		})

		It("leaves transfer requests alone", func() {
			_, err := svc.RequestTransfer(employee, "WEST")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.ResolveAll(manager)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.requests).To(HaveLen(1))
		})

		It("refuses non-managers", func() {
			_, err := svc.ResolveAll(employee)
			Expect(err).To(MatchError(internal.ErrForbiddenRole))
		})
	})

	Describe("RequestTransfer", func() {
		It("routes the request to the target store managers", func() {
			res, err := svc.RequestTransfer(employee, "WEST")

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Pending).To(BeTrue())
			Expect(repo.requests).To(HaveLen(1))
		})

		It("refuses a transfer to the current store", func() {
			finder.stores["HOME"] = &store.Store{ID: storeID, Name: "Домашній", Code: "HOME"}
			_, err := svc.RequestTransfer(employee, "HOME")
			Expect(err).To(MatchError(internal.ErrSameStore))
		})

		It("refuses a duplicate transfer to the same store", func() {
			_, err := svc.RequestTransfer(employee, "WEST")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.RequestTransfer(employee, "WEST")
			Expect(err).To(MatchError(internal.ErrDuplicateTransfer))
		})

		It("refuses unknown store codes", func() {
			_, err := svc.RequestTransfer(employee, "NOPE")
			Expect(err).To(MatchError(internal.ErrStoreNotFound))
		})
	})

	Describe("RespondTransfer", func() {
		var targetManager *user.User

		BeforeEach(func() {
			targetStore := int64(2)
			targetManager = &user.User{ID: 5, Name: "Ігор", Role: user.RoleStoreManager, Status: user.StatusActive, StoreID: &targetStore}

			_, err := svc.RequestTransfer(employee, "WEST")
			Expect(err).NotTo(HaveOccurred())
		})

		It("moves the account on approval and deletes the request", func() {
			res, err := svc.RespondTransfer(1, true, targetManager)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(roster.moves).To(Equal([]int64{employee.ID}))
			Expect(repo.requests).To(BeEmpty())
		})

		It("only deletes on rejection", func() {
			res, err := svc.RespondTransfer(1, false, targetManager)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(roster.moves).To(BeEmpty())
			Expect(repo.requests).To(BeEmpty())
			Expect(notifier.userMessages["Марія"]).To(ContainElement(ContainSubstring("відхилено")))
		})

		It("refuses managers outside the target store", func() {
			_, err := svc.RespondTransfer(1, true, manager)
			Expect(err).To(MatchError(internal.ErrNotYourStore))
		})

		It("answers success=false for a vanished request", func() {
			_, err := svc.RespondTransfer(1, true, targetManager)
			Expect(err).NotTo(HaveOccurred())

			res, err := svc.RespondTransfer(1, true, targetManager)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeFalse())
		})
	})

	Describe("List", func() {
		It("scopes managers to their store and admins to everything", func() {
			_, err := svc.Submit(employee, request.KindAddShift, request.MutationPayload{
				Date: "2026-03-15", Name: "Марія", Start: "09:00", End: "18:00",
			})
			Expect(err).NotTo(HaveOccurred())

			scoped, err := svc.List(manager)
			Expect(err).NotTo(HaveOccurred())
			Expect(scoped).To(HaveLen(1))

			admin := &user.User{ID: 9, Name: "Адмін", Role: user.RoleAdmin, Status: user.StatusActive}
			all, err := svc.List(admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})
	})
})
