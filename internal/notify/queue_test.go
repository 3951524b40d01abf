package notify_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shifterhq/shifter/internal/notify"
)

func TestNotify(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notify Suite")
}

type sentMessage struct {
	chatID int64
	text   string
	opts   notify.MessageOptions
}

// Mock transport recording sends, optionally failing per chat
type mockTransport struct {
	sent     []sentMessage
	failFor  map[int64]error
	nextID   int
	edits    []string
	answered []string
}

func newMockTransport() *mockTransport {
	return &mockTransport{failFor: make(map[int64]error)}
}

func (m *mockTransport) SendMessage(chatID int64, text string, opts notify.MessageOptions) (int, error) {
	if err, ok := m.failFor[chatID]; ok {
		return 0, err
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	m.nextID++
	return m.nextID, nil
}

func (m *mockTransport) EditMessageText(chatID int64, messageID int, text string, opts notify.MessageOptions) error {
	m.edits = append(m.edits, text)
	return nil
}

func (m *mockTransport) AnswerCallback(callbackID, text string, alert bool) error {
	m.answered = append(m.answered, callbackID)
	return nil
}

// Mock pending repository backed by a slice
type mockPendingRepository struct {
	rows   []*notify.PendingNotification
	nextID int64
}

func (m *mockPendingRepository) Create(n *notify.PendingNotification) error {
	m.nextID++
	n.ID = m.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
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
	return errors.New("row not found")
}

var _ = Describe("Queue", func() {
	var (
		transport *mockTransport
		pending   *mockPendingRepository
		queue     *notify.Queue
		clock     time.Time
	)

	kyiv, _ := time.LoadLocation("Europe/Kyiv")

	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, kyiv)
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		transport = newMockTransport()
		pending = &mockPendingRepository{}
		clock = at(12, 0)
		queue = notify.NewQueue(transport, pending, logger, kyiv, 22, 8, 0).
			WithClock(func() time.Time { return clock })
	})

	Describe("InQuietHours", func() {
		It("wraps the window across midnight", func() {
			Expect(queue.InQuietHours(at(21, 59))).To(BeFalse())
			Expect(queue.InQuietHours(at(22, 0))).To(BeTrue())
			Expect(queue.InQuietHours(at(3, 0))).To(BeTrue())
			Expect(queue.InQuietHours(at(7, 59))).To(BeTrue())
			Expect(queue.InQuietHours(at(8, 0))).To(BeFalse())
		})
	})

	Describe("Deliver", func() {
		It("sends immediately outside the quiet window", func() {
			queue.Deliver(10, "доброго ранку", notify.MessageOptions{})

			Expect(transport.sent).To(HaveLen(1))
			Expect(pending.rows).To(BeEmpty())
		})

		It("parks plain text during quiet hours", func() {
			clock = at(23, 0)
			queue.Deliver(10, "нагадування", notify.MessageOptions{})

			Expect(transport.sent).To(BeEmpty())
			Expect(pending.rows).To(HaveLen(1))
			Expect(pending.rows[0].ChatID).To(Equal(int64(10)))
		})

		It("never defers messages with keyboards", func() {
			clock = at(23, 0)
			queue.Deliver(10, "запит", notify.MessageOptions{
				Keyboard: [][]notify.Button{{{Label: "ok", Action: "x"}}},
			})

			Expect(transport.sent).To(HaveLen(1))
			Expect(pending.rows).To(BeEmpty())
		})

		It("never defers topic-targeted messages", func() {
			clock = at(23, 0)
			topic := int64(7)
			queue.Deliver(10, "звіт", notify.MessageOptions{TopicID: &topic})

			Expect(transport.sent).To(HaveLen(1))
			Expect(pending.rows).To(BeEmpty())
		})

		It("swallows transport failures", func() {
			transport.failFor[10] = errors.New("blocked by user")
			queue.Deliver(10, "привіт", notify.MessageOptions{})

			Expect(transport.sent).To(BeEmpty())
		})
	})

	Describe("SendNow", func() {
		It("bypasses the quiet window and returns the message id", func() {
			clock = at(23, 0)
			id, err := queue.SendNow(10, "запит", notify.MessageOptions{
				Keyboard: [][]notify.Button{{{Label: "ok", Action: "x"}}},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(1))
			Expect(transport.sent).To(HaveLen(1))
			Expect(pending.rows).To(BeEmpty())
		})

		It("surfaces transport failures to the caller", func() {
			transport.failFor[10] = errors.New("blocked by user")

			_, err := queue.SendNow(10, "запит", notify.MessageOptions{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FlushDue", func() {
		BeforeEach(func() {
			clock = at(23, 0)
			queue.Deliver(10, "перше", notify.MessageOptions{})
			queue.Deliver(20, "друге", notify.MessageOptions{})
			queue.Deliver(30, "третє", notify.MessageOptions{})
			Expect(pending.rows).To(HaveLen(3))
		})

		It("does nothing inside the quiet window", func() {
			queue.FlushDue()

			Expect(transport.sent).To(BeEmpty())
			Expect(pending.rows).To(HaveLen(3))
		})

		It("drains the backlog oldest first once the window opens", func() {
			clock = at(8, 0)
			queue.FlushDue()

			Expect(transport.sent).To(HaveLen(3))
			Expect(transport.sent[0].text).To(Equal("перше"))
			Expect(transport.sent[2].text).To(Equal("третє"))
			Expect(pending.rows).To(BeEmpty())
		})

		It("keeps rows whose send failed for the next flush", func() {
			clock = at(8, 0)
			transport.failFor[20] = errors.New("blocked by user")
			queue.FlushDue()

			Expect(transport.sent).To(HaveLen(2))
			Expect(pending.rows).To(HaveLen(1))
			Expect(pending.rows[0].ChatID).To(Equal(int64(20)))
		})
	})
})
