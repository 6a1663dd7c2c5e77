package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Event describes a change to the appointment book. Events drive the
// live feed on the admin dashboard.
type Event struct {
	Type          string `json:"type"`
	AppointmentID string `json:"appointmentId"`
	DoctorName    string `json:"doctorName,omitempty"`
	PatientName   string `json:"patientName,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	Status        string `json:"status,omitempty"`
}

const (
	EventBooked  = "appointment_booked"
	EventUpdated = "appointment_updated"
)

// Feed fans appointment events out to dashboard subscribers.
type Feed interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe() (<-chan Event, func())
}

// broker is a plain in-process fan-out. Slow subscribers drop events
// rather than block publishers.
type broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Event]struct{})}
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}
}

// MemoryFeed is the single-process Feed used alongside the Memory store.
type MemoryFeed struct {
	broker *broker
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{broker: newBroker()}
}

func (f *MemoryFeed) Publish(ctx context.Context, ev Event) error {
	f.broker.publish(ev)
	return nil
}

func (f *MemoryFeed) Subscribe() (<-chan Event, func()) {
	return f.broker.subscribe()
}

// PGFeed carries events over Postgres NOTIFY so every API instance sees
// bookings made through any of them. The channel name should match the
// POSTGRES_NOTIFY_CHANNEL environment variable.
type PGFeed struct {
	db      *sql.DB
	dsn     string
	channel string
	broker  *broker
}

func NewPGFeed(db *sql.DB, dsn, channel string) *PGFeed {
	return &PGFeed{db: db, dsn: dsn, channel: channel, broker: newBroker()}
}

func (f *PGFeed) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = f.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", f.channel, string(payload))
	return err
}

func (f *PGFeed) Subscribe() (<-chan Event, func()) {
	return f.broker.subscribe()
}

// Listen blocks until ctx is cancelled, relaying NOTIFY payloads into the
// local broker. Run it in its own goroutine.
func (f *PGFeed) Listen(ctx context.Context) error {
	listener := pq.NewListener(f.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("[feed] listener event %d: %v", ev, err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(f.channel); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-listener.Notify:
			if n == nil {
				// Connection reset, the listener reconnects on its own.
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				log.Printf("[feed] bad payload on %s: %v", f.channel, err)
				continue
			}
			f.broker.publish(ev)
		case <-time.After(90 * time.Second):
			if err := listener.Ping(); err != nil {
				log.Printf("[feed] ping failed: %v", err)
			}
		}
	}
}
