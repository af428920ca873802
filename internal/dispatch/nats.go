package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject carries calculation requests.
const DefaultSubject = "prayerdebt.calculations"

// Publisher is the subset of *nats.Conn used by NATS.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes jobs on a subject for external calculators.
type NATS struct {
	pub     Publisher
	subject string

	mu     sync.Mutex
	conn   *nats.Conn
	closed bool
}

// NewNATS publishes through pub.
func NewNATS(pub Publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{pub: pub, subject: subject}
}

// ConnectNATS dials url and returns a dispatcher owning the connection.
func ConnectNATS(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("prayerdebt"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("dispatch: connect to NATS: %w", err)
	}
	d := NewNATS(conn, subject)
	d.conn = conn
	return d, nil
}

// Dispatch publishes req as JSON. Publish does not take a context, so ctx is
// only checked before publishing.
func (n *NATS) Dispatch(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dispatch: context cancelled before publish: %w", err)
	}
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return ErrStopped
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("dispatch: encode request: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("dispatch: publish %s: %w", n.subject, err)
	}
	return nil
}

// Close drains the owned connection, if any.
func (n *NATS) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	if n.conn != nil {
		return n.conn.Drain()
	}
	return nil
}
