// Package events publishes record change notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Action names the kind of committed mutation.
type Action string

const (
	ActionCreated  Action = "created"
	ActionReplaced Action = "replaced"
	ActionPatched  Action = "patched"
	ActionDeleted  Action = "deleted"
)

const (
	// DataContentType is the media type of Event.Data.
	DataContentType = "application/json"
	eventSource     = "football-api"
)

var (
	newEventID   = uuid.NewRandom
	marshalEvent = json.Marshal
	timeNow      = time.Now
)

// Event is the JSON envelope written to the bus.
type Event struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// Change describes one committed mutation of one record.
type Change struct {
	Resource string
	Action   Action
	ID       int64
	Values   map[string]any
}

// Publisher delivers change events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
	Close() error
}

// NoopPublisher drops every event. It is used when no NATS URL is configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Change) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }

// Subject returns prefix.resource.action.
func Subject(prefix, resource string, action Action) string {
	return strings.Join([]string{prefix, resource, string(action)}, ".")
}

// NewEvent builds the envelope for change.
func NewEvent(prefix string, change Change) (Event, error) {
	resource := strings.TrimSpace(change.Resource)
	if resource == "" {
		return Event{}, fmt.Errorf("resource is required")
	}
	if change.ID <= 0 {
		return Event{}, fmt.Errorf("record id is required")
	}
	switch change.Action {
	case ActionCreated, ActionReplaced, ActionPatched, ActionDeleted:
	default:
		return Event{}, fmt.Errorf("unknown action %q", change.Action)
	}

	id, err := newEventID()
	if err != nil {
		return Event{}, fmt.Errorf("generating event id: %w", err)
	}

	ev := Event{
		ID:              id.String(),
		Source:          eventSource,
		Type:            Subject(prefix, resource, change.Action),
		Subject:         strconv.FormatInt(change.ID, 10),
		Time:            timeNow().UTC(),
		DataContentType: DataContentType,
	}
	if len(change.Values) > 0 {
		data, err := marshalEvent(change.Values)
		if err != nil {
			return Event{}, fmt.Errorf("marshaling %s event payload: %w", resource, err)
		}
		ev.Data = data
	}
	return ev, nil
}

// Config configures a NATSPublisher.
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	// Stream, when set, publishes through JetStream into a stream that
	// captures prefix.>. It is created if missing.
	Stream string
}

// NATSPublisher publishes events over core NATS or JetStream.
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	prefix string
}

// NewNATSPublisher connects to NATS and prepares the optional stream.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.SubjectPrefix), ".")
	if prefix == "" {
		prefix = "football"
	}
	name := cfg.Name
	if name == "" {
		name = eventSource
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	p := &NATSPublisher{conn: conn, prefix: prefix}
	if stream := strings.TrimSpace(cfg.Stream); stream != "" {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("creating jetstream context: %w", err)
		}
		if err := ensureStream(js, stream, prefix+".>"); err != nil {
			conn.Close()
			return nil, err
		}
		p.js = js
	}
	return p, nil
}

func ensureStream(js nats.JetStreamContext, name, subject string) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("looking up stream %q: %w", name, err)
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
	}); err != nil {
		return fmt.Errorf("creating stream %q: %w", name, err)
	}
	return nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, change Change) error {
	ev, err := NewEvent(p.prefix, change)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := nats.NewMsg(ev.Type)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)

	if p.js != nil {
		if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
			return fmt.Errorf("publishing %s to jetstream: %w", ev.Type, err)
		}
		return nil
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", ev.Type, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("draining nats connection: %w", err)
	}
	return nil
}
