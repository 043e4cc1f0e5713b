// Package feed bridges external transports into a core.Engine's
// working memory. Every feed in this package only ever calls the
// public Engine.AddFact, so it cannot bypass the type and dirty
// bookkeeping core owns; feeds are collaborators, not part of the
// engine, and core never imports this package.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorhill/cronexpr"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arrowhead-labs/ruleflow/core"
)

// ErrClosed's message is the body of the 503 response
// Websocket.Handler sends once Close has been called.
var ErrClosed = errors.New("feed: closed")

// AddFacter is the subset of *core.Engine (or *core.EngineHandle) a
// feed needs. Feeds depend on this instead of *core.Engine directly
// so tests can substitute a recording stub.
type AddFacter interface {
	AddFact(payload map[string]interface{}) (*core.Fact, error)
}

// MQTT subscribes to a topic and turns each received message into an
// AddFact call, recording the originating topic under TopicKey.
//
// Grounded in the teacher's sio/mqclient subscribe loop: a
// mqtt.Client with a message handler registered at Subscribe time.
type MQTT struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte

	// TopicKey names the payload field the source topic is recorded
	// under. Defaults to "topic".
	TopicKey string

	Engine AddFacter
	Log    *zap.Logger

	client mqtt.Client
}

// Start connects to the broker and subscribes to Topic. Each message
// becomes a fact of the type named by its own JSON "type" field, or
// is rejected with core.MissingType if it has none.
func (m *MQTT) Start(ctx context.Context) error {
	key := m.TopicKey
	if key == "" {
		key = "topic"
	}

	opts := mqtt.NewClientOptions().AddBroker(m.Broker).SetClientID(m.ClientID)
	opts.SetDefaultPublishHandler(func(c mqtt.Client, msg mqtt.Message) {
		var payload map[string]interface{}
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			m.logf("feed.MQTT: bad payload on %s: %v", msg.Topic(), err)
			return
		}
		payload[key] = msg.Topic()
		if _, err := m.Engine.AddFact(payload); err != nil {
			m.logf("feed.MQTT: AddFact: %v", err)
		}
	})

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("feed.MQTT: connect: %w", err)
	}

	sub := m.client.Subscribe(m.Topic, m.QoS, nil)
	sub.Wait()
	if err := sub.Error(); err != nil {
		return fmt.Errorf("feed.MQTT: subscribe %s: %w", m.Topic, err)
	}

	go func() {
		<-ctx.Done()
		m.client.Unsubscribe(m.Topic)
		m.client.Disconnect(250)
	}()

	return nil
}

func (m *MQTT) logf(format string, args ...interface{}) {
	if m.Log != nil {
		m.Log.Sugar().Infof(format, args...)
	}
}

// Websocket accepts upgraded connections and decodes each text frame
// as a JSON fact payload, per the teacher's cmd/mservice websocket
// handler (gorilla/websocket.Upgrader plus a per-connection read
// loop), minus the firehose fan-out: this feed is one-directional,
// inbound only.
type Websocket struct {
	Engine AddFacter
	Log    *zap.Logger

	upgrader websocket.Upgrader

	mu     sync.Mutex
	closed bool
}

// Handler returns an http.HandlerFunc that upgrades the request and
// reads facts from the resulting connection until it closes or Close
// is called. A request arriving after Close is rejected outright.
func (w *Websocket) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if w.isClosed() {
			http.Error(rw, ErrClosed.Error(), http.StatusServiceUnavailable)
			return
		}

		conn, err := w.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			w.logf("feed.Websocket: upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			if w.isClosed() {
				return
			}

			_, message, err := conn.ReadMessage()
			if err != nil {
				w.logf("feed.Websocket: read: %v", err)
				return
			}

			var payload map[string]interface{}
			if err := json.Unmarshal(message, &payload); err != nil {
				w.logf("feed.Websocket: bad frame: %v", err)
				continue
			}
			if _, err := w.Engine.AddFact(payload); err != nil {
				w.logf("feed.Websocket: AddFact: %v", err)
			}
		}
	}
}

// Close stops Handler from accepting or servicing any further
// connection. A read already in progress is not interrupted: an open
// connection stops after its next frame has been read and handled.
func (w *Websocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *Websocket) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Websocket) logf(format string, args ...interface{}) {
	if w.Log != nil {
		w.Log.Sugar().Infof(format, args...)
	}
}

// Cron inserts a "tick" fact on a cron schedule, for rules that need
// to fire periodically (e.g. a time-window accumulator test) without
// a host polling the engine. Grounded in the teacher's
// interpreters/goja cronNext helper, lifted here into a standalone
// scheduler rather than a scripted one-shot query.
type Cron struct {
	Expr string
	Type string // fact type stamped on each tick; defaults to "tick"

	Engine AddFacter
	Log    *zap.Logger

	stop chan struct{}
}

// Start begins firing ticks until ctx is done or Stop is called.
func (c *Cron) Start(ctx context.Context) error {
	expr, err := cronexpr.Parse(c.Expr)
	if err != nil {
		return fmt.Errorf("feed.Cron: bad expression %q: %w", c.Expr, err)
	}
	typ := c.Type
	if typ == "" {
		typ = "tick"
	}
	c.stop = make(chan struct{})

	go func() {
		for {
			next := expr.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-c.stop:
				timer.Stop()
				return
			case t := <-timer.C:
				if _, err := c.Engine.AddFact(map[string]interface{}{
					"type": typ,
					"at":   t,
				}); err != nil {
					c.logf("feed.Cron: AddFact: %v", err)
				}
			}
		}
	}()

	return nil
}

// Stop halts the schedule started by Start.
func (c *Cron) Stop() {
	if c.stop != nil {
		close(c.stop)
	}
}

func (c *Cron) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Sugar().Infof(format, args...)
	}
}
