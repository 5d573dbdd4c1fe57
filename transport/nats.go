package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/natsclient"
	"github.com/c360/docstreams/pkg/retry"
)

const (
	// subjectPrefix roots every event subject.
	subjectPrefix = "docstreams.events."
	// streamName is the JetStream stream capturing all event subjects.
	streamName = "DOCSTREAMS_EVENTS"
	// setupTimeout bounds stream and consumer provisioning.
	setupTimeout = 10 * time.Second
	// ackWait is how long the server waits for an ack before
	// redelivering an in-flight event.
	ackWait = 30 * time.Second
)

// NATS carries events over JetStream subjects. Attributes travel as
// message headers. Publish waits for the stream's acknowledgment, with
// transient failures retried, so an acknowledged publish is persisted.
// Subscriptions are durable consumers with explicit acks: a handler
// error naks the delivery and the server redelivers it, keeping failed
// invocations eligible for re-invocation.
type NATS struct {
	client *natsclient.Client
	retry  retry.Config
	logger *slog.Logger

	mu          sync.Mutex
	streamReady bool
}

// NewNATS creates the NATS transport.
func NewNATS(client *natsclient.Client, retryCfg errors.RetryConfig, logger *slog.Logger) (*NATS, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "NATS", "NewNATS", "client required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{client: client, retry: retryCfg.ToRetryConfig(), logger: logger}, nil
}

// Subject returns the wire subject for a topic.
func Subject(topic string) string {
	return subjectPrefix + topic
}

// consumerName derives a durable consumer name from a topic. Dots are
// valid in middleware names but not in durable names.
func consumerName(topic string) string {
	return "runner-" + strings.ReplaceAll(topic, ".", "_")
}

// jetStream returns the JetStream context, provisioning the event
// stream on first use.
func (t *NATS) jetStream(ctx context.Context) (jetstream.JetStream, error) {
	js, err := t.client.JetStream()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.streamReady {
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{subjectPrefix + ">"},
		})
		if err != nil {
			return nil, errors.WrapTransient(err, "NATS", "jetStream", "provision stream "+streamName)
		}
		t.streamReady = true
	}
	return js, nil
}

// Publish sends the event and waits for the stream's acknowledgment.
func (t *NATS) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error {
	msg := &nats.Msg{Subject: Subject(topic), Data: data}
	if len(attrs) > 0 {
		msg.Header = nats.Header{}
		for key, value := range attrs {
			msg.Header.Set(key, value)
		}
	}

	publish := func() error {
		js, err := t.jetStream(ctx)
		if err != nil {
			return err
		}
		if _, err := js.PublishMsg(ctx, msg); err != nil {
			return errors.WrapTransient(err, "NATS", "Publish", "publish to "+msg.Subject)
		}
		return nil
	}

	if err := retry.Do(ctx, t.retry, publish); err != nil {
		return errors.Wrap(err, "NATS", "Publish", "deliver to "+topic)
	}
	return nil
}

// Subscribe registers a handler on a durable consumer for the topic.
// The edge's filter policy is applied before the handler runs; filtered
// and undecodable events are settled without invoking the handler, a
// handler error naks the delivery for redelivery.
func (t *NATS) Subscribe(topic string, policy conditional.Policy, handler Handler) (Subscription, error) {
	if topic == "" || handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "NATS", "Subscribe", "topic and handler required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	js, err := t.jetStream(ctx)
	if err != nil {
		return nil, err
	}

	subject := Subject(topic)
	cons, err := js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       consumerName(topic),
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "NATS", "Subscribe", "provision consumer for "+subject)
	}

	consume, err := cons.Consume(func(msg jetstream.Msg) {
		var projection map[string]any
		if err := json.Unmarshal(msg.Data(), &projection); err != nil {
			t.logger.Warn("terminating undecodable event", "subject", msg.Subject(), "error", err)
			_ = msg.Term()
			return
		}
		if !conditional.Match(policy, projection) {
			_ = msg.Ack()
			return
		}

		attrs := make(map[string]string, len(msg.Headers()))
		for key := range msg.Headers() {
			attrs[key] = msg.Headers().Get(key)
		}
		if err := handler(context.Background(), msg.Data(), attrs); err != nil {
			t.logger.Warn("event handler failed, requesting redelivery",
				"subject", msg.Subject(), "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "NATS", "Subscribe", "consume "+subject)
	}
	return &natsSub{consume: consume}, nil
}

type natsSub struct {
	consume jetstream.ConsumeContext
}

// Unsubscribe stops delivery. The durable consumer remains, so events
// arriving while no runner is attached are delivered on reattach.
func (s *natsSub) Unsubscribe() error {
	s.consume.Stop()
	return nil
}
