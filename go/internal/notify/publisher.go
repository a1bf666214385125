// Package notify publishes registration events and drives the best-effort
// confirmation email worker. Nothing in here can fail a registration: the
// coordinator treats every error from this package as log-only.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/crickyard/registration/go/internal/events"
)

// SubjectTeamRegistered is the subject every committed registration is
// announced on.
const SubjectTeamRegistered = "registration.events.team_registered"

type JetStreamConfig struct {
	URL           string
	StreamName    string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "REGISTRATION_EVENTS",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        7 * 24 * time.Hour,
	}
}

// JetStreamPublisher announces registrations on a JetStream stream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     p.config.StreamName,
		Subjects: []string{"registration.events.>"},
		MaxAge:   p.config.MaxAge,
	})
	return err
}

// PublishTeamRegistered announces one committed registration. The team ID
// doubles as the message ID so redeliveries dedupe server-side.
func (p *JetStreamPublisher) PublishTeamRegistered(ctx context.Context, payload events.TeamRegisteredPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = p.js.Publish(ctx, SubjectTeamRegistered, data, jetstream.WithMsgID(payload.TeamID))
	if err != nil {
		return fmt.Errorf("publish team registered: %w", err)
	}

	log.Debug().Str("team_id", payload.TeamID).Msg("published registration event")
	return nil
}

// StartEmailConsumer binds w to a durable consumer on the registration
// stream and starts delivery. Stop the returned ConsumeContext on shutdown.
func (p *JetStreamPublisher) StartEmailConsumer(ctx context.Context, w *Worker) (jetstream.ConsumeContext, error) {
	consumer, err := p.js.CreateOrUpdateConsumer(ctx, p.config.StreamName, jetstream.ConsumerConfig{
		Durable:       "email-worker",
		FilterSubject: SubjectTeamRegistered,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create email consumer: %w", err)
	}
	return consumer.Consume(w.HandleMessage)
}

// Conn exposes the underlying connection for core subscribers (live feed).
func (p *JetStreamPublisher) Conn() *nats.Conn {
	return p.nc
}

func (p *JetStreamPublisher) Close() {
	p.nc.Close()
}

// NoopPublisher swallows events. Used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTeamRegistered(context.Context, events.TeamRegisteredPayload) error {
	return nil
}
