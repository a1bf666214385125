package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/crickyard/registration/go/clients/objectstore"
	"github.com/crickyard/registration/go/internal/events"
	"github.com/crickyard/registration/go/internal/idempotency"
	"github.com/crickyard/registration/go/internal/livefeed"
	"github.com/crickyard/registration/go/internal/notify"
	"github.com/crickyard/registration/go/internal/registration"
	"github.com/crickyard/registration/go/internal/registration/db"
	"github.com/crickyard/registration/go/internal/retry"
	"github.com/crickyard/registration/go/internal/storage"
	"github.com/crickyard/registration/go/internal/teamid"
)

type Services struct {
	Registration *registration.Service
	App          *registration.App
	Hub          *livefeed.Hub
	Worker       *notify.Worker
	Publisher    *notify.JetStreamPublisher // nil when notify is disabled
}

func setupServices(database *sql.DB, config *Config) (*Services, error) {
	clock := clockwork.NewRealClock()

	// Database layer → ledger/issuer → app → service.
	queries := db.New(database)
	ledger := idempotency.NewLedger(queries, config.idempotencyTTL())
	issuer := teamid.NewIssuer(config.Registration.TeamPrefix)
	runner := registration.NewSQLRunner(database)

	storeClient := objectstore.NewClient(config.Storage.BaseURL)
	if config.Storage.TimeoutSeconds > 0 {
		storeClient.SetTimeout(time.Duration(config.Storage.TimeoutSeconds) * time.Second)
	}
	files := storage.NewReliableFileStore(storeClient, retry.UploadPolicy(clock))

	var publisher registration.EventPublisher = notify.NoopPublisher{}
	var jsPublisher *notify.JetStreamPublisher
	if config.Notify.Enabled {
		cfg := notify.DefaultJetStreamConfig()
		cfg.URL = getEnv("NATS_URL", cfg.URL)
		p, err := notify.NewJetStreamPublisher(cfg)
		if err != nil {
			return nil, err
		}
		publisher = p
		jsPublisher = p
	}

	app := registration.NewApp(
		runner,
		ledger,
		files,
		issuer,
		publisher,
		retry.DefaultPolicy(clock),
		config.Registration.StorageNamespace,
	)

	return &Services{
		Registration: registration.NewService(app),
		App:          app,
		Hub:          livefeed.NewHub(),
		Worker:       notify.NewWorker(&logMailer{}, config.Notify.Workers, config.Notify.QueueSize),
		Publisher:    jsPublisher,
	}, nil
}

// logMailer stands in for the external SMTP collaborator: it records what
// would have been sent. Swap in a real Mailer at the boundary.
type logMailer struct{}

func (*logMailer) SendConfirmation(_ context.Context, payload events.TeamRegisteredPayload) error {
	log.Info().
		Str("team_id", payload.TeamID).
		Str("to", payload.CaptainEmail).
		Msg("confirmation email queued for delivery")
	return nil
}
