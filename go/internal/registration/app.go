package registration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/crickyard/registration/go/internal/events"
	"github.com/crickyard/registration/go/internal/idempotency"
	"github.com/crickyard/registration/go/internal/registration/db"
	"github.com/crickyard/registration/go/internal/retry"
	"github.com/crickyard/registration/go/internal/sqlutil"
	"github.com/crickyard/registration/go/internal/storage"
	"github.com/crickyard/registration/go/internal/teamid"
)

// EventPublisher is the fire-and-forget boundary to downstream consumers
// (confirmation email worker, live feed). Publish failures never fail a
// registration.
type EventPublisher interface {
	PublishTeamRegistered(ctx context.Context, payload events.TeamRegisteredPayload) error
}

// TxQuerier is everything the registration transaction touches through one
// transaction-bound database handle.
type TxQuerier interface {
	Querier
	teamid.Querier
	idempotency.Querier
}

// TxRunner executes fn inside a single database transaction. If fn returns
// an error the transaction rolls back, else it commits.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(q TxQuerier) error) error
}

// SQLRunner is the production TxRunner over database/sql.
type SQLRunner struct {
	db      *sql.DB
	queries *db.Queries
}

func NewSQLRunner(database *sql.DB) *SQLRunner {
	return &SQLRunner{
		db:      database,
		queries: db.New(database),
	}
}

func (r *SQLRunner) RunTx(ctx context.Context, fn func(q TxQuerier) error) error {
	return sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		return fn(q)
	})
}

// Response is the body stored in the idempotency ledger and returned to the
// client on success and on replay.
type Response struct {
	Success     bool   `json:"success"`
	TeamID      string `json:"team_id"`
	TeamName    string `json:"team_name"`
	Message     string `json:"message"`
	PlayerCount int    `json:"player_count"`
}

// Result is the outcome of one registration. Duplicate marks an idempotent
// replay: the response is the previously stored one and no side effect ran.
type Result struct {
	Response  Response
	Duplicate bool
}

// App coordinates one registration end to end: idempotency lookup, payload
// extraction, concurrent file uploads, and the retried all-or-nothing
// transaction that issues the team ID and inserts team, players and ledger
// row together.
type App struct {
	runner    TxRunner
	ledger    *idempotency.Ledger
	files     *storage.ReliableFileStore
	issuer    *teamid.Issuer
	publisher EventPublisher
	txPolicy  retry.Policy
	namespace string
}

func NewApp(
	runner TxRunner,
	ledger *idempotency.Ledger,
	files *storage.ReliableFileStore,
	issuer *teamid.Issuer,
	publisher EventPublisher,
	txPolicy retry.Policy,
	namespace string,
) *App {
	return &App{
		runner:    runner,
		ledger:    ledger,
		files:     files,
		issuer:    issuer,
		publisher: publisher,
		txPolicy:  txPolicy,
		namespace: namespace,
	}
}

// Register processes one submission. idemKey may be empty, in which case the
// request is always treated as fresh.
func (a *App) Register(ctx context.Context, idemKey string, form Form) (*Result, error) {
	if idemKey != "" {
		stored, found, err := a.ledger.Lookup(ctx, idemKey)
		if err != nil {
			return nil, err
		}
		if found {
			return replayResult(idemKey, stored)
		}
	}

	req, err := ExtractRegistration(form)
	if err != nil {
		return nil, err
	}

	// Uploads fan out before any DB connection is held, so slow third-party
	// I/O never pins a pooled connection. Files land under a request-scoped
	// prefix because the team ID does not exist yet.
	regID := uuid.New().String()
	urls, err := a.uploadAttachments(ctx, regID, req)
	if err != nil {
		return nil, err
	}

	var resp Response
	err = a.txPolicy.Do(ctx, "registration transaction", classifyTxError, func(ctx context.Context) error {
		return a.runner.RunTx(ctx, func(q TxQuerier) error {
			teamID, err := a.issuer.Issue(ctx, q)
			if err != nil {
				return err
			}

			repo := NewRepository(q)
			team, err := repo.CreateTeam(ctx, buildTeamRequest(teamID, req, urls))
			if err != nil {
				return err
			}
			players, err := repo.CreatePlayers(ctx, teamID, buildPlayerRequests(teamID, req, urls))
			if err != nil {
				return err
			}

			resp = Response{
				Success:     true,
				TeamID:      team.ID,
				TeamName:    team.TeamName,
				Message:     "team registered",
				PlayerCount: len(players),
			}

			if idemKey != "" {
				body, err := json.Marshal(resp)
				if err != nil {
					return fmt.Errorf("failed to marshal response: %w", err)
				}
				return a.ledger.Record(ctx, q, idemKey, body)
			}
			return nil
		})
	})
	if err != nil {
		if idempotency.IsKeyConflict(err) {
			// A concurrent request with the same key won the reservation.
			// Postgres holds the conflicting insert until the winner commits,
			// so by now its response is visible.
			stored, found, lookupErr := a.ledger.Lookup(ctx, idemKey)
			if lookupErr == nil && found {
				return replayResult(idemKey, stored)
			}
		}
		if ce := asConstraintError(err); ce != nil {
			return nil, ce
		}
		return nil, err
	}

	a.publishRegistered(ctx, req, resp)

	log.Info().
		Str("team_id", resp.TeamID).
		Str("team_name", resp.TeamName).
		Int("players", resp.PlayerCount).
		Str("idempotency_key", idemKey).
		Msg("registration persisted")

	return &Result{Response: resp}, nil
}

// PruneLedger drops expired idempotency rows; run it periodically.
func (a *App) PruneLedger(ctx context.Context) {
	n, err := a.ledger.Prune(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to prune idempotency ledger")
		return
	}
	if n > 0 {
		log.Debug().Int64("rows", n).Msg("pruned idempotency ledger")
	}
}

func replayResult(idemKey string, stored json.RawMessage) (*Result, error) {
	var resp Response
	if err := json.Unmarshal(stored, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stored response: %w", err)
	}
	log.Info().
		Str("idempotency_key", idemKey).
		Str("team_id", resp.TeamID).
		Msg("idempotent replay, returning stored response")
	return &Result{Response: resp, Duplicate: true}, nil
}

func (a *App) uploadAttachments(ctx context.Context, regID string, req *RegistrationRequest) (map[string]string, error) {
	var jobs []storage.Job

	teamFiles := map[string]*storage.File{
		"pastor_letter_file":   req.PastorLetter,
		"payment_receipt_file": req.PaymentReceipt,
		"group_photo_file":     req.GroupPhoto,
	}
	for field, f := range teamFiles {
		if f == nil {
			continue
		}
		kind := field[:len(field)-len("_file")]
		jobs = append(jobs, storage.Job{
			Field: field,
			Path:  storage.ObjectPath(a.namespace, regID, "team", kind, f.Name),
			File:  *f,
		})
	}

	for i, p := range req.Players {
		segment := fmt.Sprintf("player_%d", i)
		if p.Aadhar != nil {
			jobs = append(jobs, storage.Job{
				Field: playerScanner.FieldName(i, "aadhar_file"),
				Path:  storage.ObjectPath(a.namespace, regID, segment, "aadhar", p.Aadhar.Name),
				File:  *p.Aadhar,
			})
		}
		if p.Subscription != nil {
			jobs = append(jobs, storage.Job{
				Field: playerScanner.FieldName(i, "subscription_file"),
				Path:  storage.ObjectPath(a.namespace, regID, segment, "subscription", p.Subscription.Name),
				File:  *p.Subscription,
			})
		}
	}

	return a.files.UploadAll(ctx, jobs)
}

func buildTeamRequest(teamID string, req *RegistrationRequest, urls map[string]string) CreateTeamRequest {
	return CreateTeamRequest{
		ID:              teamID,
		TeamName:        req.TeamName,
		ChurchName:      req.ChurchName,
		Captain:         req.Captain,
		ViceCaptain:     req.ViceCaptain,
		PastorLetterURL: urlFor(urls, "pastor_letter_file"),
		ReceiptURL:      urlFor(urls, "payment_receipt_file"),
		GroupPhotoURL:   urlFor(urls, "group_photo_file"),
	}
}

func buildPlayerRequests(teamID string, req *RegistrationRequest, urls map[string]string) []CreatePlayerRequest {
	result := make([]CreatePlayerRequest, len(req.Players))
	for i, p := range req.Players {
		result[i] = CreatePlayerRequest{
			ID:              teamid.PlayerID(teamID, i+1),
			Name:            p.Name,
			Age:             p.Age,
			Phone:           p.Phone,
			Role:            p.Role,
			JerseyNumber:    p.JerseyNumber,
			AadharURL:       urlFor(urls, playerScanner.FieldName(i, "aadhar_file")),
			SubscriptionURL: urlFor(urls, playerScanner.FieldName(i, "subscription_file")),
		}
	}
	return result
}

func urlFor(urls map[string]string, field string) *string {
	u, ok := urls[field]
	if !ok {
		return nil
	}
	return &u
}

func (a *App) publishRegistered(ctx context.Context, req *RegistrationRequest, resp Response) {
	payload := events.TeamRegisteredPayload{
		TeamID:       resp.TeamID,
		TeamName:     resp.TeamName,
		ChurchName:   req.ChurchName,
		CaptainName:  req.Captain.Name,
		CaptainEmail: req.Captain.Email,
		PlayerCount:  resp.PlayerCount,
		RegisteredAt: time.Now().UTC(),
	}
	if err := a.publisher.PublishTeamRegistered(ctx, payload); err != nil {
		log.Warn().Err(err).Str("team_id", resp.TeamID).Msg("failed to publish registration event")
	}
}

func asConstraintError(err error) *ConstraintError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return &ConstraintError{Constraint: pqErr.Constraint, Err: err}
	}
	return nil
}
