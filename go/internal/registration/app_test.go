package registration_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crickyard/registration/go/internal/events"
	"github.com/crickyard/registration/go/internal/idempotency"
	"github.com/crickyard/registration/go/internal/registration"
	"github.com/crickyard/registration/go/internal/registration/db"
	"github.com/crickyard/registration/go/internal/retry"
	"github.com/crickyard/registration/go/internal/storage"
	"github.com/crickyard/registration/go/internal/teamid"
)

// memStore is committed database state. Reads outside a transaction (the
// ledger's lookups) see only what a memTx committed.
type memStore struct {
	mu      sync.Mutex
	seq     int32
	teams   []db.Team
	players []db.Player
	idem    map[string]db.IdempotencyKey

	// concealIdemOnce makes the first GetIdempotencyKey miss even though the
	// row is committed, mimicking a concurrent winner committing between the
	// pre-flight lookup and the reservation insert.
	concealIdemOnce bool
}

func newMemStore() *memStore {
	return &memStore{idem: make(map[string]db.IdempotencyKey)}
}

func (s *memStore) GetIdempotencyKey(ctx context.Context, key string) (db.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.concealIdemOnce {
		s.concealIdemOnce = false
		return db.IdempotencyKey{}, sql.ErrNoRows
	}
	rec, ok := s.idem[key]
	if !ok || rec.ExpiresAt.Before(time.Now()) {
		return db.IdempotencyKey{}, sql.ErrNoRows
	}
	return rec, nil
}

func (s *memStore) InsertIdempotencyKey(ctx context.Context, arg db.InsertIdempotencyKeyParams) (db.IdempotencyKey, error) {
	panic("ledger writes must go through a transaction")
}

func (s *memStore) DeleteExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.idem {
		if rec.ExpiresAt.Before(time.Now()) {
			delete(s.idem, key)
			n++
		}
	}
	return n, nil
}

// memTx buffers writes until commit. Sequence increments hit the store
// directly: an aborted attempt leaves a gap, same as the real counter row.
type memTx struct {
	store   *memStore
	teams   []db.Team
	players []db.Player
	idem    []db.IdempotencyKey
}

func (t *memTx) NextTeamSeq(ctx context.Context, name string) (int32, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.seq++
	return t.store.seq, nil
}

func (t *memTx) CreateTeam(ctx context.Context, arg db.CreateTeamParams) (db.Team, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, existing := range t.store.teams {
		if existing.TeamName == arg.TeamName {
			return db.Team{}, &pq.Error{Code: "23505", Constraint: "teams_team_name_key"}
		}
	}
	team := db.Team{
		ID:              arg.ID,
		TeamName:        arg.TeamName,
		ChurchName:      arg.ChurchName,
		CaptainName:     arg.CaptainName,
		CaptainPhone:    arg.CaptainPhone,
		CaptainWhatsapp: arg.CaptainWhatsapp,
		CaptainEmail:    arg.CaptainEmail,
		ViceName:        arg.ViceName,
		VicePhone:       arg.VicePhone,
		ViceWhatsapp:    arg.ViceWhatsapp,
		ViceEmail:       arg.ViceEmail,
		PastorLetterUrl: arg.PastorLetterUrl,
		ReceiptUrl:      arg.ReceiptUrl,
		GroupPhotoUrl:   arg.GroupPhotoUrl,
		CreatedAt:       time.Now(),
	}
	t.teams = append(t.teams, team)
	return team, nil
}

func (t *memTx) CreatePlayer(ctx context.Context, arg db.CreatePlayerParams) (db.Player, error) {
	player := db.Player{
		ID:              arg.ID,
		TeamID:          arg.TeamID,
		Name:            arg.Name,
		Age:             arg.Age,
		Phone:           arg.Phone,
		Role:            arg.Role,
		JerseyNumber:    arg.JerseyNumber,
		AadharUrl:       arg.AadharUrl,
		SubscriptionUrl: arg.SubscriptionUrl,
		CreatedAt:       time.Now(),
	}
	t.players = append(t.players, player)
	return player, nil
}

func (t *memTx) GetIdempotencyKey(ctx context.Context, key string) (db.IdempotencyKey, error) {
	return t.store.GetIdempotencyKey(ctx, key)
}

func (t *memTx) InsertIdempotencyKey(ctx context.Context, arg db.InsertIdempotencyKeyParams) (db.IdempotencyKey, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, exists := t.store.idem[arg.Key]; exists {
		return db.IdempotencyKey{}, &pq.Error{Code: "23505", Constraint: "idempotency_keys_key_key"}
	}
	rec := db.IdempotencyKey{
		ID:        arg.ID,
		Key:       arg.Key,
		Response:  arg.Response,
		CreatedAt: time.Now(),
		ExpiresAt: arg.ExpiresAt,
	}
	t.idem = append(t.idem, rec)
	return rec, nil
}

func (t *memTx) DeleteExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	return t.store.DeleteExpiredIdempotencyKeys(ctx)
}

func (t *memTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.teams = append(t.store.teams, t.teams...)
	t.store.players = append(t.store.players, t.players...)
	for _, rec := range t.idem {
		t.store.idem[rec.Key] = rec
	}
}

// memRunner fails the first len(failBefore) calls outright, then runs fn
// against a buffered transaction and commits on success.
type memRunner struct {
	store      *memStore
	failBefore []error
	calls      int
}

func (r *memRunner) RunTx(ctx context.Context, fn func(q registration.TxQuerier) error) error {
	r.calls++
	if len(r.failBefore) > 0 {
		err := r.failBefore[0]
		r.failBefore = r.failBefore[1:]
		return err
	}
	tx := &memTx{store: r.store}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type countingStore struct {
	mu   sync.Mutex
	puts int
}

func (s *countingStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	return "https://cdn.example.com/" + path, nil
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

type capturingPublisher struct {
	mu       sync.Mutex
	payloads []events.TeamRegisteredPayload
}

func (p *capturingPublisher) PublishTeamRegistered(ctx context.Context, payload events.TeamRegisteredPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

type appFixture struct {
	app       *registration.App
	store     *memStore
	runner    *memRunner
	objects   *countingStore
	publisher *capturingPublisher
}

func newAppFixture(failBefore ...error) *appFixture {
	store := newMemStore()
	runner := &memRunner{store: store, failBefore: failBefore}
	objects := &countingStore{}
	publisher := &capturingPublisher{}
	fast := retry.NewPolicy(3, time.Millisecond, 2.0, clockwork.NewRealClock())
	app := registration.NewApp(
		runner,
		idempotency.NewLedger(store, time.Minute),
		storage.NewReliableFileStore(objects, fast),
		teamid.NewIssuer("CYT"),
		publisher,
		fast,
		"registrations",
	)
	return &appFixture{app: app, store: store, runner: runner, objects: objects, publisher: publisher}
}

func TestRegisterPersistsTeamAndPlayers(t *testing.T) {
	fx := newAppFixture()
	form := validForm(11)
	form.Files["pastor_letter_file"] = storage.File{Name: "letter.pdf", Data: []byte("x")}
	form.Files["player_0_aadhar_file"] = storage.File{Name: "aadhar.jpg", Data: []byte("y")}

	result, err := fx.app.Register(context.Background(), "key-1", form)
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.True(t, result.Response.Success)
	assert.Equal(t, "CYT-0001", result.Response.TeamID)
	assert.Equal(t, "St. Thomas Strikers", result.Response.TeamName)
	assert.Equal(t, 11, result.Response.PlayerCount)

	require.Len(t, fx.store.teams, 1)
	require.Len(t, fx.store.players, 11)
	assert.Equal(t, "CYT-0001-P01", fx.store.players[0].ID)
	assert.Equal(t, "CYT-0001-P11", fx.store.players[10].ID)
	assert.Equal(t, "1", fx.store.players[0].JerseyNumber)

	assert.True(t, fx.store.teams[0].PastorLetterUrl.Valid)
	assert.True(t, fx.store.players[0].AadharUrl.Valid)
	assert.False(t, fx.store.players[1].AadharUrl.Valid)
	assert.Equal(t, 2, fx.objects.count())

	require.Len(t, fx.publisher.payloads, 1)
	assert.Equal(t, "CYT-0001", fx.publisher.payloads[0].TeamID)
	assert.Equal(t, "ajay@example.com", fx.publisher.payloads[0].CaptainEmail)
}

func TestRegisterIdempotentReplay(t *testing.T) {
	fx := newAppFixture()
	form := validForm(11)
	form.Files["group_photo_file"] = storage.File{Name: "team.jpg", Data: []byte("x")}

	first, err := fx.app.Register(context.Background(), "key-replay", form)
	require.NoError(t, err)
	uploadsAfterFirst := fx.objects.count()

	second, err := fx.app.Register(context.Background(), "key-replay", form)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Response, second.Response)
	assert.Len(t, fx.store.teams, 1, "replay must not insert a second team")
	assert.Equal(t, uploadsAfterFirst, fx.objects.count(), "replay must not re-upload")
	assert.Len(t, fx.publisher.payloads, 1, "replay must not re-publish")
}

func TestRegisterWithoutKeyIsAlwaysFresh(t *testing.T) {
	fx := newAppFixture()

	form := validForm(11)
	_, err := fx.app.Register(context.Background(), "", form)
	require.NoError(t, err)

	form2 := validForm(11)
	form2.Values["team_name"] = []string{"Another Eleven"}
	second, err := fx.app.Register(context.Background(), "", form2)
	require.NoError(t, err)

	assert.False(t, second.Duplicate)
	assert.Equal(t, "CYT-0002", second.Response.TeamID)
	assert.Len(t, fx.store.teams, 2)
}

func TestRegisterValidationFailsBeforeUploads(t *testing.T) {
	fx := newAppFixture()
	form := validForm(10) // below the minimum squad size
	form.Files["pastor_letter_file"] = storage.File{Name: "letter.pdf", Data: []byte("x")}

	_, err := fx.app.Register(context.Background(), "key-invalid", form)

	var ve registration.ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, fx.objects.count(), "invalid submissions must not upload")
	assert.Equal(t, 0, fx.runner.calls, "invalid submissions must not open a transaction")
	assert.Empty(t, fx.store.teams)
}

func TestRegisterRetriesTransientTxFailures(t *testing.T) {
	fx := newAppFixture(
		&pq.Error{Code: "08006", Message: "connection failure"},
		&pq.Error{Code: "40001", Message: "serialization failure"},
	)

	result, err := fx.app.Register(context.Background(), "key-retry", validForm(11))
	require.NoError(t, err)

	assert.Equal(t, 3, fx.runner.calls)
	assert.Len(t, fx.store.teams, 1)
	assert.Equal(t, "CYT-0001", result.Response.TeamID)
}

func TestRegisterExhaustsRetriesOnPersistentOutage(t *testing.T) {
	cause := &pq.Error{Code: "08006", Message: "connection failure"}
	fx := newAppFixture(cause, cause, cause)

	_, err := fx.app.Register(context.Background(), "key-outage", validForm(11))
	require.Error(t, err)

	var exhausted *retry.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Empty(t, fx.store.teams, "no partial state may survive a failed run")
	assert.Empty(t, fx.publisher.payloads)
}

func TestRegisterDuplicateTeamNameIsConstraintError(t *testing.T) {
	fx := newAppFixture()
	_, err := fx.app.Register(context.Background(), "", validForm(11))
	require.NoError(t, err)

	_, err = fx.app.Register(context.Background(), "", validForm(11))
	require.Error(t, err)

	var ce *registration.ConstraintError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "teams_team_name_key", ce.Constraint)
	assert.Len(t, fx.store.teams, 1)
}

func TestRegisterKeyConflictReturnsWinnerResponse(t *testing.T) {
	fx := newAppFixture()
	winner, err := fx.app.Register(context.Background(), "key-race", validForm(11))
	require.NoError(t, err)

	// The loser's pre-flight lookup misses, then its reservation insert hits
	// the unique constraint left by the winner's commit.
	fx.store.mu.Lock()
	fx.store.concealIdemOnce = true
	fx.store.mu.Unlock()

	form := validForm(11)
	form.Values["team_name"] = []string{"St. Thomas Strikers (resent)"}
	loser, err := fx.app.Register(context.Background(), "key-race", form)
	require.NoError(t, err)

	assert.True(t, loser.Duplicate)
	assert.Equal(t, winner.Response.TeamID, loser.Response.TeamID)
	assert.Len(t, fx.store.teams, 1)
}

func TestRegisterSequentialIDsAcrossSubmissions(t *testing.T) {
	fx := newAppFixture()
	for i := 0; i < 3; i++ {
		form := validForm(11)
		form.Values["team_name"] = []string{fmt.Sprintf("Team %d", i)}
		result, err := fx.app.Register(context.Background(), "", form)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("CYT-%04d", i+1), result.Response.TeamID)
	}
}

func TestPruneLedgerDropsExpiredRows(t *testing.T) {
	fx := newAppFixture()
	fx.store.idem["stale"] = db.IdempotencyKey{Key: "stale", ExpiresAt: time.Now().Add(-time.Hour)}
	fx.store.idem["live"] = db.IdempotencyKey{Key: "live", ExpiresAt: time.Now().Add(time.Hour)}

	fx.app.PruneLedger(context.Background())

	_, stale := fx.store.idem["stale"]
	_, live := fx.store.idem["live"]
	assert.False(t, stale)
	assert.True(t, live)
}
