package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/crickyard/registration/go/internal/events"
)

// Mailer sends the confirmation email for one registration. The SMTP
// implementation lives outside this module; failures are logged, never
// propagated.
type Mailer interface {
	SendConfirmation(ctx context.Context, payload events.TeamRegisteredPayload) error
}

// Worker fans confirmation emails out to a bounded pool. Producers never
// block beyond the enqueue: when the queue is full the event is dropped with
// a warning, matching the best-effort contract.
type Worker struct {
	mailer     Mailer
	numWorkers int
	workCh     chan events.TeamRegisteredPayload

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewWorker(mailer Mailer, numWorkers, queueSize int) *Worker {
	return &Worker{
		mailer:     mailer,
		numWorkers: numWorkers,
		workCh:     make(chan events.TeamRegisteredPayload, queueSize),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.worker(ctx, i)
	}
	log.Info().Int("workers", w.numWorkers).Msg("notification worker started")
}

// Stop drains the queue and waits for in-flight sends.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.workCh)
	w.mu.Unlock()

	w.wg.Wait()
	log.Info().Msg("notification worker stopped")
}

// Submit enqueues one event. Returns false when the event was dropped, either
// because the queue is full or the worker is not running. The mutex covers
// the enqueue so Stop can never close the channel under a send.
func (w *Worker) Submit(payload events.TeamRegisteredPayload) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		log.Warn().Str("team_id", payload.TeamID).Msg("notification worker not running, dropping event")
		return false
	}
	select {
	case w.workCh <- payload:
		return true
	default:
		log.Warn().Str("team_id", payload.TeamID).Msg("notification queue full, dropping event")
		return false
	}
}

// HandleMessage adapts a JetStream delivery into the pool. The message is
// acked on enqueue; a lost email is an accepted cost.
func (w *Worker) HandleMessage(msg jetstream.Msg) {
	var payload events.TeamRegisteredPayload
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		log.Error().Err(err).Msg("failed to decode registration event")
		_ = msg.Ack()
		return
	}
	w.Submit(payload)
	_ = msg.Ack()
}

func (w *Worker) worker(ctx context.Context, id int) {
	defer w.wg.Done()

	for payload := range w.workCh {
		if err := w.mailer.SendConfirmation(ctx, payload); err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", id).
				Str("team_id", payload.TeamID).
				Msg("failed to send confirmation email")
			continue
		}
		log.Info().
			Int("worker_id", id).
			Str("team_id", payload.TeamID).
			Str("to", payload.CaptainEmail).
			Msg("confirmation email sent")
	}
}
