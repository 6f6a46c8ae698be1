package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
)

var ErrInvalidInterval = errors.New("autosave interval must be positive")

// Submitter persists one answer on the server.
type Submitter interface {
	SubmitAnswer(ctx context.Context, sessionID string, req model.SubmitAnswerRequest) error
}

// AutosavePump periodically sends the answer of the question on screen.
// A failed cycle is logged and forgotten; the next cycle simply resends the
// latest answer. FlushNow is the synchronous variant used before navigation
// and finalization, and it reports failures to the caller.
type AutosavePump struct {
	sched     Scheduler
	api       Submitter
	store     *AnswerStore
	sessionID string
	current   func() string
	onFlushed func(questionID string)
	log       zerolog.Logger

	mu      sync.Mutex
	timer   Timer
	ctx     context.Context
	cancel  context.CancelFunc
	paused  bool
	stopped bool
}

// NewAutosavePump wires a pump for sessionID. current returns the id of the
// question on screen, or "" when there is none. onFlushed, if set, runs
// after every successful submit.
func NewAutosavePump(sched Scheduler, api Submitter, store *AnswerStore, sessionID string,
	current func() string, onFlushed func(questionID string), log zerolog.Logger) *AutosavePump {
	return &AutosavePump{
		sched:     sched,
		api:       api,
		store:     store,
		sessionID: sessionID,
		current:   current,
		onFlushed: onFlushed,
		log:       log.With().Str("component", "autosave").Logger(),
	}
}

// Start schedules a cycle every interval.
func (p *AutosavePump) Start(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil || p.stopped {
		return ErrAlreadyStarted
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.timer = p.sched.Every(interval, p.cycle)
	p.log.Debug().Dur("interval", interval).Str("session_id", p.sessionID).Msg("Autosave started")
	return nil
}

func (p *AutosavePump) cycle() {
	p.mu.Lock()
	if p.timer == nil || p.stopped || p.paused {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.mu.Unlock()

	if err := p.flush(ctx); err != nil && ctx.Err() == nil {
		p.log.Warn().Err(err).Str("session_id", p.sessionID).Msg("Autosave failed, will retry next cycle")
	}
}

// FlushNow submits the current answer immediately, if there is one.
func (p *AutosavePump) FlushNow(ctx context.Context) error {
	return p.flush(ctx)
}

func (p *AutosavePump) flush(ctx context.Context) error {
	return p.FlushQuestion(ctx, p.current())
}

// FlushQuestion submits the latest answer of questionID, if it has one.
func (p *AutosavePump) FlushQuestion(ctx context.Context, questionID string) error {
	if questionID == "" {
		return nil
	}
	req, rev, ok := p.store.Pending(questionID)
	if !ok {
		return nil
	}

	if err := p.api.SubmitAnswer(ctx, p.sessionID, req); err != nil {
		return fmt.Errorf("submit answer %s: %w", questionID, err)
	}
	p.store.MarkSent(questionID, rev)

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if !stopped && p.onFlushed != nil {
		p.onFlushed(questionID)
	}
	return nil
}

// FlushPending submits the question on screen, then every answer the server
// has not acknowledged yet. All of them are tried; the failures are joined.
func (p *AutosavePump) FlushPending(ctx context.Context) error {
	cur := p.current()
	errs := []error{p.FlushQuestion(ctx, cur)}
	for _, qid := range p.store.Unsent() {
		if qid == cur {
			continue
		}
		errs = append(errs, p.FlushQuestion(ctx, qid))
	}
	return errors.Join(errs...)
}

// Pause skips cycles until Resume. FlushNow still works.
func (p *AutosavePump) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *AutosavePump) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// Stop cancels the schedule and any cycle in flight. Safe to call twice.
func (p *AutosavePump) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}
}

// Running reports whether cycles are currently effective.
func (p *AutosavePump) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil && !p.stopped && !p.paused
}
