package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/sessionapi"
)

// API is the slice of the Session API the controller depends on.
type API interface {
	Submitter
	Status(ctx context.Context, sessionID string) (*model.QuizSessionStatus, error)
	SessionInfo(ctx context.Context, sessionID string) (*model.SessionInfo, error)
	CurrentQuestion(ctx context.Context, sessionID string) (*model.Question, error)
	Navigate(ctx context.Context, sessionID string, questionIndex int) error
	MarkForReview(ctx context.Context, sessionID, questionID string) error
	Pause(ctx context.Context, sessionID string) error
	Resume(ctx context.Context, sessionID string) error
	Finish(ctx context.Context, sessionID string) (*model.FinishResult, error)
	ReportActivity(ctx context.Context, sessionID string, activity model.ActivityType) error
}

var _ API = (*sessionapi.Client)(nil)

// DraftStore keeps unsent answers across client restarts.
type DraftStore interface {
	Save(ctx context.Context, sessionID string, req model.SubmitAnswerRequest) error
	Load(ctx context.Context, sessionID string) ([]model.SubmitAnswerRequest, error)
	Clear(ctx context.Context, sessionID string) error
}

type State int

const (
	StateLoading State = iota
	StateActive
	StatePaused
	StateFinishing
	StateExpiredFinishing
	StateFinished
	StateFinalizeFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateFinishing:
		return "finishing"
	case StateExpiredFinishing:
		return "expired_finishing"
	case StateFinished:
		return "finished"
	case StateFinalizeFailed:
		return "finalize_failed"
	default:
		return "unknown"
	}
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is an asynchronous message for the candidate. Kind is set for
// failures only.
type Notice struct {
	Level   Level
	Kind    Kind
	Message string
}

const (
	msgLastQuestion  = "Dernière question ! Vous pouvez maintenant terminer le quiz."
	msgMarked        = "Question marquée pour révision."
	msgPaused        = "Quiz mis en pause."
	msgResumed       = "Quiz repris."
	msgTimeUp        = "Le temps est écoulé. Le quiz va être automatiquement terminé."
	msgFinished      = "Quiz terminé avec succès !"
	msgClosedRemote  = "Le quiz a déjà été finalisé."
	msgConfirmFinish = "Êtes-vous sûr de vouloir terminer le quiz ? Vous ne pourrez plus modifier vos réponses."
	msgConfirmMissed = "Certaines questions n'ont pas de réponse. Voulez-vous vraiment terminer le quiz ?"
)

type Options struct {
	Scheduler           Scheduler
	AutosaveInterval    time.Duration
	LargePasteThreshold int
	// BackgroundTimeout bounds fire-and-forget calls (activity reports,
	// draft writes) that outlive the operation that started them.
	BackgroundTimeout time.Duration
	Drafts            DraftStore
	// Confirm asks the candidate before a manual finish. Nil means the
	// caller has already confirmed.
	Confirm func(message string) bool
	Notify  func(Notice)
	Logger  zerolog.Logger
}

func (o *Options) applyDefaults() {
	if o.Scheduler == nil {
		o.Scheduler = TickerScheduler{}
	}
	if o.AutosaveInterval <= 0 {
		o.AutosaveInterval = 30 * time.Second
	}
	if o.LargePasteThreshold <= 0 {
		o.LargePasteThreshold = 100
	}
	if o.BackgroundTimeout <= 0 {
		o.BackgroundTimeout = 5 * time.Second
	}
}

// Controller drives one quiz attempt: it owns the clock and the autosave
// pump, sequences navigation after answer persistence, and guarantees a
// single finalize per session.
type Controller struct {
	api       API
	sessionID string
	opts      Options
	log       zerolog.Logger

	store *AnswerStore
	marks *ReviewMarks
	clock *Clock
	pump  *AutosavePump

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup
	done   chan struct{}

	mu         sync.Mutex
	state      State
	closed     bool
	finalizing bool
	info       *model.SessionInfo
	question   *model.Question
	index      int
	total      int
	initial    int
	answered   map[string]bool
	result     *model.FinishResult
}

func NewController(api API, sessionID string, opts Options) *Controller {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:       api,
		sessionID: sessionID,
		opts:      opts,
		log:       opts.Logger.With().Str("component", "session").Str("session_id", sessionID).Logger(),
		store:     NewAnswerStore(0),
		marks:     NewReviewMarks(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		answered:  make(map[string]bool),
	}
	c.clock = NewClock(opts.Scheduler, c.onTick, c.onExpired)
	c.pump = NewAutosavePump(opts.Scheduler, api, c.store, sessionID, c.currentQuestionID, c.markAnswered, opts.Logger)
	return c
}

func (c *Controller) SessionID() string { return c.sessionID }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result is the finish result once the controller is Finished.
func (c *Controller) Result() *model.FinishResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Done is closed when the attempt is finished or the controller is closed.
func (c *Controller) Done() <-chan struct{} { return c.done }

// ────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ────────────────────────────────────────────────────────────────────────────

// Load fetches the session and its current question, then starts the clock
// and the autosave pump. A completed or expired session cannot be loaded.
func (c *Controller) Load(ctx context.Context) error {
	if _, err := c.snapshot("load", StateLoading); err != nil {
		return err
	}

	st, err := c.api.Status(ctx, c.sessionID)
	if err != nil {
		return c.fail(KindFatalLoad, "load", msgLoad, err)
	}
	if st.Status.Closed() {
		return c.fail(KindFatalLoad, "load", msgLoad, fmt.Errorf("%w: %s", ErrSessionClosed, st.Status))
	}

	info, err := c.api.SessionInfo(ctx, c.sessionID)
	if err != nil {
		c.log.Warn().Err(err).Msg("Session info unavailable")
		info = nil
	}

	q, err := c.api.CurrentQuestion(ctx, c.sessionID)
	if err != nil {
		return c.fail(KindFatalLoad, "load", msgLoad, err)
	}

	restored := c.restoreDrafts(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return newError(KindFatalLoad, "load", msgLoad, ErrClosed)
	}
	c.info = info
	c.total = st.TotalQuestions
	c.initial = st.RemainingTimeSeconds
	c.store.SetTotal(st.TotalQuestions)
	c.setQuestionLocked(st.CurrentQuestionIndex, q)

	if err := c.clock.Start(st.RemainingTimeSeconds); err != nil {
		c.mu.Unlock()
		return c.fail(KindFatalLoad, "load", msgLoad, err)
	}
	if err := c.pump.Start(c.opts.AutosaveInterval); err != nil {
		c.clock.Stop()
		c.mu.Unlock()
		return c.fail(KindFatalLoad, "load", msgLoad, err)
	}
	c.state = StateActive
	if st.Status == model.SessionStatusPaused {
		c.state = StatePaused
		c.clock.Pause()
		c.pump.Pause()
	}
	state := c.state
	c.mu.Unlock()

	c.log.Info().
		Int("index", st.CurrentQuestionIndex).
		Int("total", st.TotalQuestions).
		Int("remaining", st.RemainingTimeSeconds).
		Str("state", state.String()).
		Msg("Session loaded")

	if len(restored) > 0 {
		c.resubmit(restored)
	}
	return nil
}

// Close tears the controller down from any state: both timers are released
// and in-flight background calls are awaited.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.clock.Stop()
	c.pump.Stop()
	c.cancel()
	c.closeDoneLocked()
	c.mu.Unlock()

	c.bg.Wait()
	c.log.Debug().Msg("Session controller closed")
}

// ────────────────────────────────────────────────────────────────────────────
// Answers and navigation
// ────────────────────────────────────────────────────────────────────────────

// SetAnswer records the answer for the question on screen. It is persisted
// by the next autosave cycle or navigation.
func (c *Controller) SetAnswer(a model.Answer) error {
	cur, err := c.snapshot("set_answer", StateActive)
	if err != nil {
		return err
	}
	q := cur.question

	switch v := a.(type) {
	case model.ChoiceAnswer:
		if !v.IsEmpty() && len(q.Answers) > 0 && !q.HasOption(v.OptionID) {
			return newError(KindRetryable, "set_answer", msgSave, fmt.Errorf("%w: unknown option %s", model.ErrInvalidAnswer, v.OptionID))
		}
	case model.CodeAnswer:
		if v.Language == "" {
			v.Language = q.DefaultLanguage()
			a = v
		}
	}

	if err := c.store.SetAnswer(q.ID, a); err != nil {
		return newError(KindRetryable, "set_answer", msgSave, err)
	}
	c.saveDraft(q.ID)
	return nil
}

// Next persists the current answer and moves forward. On the last question
// it only persists and posts a notice.
func (c *Controller) Next(ctx context.Context) error {
	cur, err := c.snapshot("next", StateActive)
	if err != nil {
		return err
	}
	if cur.index >= cur.total-1 {
		if err := c.pump.FlushNow(ctx); err != nil {
			return c.fail(KindRetryable, "next", msgSave, err)
		}
		c.notify(Notice{Level: LevelInfo, Message: msgLastQuestion})
		return nil
	}
	return c.moveTo(ctx, "next", cur.index+1)
}

// Previous moves back one question. No-op on the first question.
func (c *Controller) Previous(ctx context.Context) error {
	cur, err := c.snapshot("previous", StateActive)
	if err != nil {
		return err
	}
	if cur.index == 0 {
		return nil
	}
	return c.moveTo(ctx, "previous", cur.index-1)
}

// GoTo jumps to the question at index.
func (c *Controller) GoTo(ctx context.Context, index int) error {
	cur, err := c.snapshot("goto", StateActive)
	if err != nil {
		return err
	}
	if index < 0 || index >= cur.total {
		return newError(KindRetryable, "goto", msgOutOfRange, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, cur.total))
	}
	if index == cur.index {
		return nil
	}
	return c.moveTo(ctx, "goto", index)
}

// moveTo flushes, navigates, then loads the new question. Any failure leaves
// the controller on the question it was on. An answer written to the old
// question while the requests were out is sent once the cursor has moved.
func (c *Controller) moveTo(ctx context.Context, op string, index int) error {
	prev := c.currentQuestionID()
	if err := c.pump.FlushNow(ctx); err != nil {
		return c.fail(KindRetryable, op, msgSave, err)
	}
	if err := c.api.Navigate(ctx, c.sessionID, index); err != nil {
		return c.fail(KindRetryable, op, msgNavigate, err)
	}
	q, err := c.api.CurrentQuestion(ctx, c.sessionID)
	if err != nil {
		return c.fail(KindRetryable, op, msgLoadQuestion, err)
	}

	c.mu.Lock()
	if c.closed || c.state != StateActive {
		c.mu.Unlock()
		return newError(KindRetryable, op, msgState, ErrInvalidState)
	}
	c.setQuestionLocked(index, q)
	c.mu.Unlock()

	if prev != q.ID && c.store.IsUnsent(prev) {
		if err := c.pump.FlushQuestion(ctx, prev); err != nil {
			c.log.Warn().Err(err).Str("question_id", prev).Msg("Late answer not saved, will resend before finish")
		}
	}
	return nil
}

// MarkForReview flags the question on screen. Marking twice is harmless.
func (c *Controller) MarkForReview(ctx context.Context) error {
	cur, err := c.snapshot("mark_review", StateActive)
	if err != nil {
		return err
	}
	if err := c.api.MarkForReview(ctx, c.sessionID, cur.question.ID); err != nil {
		return c.fail(KindRetryable, "mark_review", msgMark, err)
	}
	if c.marks.Add(cur.question.ID) {
		c.notify(Notice{Level: LevelInfo, Message: msgMarked})
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Pause / resume
// ────────────────────────────────────────────────────────────────────────────

// Pause suspends the clock and the autosave pump once the server agrees.
func (c *Controller) Pause(ctx context.Context) error {
	if _, err := c.snapshot("pause", StateActive); err != nil {
		return err
	}
	if err := c.api.Pause(ctx, c.sessionID); err != nil {
		return c.fail(KindRetryable, "pause", msgPause, err)
	}

	c.mu.Lock()
	if c.closed || c.state != StateActive {
		state := c.state
		c.mu.Unlock()
		return newError(KindRetryable, "pause", msgState, fmt.Errorf("%w: %s", ErrInvalidState, state))
	}
	c.state = StatePaused
	c.clock.Pause()
	c.pump.Pause()
	c.mu.Unlock()
	c.notify(Notice{Level: LevelInfo, Message: msgPaused})
	return nil
}

func (c *Controller) Resume(ctx context.Context) error {
	if _, err := c.snapshot("resume", StatePaused); err != nil {
		return err
	}
	if err := c.api.Resume(ctx, c.sessionID); err != nil {
		return c.fail(KindRetryable, "resume", msgResume, err)
	}

	c.mu.Lock()
	if c.closed || c.state != StatePaused {
		state := c.state
		c.mu.Unlock()
		return newError(KindRetryable, "resume", msgState, fmt.Errorf("%w: %s", ErrInvalidState, state))
	}
	c.state = StateActive
	c.clock.Resume()
	c.pump.Resume()
	c.mu.Unlock()
	c.notify(Notice{Level: LevelInfo, Message: msgResumed})
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Finalization
// ────────────────────────────────────────────────────────────────────────────

// Finish ends the attempt after the candidate confirms. Retrying after a
// failed automatic finish does not ask again.
func (c *Controller) Finish(ctx context.Context) (*model.FinishResult, error) {
	cur, err := c.snapshot("finish", StateActive, StatePaused, StateFinalizeFailed)
	if err != nil {
		return nil, err
	}

	if cur.state != StateFinalizeFailed && c.opts.Confirm != nil {
		msg := msgConfirmFinish
		if !c.store.AllAnswered() {
			msg = msgConfirmMissed
		}
		if !c.opts.Confirm(msg) {
			return nil, ErrNotConfirmed
		}
	}
	return c.finalize(ctx, false)
}

// ForceFinish runs the automatic finish path, as when the server pushes a
// force_finish event. It cannot be cancelled by the candidate.
func (c *Controller) ForceFinish() {
	c.autoFinish("forced")
}

func (c *Controller) onExpired() {
	c.autoFinish("expired")
}

func (c *Controller) autoFinish(reason string) {
	c.log.Info().Str("reason", reason).Msg("Finishing session automatically")
	if _, err := c.finalize(c.ctx, true); err != nil && !errors.Is(err, ErrFinalizeInFlight) {
		c.log.Warn().Err(err).Str("reason", reason).Msg("Automatic finish failed")
	}
}

// finalize is the only path to the finish call. At most one runs at a time;
// a second request while one is in flight gets ErrFinalizeInFlight.
func (c *Controller) finalize(ctx context.Context, auto bool) (*model.FinishResult, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, newError(KindFinalization, "finish", msgFinish, ErrClosed)
	case c.finalizing:
		c.mu.Unlock()
		return nil, newError(KindFinalization, "finish", msgInFlight, ErrFinalizeInFlight)
	case c.state == StateFinished:
		res := c.result
		c.mu.Unlock()
		return res, nil
	case c.state != StateActive && c.state != StatePaused && c.state != StateFinalizeFailed:
		state := c.state
		c.mu.Unlock()
		return nil, newError(KindFinalization, "finish", msgState, fmt.Errorf("%w: %s", ErrInvalidState, state))
	}

	prev := c.state
	c.finalizing = true
	c.state = StateFinishing
	if auto {
		c.state = StateExpiredFinishing
		c.clock.Stop()
	}
	c.pump.Pause()
	c.mu.Unlock()

	if auto && prev != StateFinalizeFailed {
		c.notify(Notice{Level: LevelWarning, Message: msgTimeUp})
	}

	if err := c.pump.FlushPending(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Final answer flush failed, finishing anyway")
		c.notify(Notice{Level: LevelError, Kind: KindFinalization, Message: msgFinalSave})
	}

	res, err := c.api.Finish(ctx, c.sessionID)

	c.mu.Lock()
	c.finalizing = false
	if err != nil {
		if auto || prev == StateFinalizeFailed || c.closed || c.clock.Expired() {
			c.state = StateFinalizeFailed
			c.clock.Stop()
			c.pump.Stop()
		} else {
			c.state = prev
			if prev == StateActive {
				c.pump.Resume()
			}
		}
		c.mu.Unlock()

		e := c.fail(KindFinalization, "finish", msgFinish, err)
		if auto {
			c.notify(Notice{Level: LevelError, Kind: KindFinalization, Message: e.Message})
		}
		return nil, e
	}

	c.state = StateFinished
	c.result = res
	c.clock.Stop()
	c.pump.Stop()
	c.closeDoneLocked()
	c.mu.Unlock()

	c.clearDrafts()
	c.log.Info().
		Int("correct", res.CorrectAnswers).
		Int("total", res.TotalQuestions).
		Float64("score", res.TotalScore).
		Msg("Session finished")
	c.notify(Notice{Level: LevelSuccess, Message: msgFinished})
	return res, nil
}

// Reconcile asks the server where the session stands. A session the server
// already closed moves the controller to Finished.
func (c *Controller) Reconcile(ctx context.Context) (*model.QuizSessionStatus, error) {
	if _, err := c.snapshot("reconcile", StateActive, StatePaused, StateFinalizeFailed); err != nil {
		return nil, err
	}
	st, err := c.api.Status(ctx, c.sessionID)
	if err != nil {
		return nil, c.fail(KindRetryable, "reconcile", msgLoad, err)
	}
	if !st.Status.Closed() {
		return st, nil
	}

	c.mu.Lock()
	moved := false
	if !c.finalizing && c.state != StateFinished {
		c.state = StateFinished
		c.clock.Stop()
		c.pump.Stop()
		c.closeDoneLocked()
		moved = true
	}
	c.mu.Unlock()

	if moved {
		c.clearDrafts()
		c.log.Info().Str("status", string(st.Status)).Msg("Session closed on server")
		c.notify(Notice{Level: LevelInfo, Message: msgClosedRemote})
	}
	return st, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Integrity reports and live updates
// ────────────────────────────────────────────────────────────────────────────

// ReportTabHidden reports that the quiz lost visibility.
func (c *Controller) ReportTabHidden() {
	c.report(model.ActivityTabSwitch)
}

// ReportPaste reports a paste longer than the configured threshold and says
// whether it did.
func (c *Controller) ReportPaste(text string) bool {
	if utf8.RuneCountInString(text) <= c.opts.LargePasteThreshold {
		return false
	}
	c.report(model.ActivityLargePaste)
	return true
}

// report is fire-and-forget: it never blocks the caller and its failure is
// only logged.
func (c *Controller) report(activity model.ActivityType) {
	c.mu.Lock()
	ok := c.state == StateActive || c.state == StatePaused
	c.mu.Unlock()
	if !ok {
		return
	}
	c.goBackground(func(ctx context.Context) {
		if err := c.api.ReportActivity(ctx, c.sessionID, activity); err != nil {
			c.log.Warn().Err(err).Str("activity", string(activity)).Msg("Activity report failed")
		}
	})
}

// SyncRemaining applies a server time-sync to the clock.
func (c *Controller) SyncRemaining(seconds int) {
	c.mu.Lock()
	ok := c.state == StateActive || c.state == StatePaused
	c.mu.Unlock()
	if ok {
		c.clock.Sync(seconds)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────────────────────

// View is a read-only snapshot for rendering.
type View struct {
	State            State
	SessionID        string
	Title            string
	Question         *model.Question
	Index            int
	Total            int
	CurrentAnswer    model.Answer
	CurrentAnswered  bool
	CurrentMarked    bool
	Remaining        int
	RemainingDisplay string
	Color            TimeColor
	Answered         int
	Progress         float64
	Marked           []string
	Result           *model.FinishResult
}

func (c *Controller) View() View {
	c.mu.Lock()
	v := View{
		State:     c.state,
		SessionID: c.sessionID,
		Question:  c.question,
		Index:     c.index,
		Total:     c.total,
		Answered:  len(c.answered),
		Result:    c.result,
	}
	duration := c.initial
	if c.info != nil {
		if d := c.info.DurationSeconds(); d > 0 {
			duration = d
		}
		if c.info.Quiz != nil {
			v.Title = c.info.Quiz.Title
		}
	}
	if c.question != nil {
		v.CurrentAnswered = c.answered[c.question.ID]
	}
	c.mu.Unlock()

	if v.Question != nil {
		v.CurrentAnswer, _ = c.store.GetAnswer(v.Question.ID)
		v.CurrentMarked = c.marks.Has(v.Question.ID)
	}
	if v.Total > 0 {
		v.Progress = float64(v.Answered) / float64(v.Total)
	}
	v.Marked = c.marks.IDs()
	v.Remaining = c.clock.Remaining()
	v.RemainingDisplay = FormatRemaining(v.Remaining)
	v.Color = ColorFor(v.Remaining, duration)
	return v
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

type cursor struct {
	state    State
	question *model.Question
	index    int
	total    int
}

// snapshot returns the cursor if the controller is in one of allowed.
func (c *Controller) snapshot(op string, allowed ...State) (cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kind := KindRetryable
	if op == "load" {
		kind = KindFatalLoad
	} else if op == "finish" {
		kind = KindFinalization
	}

	switch {
	case c.closed:
		return cursor{}, newError(kind, op, msgState, ErrClosed)
	case c.finalizing:
		return cursor{}, newError(kind, op, msgInFlight, ErrFinalizeInFlight)
	}
	for _, s := range allowed {
		if c.state == s {
			return cursor{state: c.state, question: c.question, index: c.index, total: c.total}, nil
		}
	}
	return cursor{}, newError(kind, op, msgState, fmt.Errorf("%w: %s", ErrInvalidState, c.state))
}

func (c *Controller) setQuestionLocked(index int, q *model.Question) {
	c.index = index
	c.question = q
	c.store.Declare(q.ID, q.Type)
}

func (c *Controller) currentQuestionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.question == nil {
		return ""
	}
	return c.question.ID
}

func (c *Controller) markAnswered(questionID string) {
	c.mu.Lock()
	c.answered[questionID] = true
	c.mu.Unlock()
}

// onTick credits one second to the question on screen.
func (c *Controller) onTick(int) {
	c.mu.Lock()
	var qid string
	if c.state == StateActive && c.question != nil {
		qid = c.question.ID
	}
	c.mu.Unlock()
	c.store.AddTime(qid, 1)
}

func (c *Controller) closeDoneLocked() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *Controller) notify(n Notice) {
	if c.opts.Notify != nil {
		c.opts.Notify(n)
	}
}

func (c *Controller) fail(kind Kind, op, fallback string, err error) *Error {
	e := newError(kind, op, fallback, err)
	ev := c.log.Warn()
	if kind == KindFatalLoad || kind == KindFinalization {
		ev = c.log.Error()
	}
	ev.Err(err).Str("op", op).Str("kind", kind.String()).Msg("Session operation failed")
	return e
}

// goBackground runs fn on its own timeout, detached from the caller. Close
// waits for it.
func (c *Controller) goBackground(fn func(ctx context.Context)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.bg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.BackgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (c *Controller) saveDraft(questionID string) {
	if c.opts.Drafts == nil {
		return
	}
	req, ok := c.store.Request(questionID)
	if !ok {
		return
	}
	c.goBackground(func(ctx context.Context) {
		if err := c.opts.Drafts.Save(ctx, c.sessionID, req); err != nil {
			c.log.Warn().Err(err).Str("question_id", questionID).Msg("Draft save failed")
		}
	})
}

func (c *Controller) clearDrafts() {
	if c.opts.Drafts == nil {
		return
	}
	c.goBackground(func(ctx context.Context) {
		if err := c.opts.Drafts.Clear(ctx, c.sessionID); err != nil {
			c.log.Warn().Err(err).Msg("Draft clear failed")
		}
	})
}

// restoreDrafts loads cached answers into the store.
func (c *Controller) restoreDrafts(ctx context.Context) []string {
	if c.opts.Drafts == nil {
		return nil
	}
	reqs, err := c.opts.Drafts.Load(ctx, c.sessionID)
	if err != nil {
		c.log.Warn().Err(err).Msg("Draft restore failed")
		return nil
	}

	var ids []string
	for _, r := range reqs {
		a, err := r.Answer()
		if err != nil {
			c.log.Warn().Err(err).Str("question_id", r.QuestionID).Msg("Skipping unreadable draft")
			continue
		}
		if err := c.store.SetAnswer(r.QuestionID, a); err != nil {
			continue
		}
		c.store.AddTime(r.QuestionID, r.TimeSpentSeconds)
		ids = append(ids, r.QuestionID)
	}
	if len(ids) > 0 {
		c.log.Info().Int("count", len(ids)).Msg("Restored draft answers")
	}
	return ids
}

// resubmit sends restored drafts so the server catches up with answers it
// may never have received.
func (c *Controller) resubmit(questionIDs []string) {
	c.goBackground(func(ctx context.Context) {
		for _, qid := range questionIDs {
			req, rev, ok := c.store.Pending(qid)
			if !ok {
				continue
			}
			if err := c.api.SubmitAnswer(ctx, c.sessionID, req); err != nil {
				c.log.Warn().Err(err).Str("question_id", qid).Msg("Draft resubmit failed")
				continue
			}
			c.store.MarkSent(qid, rev)
			c.markAnswered(qid)
		}
	})
}
