package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
)

var errBoom = errors.New("boom")

// fakeAPI is an in-memory Session API that records every call in order.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []string
	status    model.QuizSessionStatus
	questions []model.Question
	index     int

	submitted   []model.SubmitAnswerRequest
	reports     []model.ActivityType
	finishCalls int

	statusErr, submitErr, navigateErr, markErr, finishErr, reportErr error

	// Hooks run inside the matching call, before it takes effect, to model
	// input arriving while a request is outstanding.
	onNavigate, onPause, onResume func()

	finishEntered chan struct{}
	finishGate    chan struct{}
	reportGate    chan struct{}
}

func newFakeAPI(remaining int) *fakeAPI {
	qs := []model.Question{
		{ID: "q1", Text: "2+2 ?", Type: model.QuestionTypeQCM, Answers: []model.Option{{ID: "a1", Option: "3"}, {ID: "a2", Option: "4"}}},
		{ID: "q2", Text: "Le mot-clé pour déclarer une constante en Go ?", Type: model.QuestionTypeFillBlank},
		{ID: "q3", Text: "Écrire sum(a, b)", Type: model.QuestionTypeCoding},
	}
	return &fakeAPI{
		questions: qs,
		status: model.QuizSessionStatus{
			SessionID:            "s1",
			Status:               model.SessionStatusInProgress,
			TotalQuestions:       len(qs),
			RemainingTimeSeconds: remaining,
		},
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeAPI) Submitted() []model.SubmitAnswerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.SubmitAnswerRequest, len(f.submitted))
	copy(out, f.submitted)
	return out
}

func (f *fakeAPI) FinishCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishCalls
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

// runHook runs and clears *hook, outside the lock.
func (f *fakeAPI) runHook(hook *func()) {
	f.mu.Lock()
	fn := *hook
	*hook = nil
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeAPI) Status(ctx context.Context, sessionID string) (*model.QuizSessionStatus, error) {
	f.record("status")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st := f.status
	st.CurrentQuestionIndex = f.index
	return &st, nil
}

func (f *fakeAPI) SessionInfo(ctx context.Context, sessionID string) (*model.SessionInfo, error) {
	f.record("info")
	return &model.SessionInfo{
		ID:   sessionID,
		Quiz: &model.QuizInfo{Title: "Go basics", EstimatedDuration: 1},
	}, nil
}

func (f *fakeAPI) CurrentQuestion(ctx context.Context, sessionID string) (*model.Question, error) {
	f.record("current")
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.questions[f.index]
	return &q, nil
}

func (f *fakeAPI) SubmitAnswer(ctx context.Context, sessionID string, req model.SubmitAnswerRequest) error {
	f.record("submit:" + req.QuestionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return nil
}

func (f *fakeAPI) Navigate(ctx context.Context, sessionID string, index int) error {
	f.record(fmt.Sprintf("navigate:%d", index))
	f.runHook(&f.onNavigate)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navigateErr != nil {
		return f.navigateErr
	}
	f.index = index
	return nil
}

func (f *fakeAPI) MarkForReview(ctx context.Context, sessionID, questionID string) error {
	f.record("mark:" + questionID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markErr
}

func (f *fakeAPI) Pause(ctx context.Context, sessionID string) error {
	f.record("pause")
	f.runHook(&f.onPause)
	return nil
}

func (f *fakeAPI) Resume(ctx context.Context, sessionID string) error {
	f.record("resume")
	f.runHook(&f.onResume)
	return nil
}

func (f *fakeAPI) Finish(ctx context.Context, sessionID string) (*model.FinishResult, error) {
	f.record("finish")
	f.mu.Lock()
	f.finishCalls++
	entered, gate := f.finishEntered, f.finishGate
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finishErr != nil {
		return nil, f.finishErr
	}
	return &model.FinishResult{
		SessionID:      sessionID,
		CorrectAnswers: len(f.submitted),
		TotalQuestions: len(f.questions),
	}, nil
}

func (f *fakeAPI) ReportActivity(ctx context.Context, sessionID string, activity model.ActivityType) error {
	f.record("report:" + string(activity))
	f.mu.Lock()
	gate := f.reportGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, activity)
	return f.reportErr
}

// noticeLog collects notices posted by a controller.
type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.notices))
	for _, n := range l.notices {
		out = append(out, n.Message)
	}
	return out
}

type harness struct {
	c       *Controller
	api     *fakeAPI
	sched   *ManualScheduler
	notices *noticeLog
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.sched.Fire(time.Second)
	}
}

func (h *harness) autosave() {
	h.sched.Fire(30 * time.Second)
}

func newHarness(t *testing.T, api *fakeAPI, tweak func(*Options)) *harness {
	t.Helper()
	h := &harness{api: api, sched: NewManualScheduler(), notices: &noticeLog{}}
	opts := Options{
		Scheduler:        h.sched,
		AutosaveInterval: 30 * time.Second,
		Notify:           h.notices.add,
		Logger:           zerolog.Nop(),
	}
	if tweak != nil {
		tweak(&opts)
	}
	h.c = NewController(api, "s1", opts)
	t.Cleanup(h.c.Close)
	return h
}

func loadedHarness(t *testing.T, api *fakeAPI, tweak func(*Options)) *harness {
	t.Helper()
	h := newHarness(t, api, tweak)
	require.NoError(t, h.c.Load(context.Background()))
	return h
}
