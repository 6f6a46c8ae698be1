package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SijoOrganization/sijo-qcm-front/internal/config"
	"github.com/SijoOrganization/sijo-qcm-front/internal/handler"
	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/response"
	"github.com/SijoOrganization/sijo-qcm-front/internal/router"
	"github.com/SijoOrganization/sijo-qcm-front/internal/service"
	"github.com/SijoOrganization/sijo-qcm-front/internal/validator"
)

const (
	candidateEmail = "candidate@example.com"
	accessCode     = "sandbox123"
)

type testClock struct{ ns atomic.Int64 }

func (c *testClock) now() time.Time          { return time.Unix(0, c.ns.Load()) }
func (c *testClock) advance(d time.Duration) { c.ns.Add(int64(d)) }

type envelope struct {
	Data     json.RawMessage     `json:"data"`
	Error    *response.ErrorBody `json:"error"`
	Metadata response.Metadata   `json:"metadata"`
}

type sandbox struct {
	srv      *httptest.Server
	clock    *testClock
	sessions *service.QuizSessionService
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	validator.Setup()

	cfg := &config.Config{
		GinMode:               "test",
		JWTSecret:             "router-test-secret",
		JWTExpiry:             time.Hour,
		BcryptCost:            bcrypt.MinCost,
		SandboxCandidateEmail: candidateEmail,
		SandboxAccessCode:     accessCode,
		TimeSyncInterval:      20 * time.Millisecond,
		ActivityRatePerMinute: 2,
	}
	auth, err := service.NewAuthService(cfg)
	require.NoError(t, err)

	clock := &testClock{}
	clock.ns.Store(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC).UnixNano())
	sessions := service.NewQuizSessionService(zerolog.Nop(), []*service.Quiz{service.SeedQuiz(1)}, service.WithClock(clock.now))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	engine := router.SetupRouter(ctx, auth, &router.Handlers{
		Auth:    handler.NewAuthHandler(auth),
		Session: handler.NewSessionHandler(sessions),
		Live:    handler.NewLiveHandler(sessions, cfg.TimeSyncInterval, zerolog.Nop(), nil),
	}, cfg)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return &sandbox{srv: srv, clock: clock, sessions: sessions}
}

func (s *sandbox) call(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (s *sandbox) login(t *testing.T) model.LoginResponse {
	t.Helper()
	status, env := s.call(t, http.MethodPost, "/api/auth/candidate/login", "",
		model.LoginRequest{Email: candidateEmail, AccessCode: accessCode})
	require.Equal(t, http.StatusOK, status)
	var out model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Token)
	return out
}

func (s *sandbox) start(t *testing.T, login model.LoginResponse) string {
	t.Helper()
	status, env := s.call(t, http.MethodPost, "/api/candidate/start-quiz", login.Token,
		model.StartQuizRequest{CandidateID: login.CandidateID, QuizID: service.SeedQuizID, DurationMinutes: 1})
	require.Equal(t, http.StatusCreated, status)
	var out model.QuizSessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out.SessionID
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newSandbox(t)
	status, env := s.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, env.Metadata.RequestID)
}

func TestLoginFailures(t *testing.T) {
	s := newSandbox(t)

	status, env := s.call(t, http.MethodPost, "/api/auth/candidate/login", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "email")

	status, env = s.call(t, http.MethodPost, "/api/auth/candidate/login", "",
		model.LoginRequest{Email: candidateEmail, AccessCode: "wrong-code"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrInvalidCredentials, env.Error.Code)
}

func TestCandidateRoutesNeedAToken(t *testing.T) {
	s := newSandbox(t)

	status, env := s.call(t, http.MethodGet, "/api/candidate/session/x/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrTokenRequired, env.Error.Code)

	status, env = s.call(t, http.MethodGet, "/api/candidate/session/x/status", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrTokenInvalid, env.Error.Code)
}

func TestStartQuizForAnotherCandidateIsForbidden(t *testing.T) {
	s := newSandbox(t)
	login := s.login(t)

	status, env := s.call(t, http.MethodPost, "/api/candidate/start-quiz", login.Token,
		model.StartQuizRequest{CandidateID: "someone-else", QuizID: service.SeedQuizID})
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrForbidden, env.Error.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newSandbox(t)
	login := s.login(t)
	id := s.start(t, login)
	base := "/api/candidate/session/" + id

	status, env := s.call(t, http.MethodGet, base+"/info", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	info := decode[model.SessionInfo](t, env)
	require.NotNil(t, info.Quiz)
	assert.Equal(t, 60, info.DurationSeconds())

	status, env = s.call(t, http.MethodGet, base+"/current-question", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	q := decode[model.Question](t, env)
	assert.Equal(t, "q-slices", q.ID)

	status, _ = s.call(t, http.MethodPost, base+"/submit-answer", login.Token, model.SubmitAnswerRequest{
		QuestionID: "q-slices", QuestionType: model.QuestionTypeQCM, SelectedOptionID: "o-zero", TimeSpentSeconds: 4,
	})
	require.Equal(t, http.StatusOK, status)

	status, env = s.call(t, http.MethodPost, base+"/submit-answer", login.Token, model.SubmitAnswerRequest{
		QuestionID: "q-slices", QuestionType: model.QuestionTypeCoding, CodeSubmission: "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrAnswerTypeMismatch, env.Error.Code)

	status, _ = s.call(t, http.MethodPost, base+"/navigate", login.Token, model.NavigateRequest{QuestionIndex: 1})
	require.Equal(t, http.StatusOK, status)
	status, env = s.call(t, http.MethodPost, base+"/navigate", login.Token, model.NavigateRequest{QuestionIndex: 9})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrQuestionOutOfRange, env.Error.Code)

	status, _ = s.call(t, http.MethodPost, base+"/mark-review", login.Token, model.MarkReviewRequest{QuestionID: "q-goroutine"})
	require.Equal(t, http.StatusOK, status)

	s.clock.advance(15 * time.Second)
	status, env = s.call(t, http.MethodGet, base+"/time-remaining", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 45, decode[model.TimeRemaining](t, env).RemainingTimeSeconds)

	status, env = s.call(t, http.MethodGet, base+"/status", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	st := decode[model.QuizSessionStatus](t, env)
	assert.Equal(t, model.SessionStatusInProgress, st.Status)
	assert.Equal(t, 1, st.CurrentQuestionIndex)
	assert.Equal(t, 1, st.AnsweredQuestions)
	assert.Equal(t, 1, st.MarkedForReview)

	status, env = s.call(t, http.MethodPost, base+"/finish", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	res := decode[model.FinishResult](t, env)
	assert.Equal(t, id, res.SessionID)
	assert.Equal(t, 1, res.CorrectAnswers)

	status, env = s.call(t, http.MethodPost, base+"/finish", login.Token, nil)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrSessionAlreadyFinal, env.Error.Code)
}

func TestPausedSessionRefusesAnswers(t *testing.T) {
	s := newSandbox(t)
	login := s.login(t)
	base := "/api/candidate/session/" + s.start(t, login)

	status, _ := s.call(t, http.MethodPost, base+"/pause", login.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env := s.call(t, http.MethodPost, base+"/submit-answer", login.Token, model.SubmitAnswerRequest{
		QuestionID: "q-defer", QuestionType: model.QuestionTypeFillBlank, TextAnswer: "defer",
	})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrSessionPaused, env.Error.Code)

	status, _ = s.call(t, http.MethodPost, base+"/resume", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestReportActivityIsRateLimited(t *testing.T) {
	s := newSandbox(t)
	login := s.login(t)
	id := s.start(t, login)
	path := "/api/candidate/session/" + id + "/report-activity"
	body := model.ReportActivityRequest{ActivityType: model.ActivityTabSwitch}

	status, _ := s.call(t, http.MethodPost, path, login.Token, body)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = s.call(t, http.MethodPost, path, login.Token, body)
	assert.Equal(t, http.StatusNoContent, status)

	status, env := s.call(t, http.MethodPost, path, login.Token, body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrRateLimitExceeded, env.Error.Code)

	assert.Len(t, s.sessions.Activities(id), 2)

	status, _ = s.call(t, http.MethodPost, path, login.Token, map[string]string{"activityType": "COPY"})
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func streamURL(s *sandbox, id, token string) string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/candidate/session/" + id + "/stream?token=" + token
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]interface{}
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestLiveStreamSyncsThenForcesFinish(t *testing.T) {
	s := newSandbox(t)
	login := s.login(t)
	id := s.start(t, login)

	conn, _, err := websocket.DefaultDialer.Dial(streamURL(s, id, login.Token), nil)
	require.NoError(t, err)
	defer conn.Close()

	ev := readEvent(t, conn)
	assert.Equal(t, "time_sync", ev["event"])
	assert.EqualValues(t, 60, ev["remaining_seconds"])

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	sawPong := false
	for i := 0; i < 50 && !sawPong; i++ {
		sawPong = readEvent(t, conn)["event"] == "pong"
	}
	assert.True(t, sawPong)

	s.clock.advance(2 * time.Minute)
	sawFinish := false
	for i := 0; i < 50 && !sawFinish; i++ {
		ev := readEvent(t, conn)
		if ev["event"] == "force_finish" {
			sawFinish = true
			assert.Equal(t, "expired", ev["reason"])
		}
	}
	require.True(t, sawFinish)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server closes the stream after force_finish")
}

func TestLiveStreamRejectsUnknownSession(t *testing.T) {
	s := newSandbox(t)
	login := s.login(t)

	_, resp, err := websocket.DefaultDialer.Dial(streamURL(s, "missing", login.Token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(streamURL(s, "missing", ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
