package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
)

// Session errors. Handlers map them onto response codes.
var (
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session closed")
	ErrSessionPaused       = errors.New("session paused")
	ErrSessionAlreadyFinal = errors.New("session already finished")
	ErrQuestionOutOfRange  = errors.New("question index out of range")
	ErrUnknownQuestion     = errors.New("unknown question")
	ErrAnswerTypeMismatch  = errors.New("answer type mismatch")
)

// submitGrace lets the final autosave of an expired attempt through.
const submitGrace = 5 * time.Second

type quizSession struct {
	id          string
	candidateID string
	quiz        *Quiz
	status      model.SessionStatus
	index       int
	answers     map[string]model.SubmitAnswerRequest
	marked      map[string]bool
	activities  []model.ActivityType
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	result      *model.FinishResult
}

// QuizSessionService is the sandbox's in-memory Session API. It stands in
// for the real backend during development and tests; it is not authoritative.
type QuizSessionService struct {
	mu       sync.Mutex
	quizzes  map[string]*Quiz
	sessions map[string]*quizSession
	now      func() time.Time
	log      zerolog.Logger
}

type QuizSessionOption func(*QuizSessionService)

// WithClock replaces time.Now, so tests can move time forward.
func WithClock(now func() time.Time) QuizSessionOption {
	return func(s *QuizSessionService) { s.now = now }
}

func NewQuizSessionService(log zerolog.Logger, quizzes []*Quiz, opts ...QuizSessionOption) *QuizSessionService {
	s := &QuizSessionService{
		quizzes:  make(map[string]*Quiz, len(quizzes)),
		sessions: make(map[string]*quizSession),
		now:      time.Now,
		log:      log.With().Str("component", "quiz_session_service").Logger(),
	}
	for _, q := range quizzes {
		s.quizzes[q.ID] = q
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new in-progress session.
func (s *QuizSessionService) Start(candidateID string, req model.StartQuizRequest) (*model.QuizSessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, ok := s.quizzes[req.QuizID]
	if !ok {
		return nil, ErrQuizNotFound
	}
	if req.DurationMinutes > 0 && req.DurationMinutes != quiz.DurationMinutes {
		// The caller may shorten or extend its own sandbox attempt.
		copied := *quiz
		copied.DurationMinutes = req.DurationMinutes
		quiz = &copied
	}

	sess := &quizSession{
		id:          uuid.New().String(),
		candidateID: candidateID,
		quiz:        quiz,
		status:      model.SessionStatusInProgress,
		answers:     make(map[string]model.SubmitAnswerRequest),
		marked:      make(map[string]bool),
		startedAt:   s.now(),
	}
	s.sessions[sess.id] = sess

	s.log.Info().
		Str("session_id", sess.id).
		Str("quiz_id", quiz.ID).
		Int("duration_minutes", quiz.DurationMinutes).
		Msg("Session started")

	return &model.QuizSessionResponse{
		SessionID:            sess.id,
		QuizTitle:            quiz.Title,
		TotalQuestions:       len(quiz.Questions),
		DurationMinutes:      quiz.DurationMinutes,
		RemainingTimeSeconds: s.remainingLocked(sess),
		Status:               sess.status,
	}, nil
}

func (s *QuizSessionService) Info(candidateID, sessionID string) (*model.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return nil, err
	}
	return &model.SessionInfo{
		ID:                   sess.id,
		QuizID:               sess.quiz.ID,
		CandidateID:          sess.candidateID,
		RemainingTimeSeconds: s.remainingLocked(sess),
		Status:               sess.status,
		Quiz: &model.QuizInfo{
			Title:             sess.quiz.Title,
			Difficulty:        sess.quiz.Difficulty,
			Language:          sess.quiz.Language,
			EstimatedDuration: sess.quiz.DurationMinutes,
		},
	}, nil
}

func (s *QuizSessionService) Status(candidateID, sessionID string) (*model.QuizSessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return nil, err
	}

	answered := 0
	for _, a := range sess.answers {
		if ans, err := a.Answer(); err == nil && !ans.IsEmpty() {
			answered++
		}
	}
	total := len(sess.quiz.Questions)
	return &model.QuizSessionStatus{
		SessionID:            sess.id,
		Status:               sess.status,
		CurrentQuestionIndex: sess.index,
		TotalQuestions:       total,
		AnsweredQuestions:    answered,
		RemainingTimeSeconds: s.remainingLocked(sess),
		CompletionPercentage: float64(answered) / float64(total) * 100,
		MarkedForReview:      len(sess.marked),
	}, nil
}

// CurrentQuestion returns the question under the session cursor, without
// anything that would give the answer away.
func (s *QuizSessionService) CurrentQuestion(candidateID, sessionID string) (*model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return nil, err
	}
	q := sess.quiz.Questions[sess.index]
	q.ExpectedAnswer = ""
	return &q, nil
}

// Remaining returns the remaining seconds and current status.
func (s *QuizSessionService) Remaining(candidateID, sessionID string) (int, model.SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return 0, "", err
	}
	return s.remainingLocked(sess), sess.status, nil
}

func (s *QuizSessionService) SubmitAnswer(candidateID, sessionID string, req model.SubmitAnswerRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return err
	}

	switch sess.status {
	case model.SessionStatusPaused:
		return ErrSessionPaused
	case model.SessionStatusCompleted:
		return ErrSessionClosed
	case model.SessionStatusExpired:
		if s.now().Sub(s.deadlineLocked(sess)) > submitGrace {
			return ErrSessionClosed
		}
	}

	q, ok := findQuestion(sess.quiz, req.QuestionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if q.Type != req.QuestionType {
		return ErrAnswerTypeMismatch
	}
	if _, err := req.Answer(); err != nil {
		return fmt.Errorf("%w: %v", ErrAnswerTypeMismatch, err)
	}
	sess.answers[req.QuestionID] = req
	return nil
}

func (s *QuizSessionService) Navigate(candidateID, sessionID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.openLocked(candidateID, sessionID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(sess.quiz.Questions) {
		return ErrQuestionOutOfRange
	}
	sess.index = index
	return nil
}

func (s *QuizSessionService) MarkForReview(candidateID, sessionID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.openLocked(candidateID, sessionID)
	if err != nil {
		return err
	}
	if _, ok := findQuestion(sess.quiz, questionID); !ok {
		return ErrUnknownQuestion
	}
	sess.marked[questionID] = true
	return nil
}

func (s *QuizSessionService) Pause(candidateID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.openLocked(candidateID, sessionID)
	if err != nil {
		return err
	}
	sess.status = model.SessionStatusPaused
	sess.pausedAt = s.now()
	return nil
}

func (s *QuizSessionService) Resume(candidateID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return err
	}
	switch sess.status {
	case model.SessionStatusInProgress:
		return nil
	case model.SessionStatusPaused:
		sess.pausedTotal += s.now().Sub(sess.pausedAt)
		sess.pausedAt = time.Time{}
		sess.status = model.SessionStatusInProgress
		return nil
	default:
		return ErrSessionClosed
	}
}

// Finish scores the attempt. An expired session can still be finished; a
// completed one cannot be finished twice.
func (s *QuizSessionService) Finish(candidateID, sessionID string) (*model.FinishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.status == model.SessionStatusCompleted {
		return nil, ErrSessionAlreadyFinal
	}
	if sess.status == model.SessionStatusPaused {
		sess.pausedTotal += s.now().Sub(sess.pausedAt)
		sess.pausedAt = time.Time{}
	}

	elapsed := s.now().Sub(sess.startedAt) - sess.pausedTotal
	if limit := sess.quiz.duration(); elapsed > limit {
		elapsed = limit
	}

	sess.result = score(sess, elapsed)
	sess.status = model.SessionStatusCompleted

	s.log.Info().
		Str("session_id", sess.id).
		Int("correct", sess.result.CorrectAnswers).
		Int("total", sess.result.TotalQuestions).
		Int("activities", len(sess.activities)).
		Msg("Session finished")
	return sess.result, nil
}

func (s *QuizSessionService) ReportActivity(candidateID, sessionID string, activity model.ActivityType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return err
	}
	sess.activities = append(sess.activities, activity)
	s.log.Warn().
		Str("session_id", sess.id).
		Str("activity", string(activity)).
		Msg("Suspicious activity reported")
	return nil
}

// Activities returns the integrity events recorded for a session.
func (s *QuizSessionService) Activities(sessionID string) []model.ActivityType {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]model.ActivityType, len(sess.activities))
	copy(out, sess.activities)
	return out
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

// getLocked returns the session after refreshing its expiry. A session owned
// by another candidate reads as not found.
func (s *QuizSessionService) getLocked(candidateID, sessionID string) (*quizSession, error) {
	sess, ok := s.sessions[sessionID]
	if !ok || sess.candidateID != candidateID {
		return nil, ErrSessionNotFound
	}
	if sess.status == model.SessionStatusInProgress && s.remainingLocked(sess) == 0 {
		sess.status = model.SessionStatusExpired
		s.log.Info().Str("session_id", sess.id).Msg("Session expired")
	}
	return sess, nil
}

// openLocked is getLocked restricted to sessions still in progress.
func (s *QuizSessionService) openLocked(candidateID, sessionID string) (*quizSession, error) {
	sess, err := s.getLocked(candidateID, sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.status {
	case model.SessionStatusInProgress:
		return sess, nil
	case model.SessionStatusPaused:
		return nil, ErrSessionPaused
	default:
		return nil, ErrSessionClosed
	}
}

func (s *QuizSessionService) deadlineLocked(sess *quizSession) time.Time {
	paused := sess.pausedTotal
	if !sess.pausedAt.IsZero() {
		paused += s.now().Sub(sess.pausedAt)
	}
	return sess.startedAt.Add(sess.quiz.duration() + paused)
}

func (s *QuizSessionService) remainingLocked(sess *quizSession) int {
	switch sess.status {
	case model.SessionStatusCompleted, model.SessionStatusExpired:
		return 0
	}
	left := s.deadlineLocked(sess).Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (q *Quiz) duration() time.Duration {
	return time.Duration(q.DurationMinutes) * time.Minute
}

func findQuestion(quiz *Quiz, id string) (model.Question, bool) {
	for _, q := range quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

func score(sess *quizSession, elapsed time.Duration) *model.FinishResult {
	totals := make(map[string]int)
	hits := make(map[string]int)
	correct := 0

	for _, q := range sess.quiz.Questions {
		bucket := model.ScoreTypeOf(q.Type)
		totals[bucket]++
		if isCorrect(q, sess.quiz.keys[q.ID], sess.answers[q.ID]) {
			hits[bucket]++
			correct++
		}
	}

	byType := make(map[string]float64, len(totals))
	for bucket, n := range totals {
		byType[bucket] = math.Round(float64(hits[bucket])/float64(n)*1000) / 10
	}

	total := len(sess.quiz.Questions)
	var totalScore float64
	if total > 0 {
		totalScore = math.Round(float64(correct)/float64(total)*1000) / 10
	}
	return &model.FinishResult{
		SessionID:        sess.id,
		TotalScore:       totalScore,
		CorrectAnswers:   correct,
		TotalQuestions:   total,
		TimeSpentMinutes: int(math.Ceil(elapsed.Minutes())),
		ScoresByType:     byType,
	}
}

func isCorrect(q model.Question, key string, a model.SubmitAnswerRequest) bool {
	if a.QuestionID == "" {
		return false
	}
	switch q.Type {
	case model.QuestionTypeQCM:
		return a.SelectedOptionID == key
	case model.QuestionTypeFillBlank:
		return strings.EqualFold(strings.TrimSpace(a.TextAnswer), key)
	case model.QuestionTypeCoding:
		return strings.Contains(a.CodeSubmission, key+"(")
	}
	return false
}
