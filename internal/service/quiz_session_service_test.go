package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
)

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time          { return f.t }
func (f *fakeNow) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestService(t *testing.T) (*QuizSessionService, *fakeNow, string) {
	t.Helper()
	clock := &fakeNow{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	svc := NewQuizSessionService(zerolog.Nop(), []*Quiz{SeedQuiz(1)}, WithClock(clock.now))
	sess, err := svc.Start("cand-1", model.StartQuizRequest{CandidateID: "cand-1", QuizID: SeedQuizID})
	require.NoError(t, err)
	assert.Equal(t, 60, sess.RemainingTimeSeconds)
	assert.Equal(t, 4, sess.TotalQuestions)
	return svc, clock, sess.SessionID
}

func submit(t *testing.T, svc *QuizSessionService, id string, req model.SubmitAnswerRequest) {
	t.Helper()
	require.NoError(t, svc.SubmitAnswer("cand-1", id, req))
}

func TestStartUnknownQuiz(t *testing.T) {
	svc := NewQuizSessionService(zerolog.Nop(), []*Quiz{SeedQuiz(1)})
	_, err := svc.Start("cand-1", model.StartQuizRequest{QuizID: "nope"})
	require.ErrorIs(t, err, ErrQuizNotFound)
}

func TestCurrentQuestionHidesKeyAndFollowsCursor(t *testing.T) {
	svc, _, id := newTestService(t)

	q, err := svc.CurrentQuestion("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, "q-slices", q.ID)

	require.NoError(t, svc.Navigate("cand-1", id, 2))
	q, err = svc.CurrentQuestion("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, "q-defer", q.ID)
	assert.Empty(t, q.ExpectedAnswer)

	require.ErrorIs(t, svc.Navigate("cand-1", id, 4), ErrQuestionOutOfRange)
	require.ErrorIs(t, svc.Navigate("cand-1", id, -1), ErrQuestionOutOfRange)
}

func TestSessionsAreScopedToTheirCandidate(t *testing.T) {
	svc, _, id := newTestService(t)
	_, err := svc.Status("cand-2", id)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Status("cand-1", "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitAnswerChecksQuestion(t *testing.T) {
	svc, _, id := newTestService(t)

	err := svc.SubmitAnswer("cand-1", id, model.SubmitAnswerRequest{QuestionID: "q-x", QuestionType: model.QuestionTypeQCM, SelectedOptionID: "o"})
	require.ErrorIs(t, err, ErrUnknownQuestion)

	err = svc.SubmitAnswer("cand-1", id, model.SubmitAnswerRequest{QuestionID: "q-defer", QuestionType: model.QuestionTypeQCM, SelectedOptionID: "o"})
	require.ErrorIs(t, err, ErrAnswerTypeMismatch)
}

func TestFinishScoresByType(t *testing.T) {
	svc, clock, id := newTestService(t)

	submit(t, svc, id, model.SubmitAnswerRequest{QuestionID: "q-slices", QuestionType: model.QuestionTypeQCM, SelectedOptionID: "o-zero"})
	submit(t, svc, id, model.SubmitAnswerRequest{QuestionID: "q-goroutine", QuestionType: model.QuestionTypeQCM, SelectedOptionID: "o-go"})
	submit(t, svc, id, model.SubmitAnswerRequest{QuestionID: "q-defer", QuestionType: model.QuestionTypeFillBlank, TextAnswer: " Defer "})
	submit(t, svc, id, model.SubmitAnswerRequest{QuestionID: "q-sum", QuestionType: model.QuestionTypeCoding, CodeSubmission: "func add(a, b int) int { return a + b }", ProgrammingLanguage: "go"})

	st, err := svc.Status("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, 4, st.AnsweredQuestions)
	assert.InDelta(t, 100.0, st.CompletionPercentage, 0.001)

	clock.advance(20 * time.Second)
	res, err := svc.Finish("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, 3, res.CorrectAnswers)
	assert.Equal(t, 4, res.TotalQuestions)
	assert.InDelta(t, 75.0, res.TotalScore, 0.001)
	assert.InDelta(t, 100.0, res.ScoresByType[model.ScoreTypeQCM], 0.001)
	assert.InDelta(t, 100.0, res.ScoresByType[model.ScoreTypeFillBlank], 0.001)
	assert.InDelta(t, 0.0, res.ScoresByType[model.ScoreTypeCoding], 0.001)
	assert.Equal(t, 1, res.TimeSpentMinutes)

	_, err = svc.Finish("cand-1", id)
	require.ErrorIs(t, err, ErrSessionAlreadyFinal)
	require.ErrorIs(t, svc.Navigate("cand-1", id, 1), ErrSessionClosed)
}

func TestPauseFreezesServerClock(t *testing.T) {
	svc, clock, id := newTestService(t)

	clock.advance(10 * time.Second)
	require.NoError(t, svc.Pause("cand-1", id))
	clock.advance(100 * time.Second)

	left, status, err := svc.Remaining("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, 50, left)
	assert.Equal(t, model.SessionStatusPaused, status)

	require.ErrorIs(t, svc.Navigate("cand-1", id, 1), ErrSessionPaused)
	require.ErrorIs(t, svc.Pause("cand-1", id), ErrSessionPaused)

	require.NoError(t, svc.Resume("cand-1", id))
	require.NoError(t, svc.Resume("cand-1", id))
	clock.advance(20 * time.Second)
	left, status, err = svc.Remaining("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, 30, left)
	assert.Equal(t, model.SessionStatusInProgress, status)
}

func TestExpiredSessionKeepsAShortSubmitGrace(t *testing.T) {
	svc, clock, id := newTestService(t)

	clock.advance(62 * time.Second)
	left, status, err := svc.Remaining("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	assert.Equal(t, model.SessionStatusExpired, status)

	submit(t, svc, id, model.SubmitAnswerRequest{QuestionID: "q-slices", QuestionType: model.QuestionTypeQCM, SelectedOptionID: "o-zero"})

	clock.advance(10 * time.Second)
	err = svc.SubmitAnswer("cand-1", id, model.SubmitAnswerRequest{QuestionID: "q-goroutine", QuestionType: model.QuestionTypeQCM, SelectedOptionID: "o-go"})
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, svc.Resume("cand-1", id), ErrSessionClosed)

	res, err := svc.Finish("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorrectAnswers)
	assert.Equal(t, 1, res.TimeSpentMinutes)
}

func TestReportActivityIsRecorded(t *testing.T) {
	svc, _, id := newTestService(t)
	require.NoError(t, svc.ReportActivity("cand-1", id, model.ActivityTabSwitch))
	require.NoError(t, svc.ReportActivity("cand-1", id, model.ActivityLargePaste))
	assert.Equal(t, []model.ActivityType{model.ActivityTabSwitch, model.ActivityLargePaste}, svc.Activities(id))
	assert.Nil(t, svc.Activities("missing"))
}

func TestMarkForReviewCountsOnce(t *testing.T) {
	svc, _, id := newTestService(t)
	require.NoError(t, svc.MarkForReview("cand-1", id, "q-sum"))
	require.NoError(t, svc.MarkForReview("cand-1", id, "q-sum"))
	require.ErrorIs(t, svc.MarkForReview("cand-1", id, "q-x"), ErrUnknownQuestion)

	st, err := svc.Status("cand-1", id)
	require.NoError(t, err)
	assert.Equal(t, 1, st.MarkedForReview)
}
