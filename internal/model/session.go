package model

import (
	"encoding/json"
	"strings"
)

// SessionStatus enumerates quiz session states as reported by the server.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "not_started"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusPaused     SessionStatus = "paused"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusExpired    SessionStatus = "expired"
)

// Closed reports whether no further answers can be accepted.
func (s SessionStatus) Closed() bool {
	return s == SessionStatusCompleted || s == SessionStatusExpired
}

// UnmarshalJSON accepts both "in_progress" and "IN_PROGRESS" spellings.
func (s *SessionStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = SessionStatus(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// QuizSessionStatus is the client projection of the authoritative server session.
type QuizSessionStatus struct {
	SessionID            string        `json:"sessionId"`
	Status               SessionStatus `json:"status" binding:"required,oneof=not_started in_progress paused completed expired"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex" binding:"min=0,ltfield=TotalQuestions"`
	TotalQuestions       int           `json:"totalQuestions" binding:"min=1"`
	AnsweredQuestions    int           `json:"answeredQuestions"`
	RemainingTimeSeconds int           `json:"remainingTimeSeconds" binding:"min=0"`
	CompletionPercentage float64       `json:"completionPercentage"`
	MarkedForReview      int           `json:"markedForReview"`
}

// StartQuizRequest is the payload for opening a new session.
type StartQuizRequest struct {
	CandidateID     string `json:"candidateId" binding:"required"`
	QuizID          string `json:"quizId" binding:"required"`
	DurationMinutes int    `json:"durationMinutes,omitempty" binding:"omitempty,min=1,max=600"`
}

// QuizSessionResponse is returned when a session is opened.
type QuizSessionResponse struct {
	SessionID            string        `json:"sessionId" binding:"required"`
	QuizTitle            string        `json:"quizTitle"`
	TotalQuestions       int           `json:"totalQuestions"`
	DurationMinutes      int           `json:"durationMinutes"`
	RemainingTimeSeconds int           `json:"remainingTimeSeconds"`
	Status               SessionStatus `json:"status"`
}

// QuizInfo is the quiz metadata embedded in SessionInfo.
type QuizInfo struct {
	Title             string `json:"title"`
	Difficulty        string `json:"difficulty"`
	Language          string `json:"language"`
	EstimatedDuration int    `json:"estimatedDuration"`
}

// SessionInfo describes a session before and during an attempt.
type SessionInfo struct {
	ID                   string        `json:"id"`
	QuizID               string        `json:"quizId"`
	CandidateID          string        `json:"candidateId"`
	RemainingTimeSeconds int           `json:"remainingTimeSeconds"`
	Status               SessionStatus `json:"status"`
	Quiz                 *QuizInfo     `json:"quiz,omitempty"`
}

// DurationSeconds returns the full quiz duration, or 0 when unknown.
func (i *SessionInfo) DurationSeconds() int {
	if i == nil || i.Quiz == nil {
		return 0
	}
	return i.Quiz.EstimatedDuration * 60
}

// TimeRemaining is the payload of the time-remaining endpoint.
type TimeRemaining struct {
	RemainingTimeSeconds int `json:"remainingTimeSeconds" binding:"min=0"`
}

// NavigateRequest asks the server to move the session cursor.
type NavigateRequest struct {
	QuestionIndex int `json:"questionIndex" binding:"min=0"`
}

// MarkReviewRequest flags a question for later review.
type MarkReviewRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
}
