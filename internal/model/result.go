package model

import (
	"math"
)

// Score type keys used in FinishResult.ScoresByType.
const (
	ScoreTypeQCM       = "QCM"
	ScoreTypeCoding    = "CODING"
	ScoreTypeFillBlank = "FILL_BLANK"
)

// ScoreTypeOf maps a question type onto its score bucket.
func ScoreTypeOf(t QuestionType) string {
	switch t {
	case QuestionTypeCoding:
		return ScoreTypeCoding
	case QuestionTypeFillBlank:
		return ScoreTypeFillBlank
	default:
		return ScoreTypeQCM
	}
}

// FinishResult is returned by the finish call once a session is scored.
type FinishResult struct {
	SessionID        string             `json:"sessionId" binding:"required"`
	TotalScore       float64            `json:"totalScore"`
	CorrectAnswers   int                `json:"correctAnswers" binding:"min=0"`
	TotalQuestions   int                `json:"totalQuestions" binding:"min=0"`
	TimeSpentMinutes int                `json:"timeSpentMinutes"`
	ScoresByType     map[string]float64 `json:"scoresByType"`
}

// ResultSummary is the candidate-facing reading of a FinishResult.
type ResultSummary struct {
	Percentage      int
	Passed          bool
	Label           string
	Recommendations []string
}

// Summary derives the percentage, pass flag and advice for a result.
func (r *FinishResult) Summary(passingScore int) ResultSummary {
	var s ResultSummary
	if r.TotalQuestions > 0 {
		s.Percentage = int(math.Round(float64(r.CorrectAnswers) / float64(r.TotalQuestions) * 100))
	}
	s.Passed = s.Percentage >= passingScore

	switch {
	case s.Percentage >= 90:
		s.Label = "Excellent"
	case s.Passed:
		s.Label = "Réussi"
	case s.Percentage >= 50:
		s.Label = "Passable"
	default:
		s.Label = "Insuffisant"
	}

	if v, ok := r.ScoresByType[ScoreTypeQCM]; ok && v < 70 {
		s.Recommendations = append(s.Recommendations, "Réviser les concepts théoriques et les bonnes pratiques")
	}
	if v, ok := r.ScoresByType[ScoreTypeCoding]; ok && v < 70 {
		s.Recommendations = append(s.Recommendations, "Pratiquer davantage la programmation et les algorithmes")
	}
	if v, ok := r.ScoresByType[ScoreTypeFillBlank]; ok && v < 70 {
		s.Recommendations = append(s.Recommendations, "Améliorer la connaissance de la syntaxe et des mots-clés")
	}
	switch {
	case s.Percentage >= 90:
		s.Recommendations = append(s.Recommendations, "Excellent niveau ! Continuez ainsi et explorez des sujets avancés")
	case s.Passed:
		s.Recommendations = append(s.Recommendations, "Bon niveau général, continuez à vous perfectionner")
	}
	return s
}
