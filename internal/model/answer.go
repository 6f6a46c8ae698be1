package model

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultProgrammingLanguage is used when a coding answer names no language.
const DefaultProgrammingLanguage = "javascript"

// ErrInvalidAnswer is returned when a payload does not match its declared type.
var ErrInvalidAnswer = errors.New("invalid answer payload")

// Answer is the candidate's payload for one question. Exactly one variant
// exists per question type, so a qcm answer can never carry code.
type Answer interface {
	Type() QuestionType
	// IsEmpty reports whether the payload counts as "not answered".
	IsEmpty() bool
	fill(r *SubmitAnswerRequest)
}

// ChoiceAnswer is the selected option of a qcm question.
type ChoiceAnswer struct {
	OptionID string
}

func (ChoiceAnswer) Type() QuestionType { return QuestionTypeQCM }
func (a ChoiceAnswer) IsEmpty() bool    { return a.OptionID == "" }
func (a ChoiceAnswer) fill(r *SubmitAnswerRequest) {
	r.SelectedOptionID = a.OptionID
}

// TextAnswer is the free text of a fill-in-the-blank question.
type TextAnswer struct {
	Text string
}

func (TextAnswer) Type() QuestionType { return QuestionTypeFillBlank }
func (a TextAnswer) IsEmpty() bool    { return strings.TrimSpace(a.Text) == "" }
func (a TextAnswer) fill(r *SubmitAnswerRequest) {
	r.TextAnswer = a.Text
}

// CodeAnswer is the source submitted for a coding question.
type CodeAnswer struct {
	Code     string
	Language string
}

func (CodeAnswer) Type() QuestionType { return QuestionTypeCoding }
func (a CodeAnswer) IsEmpty() bool    { return strings.TrimSpace(a.Code) == "" }
func (a CodeAnswer) fill(r *SubmitAnswerRequest) {
	r.CodeSubmission = a.Code
	r.ProgrammingLanguage = a.Language
	if r.ProgrammingLanguage == "" {
		r.ProgrammingLanguage = DefaultProgrammingLanguage
	}
}

// SubmitAnswerRequest is the wire form of an answered question.
type SubmitAnswerRequest struct {
	QuestionID          string       `json:"questionId" binding:"required"`
	QuestionType        QuestionType `json:"questionType" binding:"required,oneof=qcm fill-in-the-blank coding"`
	SelectedOptionID    string       `json:"selectedOptionId,omitempty"`
	CodeSubmission      string       `json:"codeSubmission,omitempty"`
	ProgrammingLanguage string       `json:"programmingLanguage,omitempty"`
	TextAnswer          string       `json:"textAnswer,omitempty"`
	TimeSpentSeconds    int          `json:"timeSpentSeconds" binding:"min=0"`
}

// NewSubmitAnswerRequest flattens an answer into its wire form.
func NewSubmitAnswerRequest(questionID string, a Answer, timeSpentSeconds int) SubmitAnswerRequest {
	r := SubmitAnswerRequest{
		QuestionID:       questionID,
		QuestionType:     a.Type(),
		TimeSpentSeconds: timeSpentSeconds,
	}
	a.fill(&r)
	return r
}

// Answer rebuilds the typed answer, rejecting payloads that mix fields of
// different question types.
func (r SubmitAnswerRequest) Answer() (Answer, error) {
	switch r.QuestionType {
	case QuestionTypeQCM:
		if r.CodeSubmission != "" || r.TextAnswer != "" {
			return nil, fmt.Errorf("%w: qcm answer with text or code", ErrInvalidAnswer)
		}
		return ChoiceAnswer{OptionID: r.SelectedOptionID}, nil
	case QuestionTypeFillBlank:
		if r.CodeSubmission != "" || r.SelectedOptionID != "" {
			return nil, fmt.Errorf("%w: fill-in-the-blank answer with option or code", ErrInvalidAnswer)
		}
		return TextAnswer{Text: r.TextAnswer}, nil
	case QuestionTypeCoding:
		if r.TextAnswer != "" || r.SelectedOptionID != "" {
			return nil, fmt.Errorf("%w: coding answer with option or text", ErrInvalidAnswer)
		}
		return CodeAnswer{Code: r.CodeSubmission, Language: r.ProgrammingLanguage}, nil
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidAnswer, r.QuestionType)
	}
}
