package model

import (
	"strings"
)

// QuestionType identifies the kind of answer a question expects.
type QuestionType string

const (
	QuestionTypeQCM       QuestionType = "qcm"
	QuestionTypeFillBlank QuestionType = "fill-in-the-blank"
	QuestionTypeCoding    QuestionType = "coding"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeQCM, QuestionTypeFillBlank, QuestionTypeCoding:
		return true
	}
	return false
}

// Question is a single quiz question as served to the candidate.
type Question struct {
	ID                 string              `json:"id" binding:"required"`
	Text               string              `json:"text"`
	Type               QuestionType        `json:"type" binding:"required,oneof=qcm fill-in-the-blank coding"`
	Answers            []Option            `json:"answers,omitempty" binding:"dive"`
	ExpectedAnswer     string              `json:"expectedAnswer,omitempty"`
	FunctionName       string              `json:"functionName,omitempty"`
	TestCases          []TestCase          `json:"testCases,omitempty"`
	FunctionSignatures []FunctionSignature `json:"functionSignatures,omitempty"`
}

// HasOption reports whether id is one of the question's choices.
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Answers {
		if o.ID == id {
			return true
		}
	}
	return false
}

// DefaultLanguage is the language a coding answer falls back to.
func (q *Question) DefaultLanguage() string {
	if len(q.FunctionSignatures) > 0 && q.FunctionSignatures[0].Language != "" {
		return q.FunctionSignatures[0].Language
	}
	return DefaultProgrammingLanguage
}

// Option is one choice of a qcm question.
type Option struct {
	ID     string `json:"id" binding:"required"`
	Option string `json:"option"`
}

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

type Argument struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FunctionSignature is the expected entry point of a coding question in one language.
type FunctionSignature struct {
	Language   string     `json:"language"`
	Arguments  []Argument `json:"arguments"`
	ReturnType string     `json:"returnType"`
}

// Params renders the argument list as "type name, type name".
func (s FunctionSignature) Params() string {
	parts := make([]string, 0, len(s.Arguments))
	for _, a := range s.Arguments {
		parts = append(parts, a.Type+" "+a.Name)
	}
	return strings.Join(parts, ", ")
}
