package service

import "github.com/SijoOrganization/sijo-qcm-front/internal/model"

// SeedQuizID is the quiz every sandbox session uses unless told otherwise.
const SeedQuizID = "go-basics"

// Quiz is a sandbox quiz with its answer key. Keys never leave the service.
type Quiz struct {
	ID              string
	Title           string
	Difficulty      string
	Language        string
	DurationMinutes int
	Questions       []model.Question
	// keys maps a question id to the correct option id, the expected text,
	// or the function name a coding answer must define.
	keys map[string]string
}

// SeedQuiz returns a small quiz covering every question type.
func SeedQuiz(durationMinutes int) *Quiz {
	return &Quiz{
		ID:              SeedQuizID,
		Title:           "Les bases de Go",
		Difficulty:      "easy",
		Language:        "go",
		DurationMinutes: durationMinutes,
		Questions: []model.Question{
			{
				ID:   "q-slices",
				Text: "Que renvoie len() sur une slice nil ?",
				Type: model.QuestionTypeQCM,
				Answers: []model.Option{
					{ID: "o-panic", Option: "Elle panique"},
					{ID: "o-zero", Option: "0"},
					{ID: "o-minus", Option: "-1"},
				},
			},
			{
				ID:   "q-goroutine",
				Text: "Quel mot-clé lance une goroutine ?",
				Type: model.QuestionTypeQCM,
				Answers: []model.Option{
					{ID: "o-async", Option: "async"},
					{ID: "o-go", Option: "go"},
					{ID: "o-spawn", Option: "spawn"},
				},
			},
			{
				ID:   "q-defer",
				Text: "Le mot-clé ____ reporte l'appel d'une fonction à la fin de la fonction englobante.",
				Type: model.QuestionTypeFillBlank,
			},
			{
				ID:           "q-sum",
				Text:         "Écrire une fonction sum qui additionne deux entiers.",
				Type:         model.QuestionTypeCoding,
				FunctionName: "sum",
				TestCases: []model.TestCase{
					{Input: "1, 2", ExpectedOutput: "3"},
					{Input: "-4, 4", ExpectedOutput: "0"},
				},
				FunctionSignatures: []model.FunctionSignature{
					{
						Language:   "go",
						Arguments:  []model.Argument{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
						ReturnType: "int",
					},
				},
			},
		},
		keys: map[string]string{
			"q-slices":    "o-zero",
			"q-goroutine": "o-go",
			"q-defer":     "defer",
			"q-sum":       "sum",
		},
	}
}
