package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/session"
)

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// screen is the line-oriented quiz UI. It shares stdin with the command
// loop through lines.
type screen struct {
	lines <-chan string
}

func (s *screen) help() {
	fmt.Println(`Commandes:
  n | p | g <n>     question suivante, précédente, aller à la question n
  a <réponse>       répondre (numéro ou id d'option, texte, code sur une ligne)
  code              saisir du code sur plusieurs lignes, terminer par "."
  m                 marquer pour révision
  pause | resume    mettre en pause, reprendre
  blur              signaler un changement d'onglet
  s                 afficher l'état
  finish            terminer le quiz
  q                 quitter sans terminer`)
}

// run executes one command line. It returns true when the user quits.
func (s *screen) run(ctx context.Context, ctrl *session.Controller, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "":
		return false
	case "n":
		err = ctrl.Next(ctx)
	case "p":
		err = ctrl.Previous(ctx)
	case "g":
		n, convErr := strconv.Atoi(arg)
		if convErr != nil {
			fmt.Println("Usage: g <numéro>")
			return false
		}
		err = ctrl.GoTo(ctx, n-1)
	case "a":
		err = s.answer(ctrl, arg)
	case "code":
		err = s.code(ctrl)
	case "m":
		err = ctrl.MarkForReview(ctx)
	case "pause":
		err = ctrl.Pause(ctx)
	case "resume":
		err = ctrl.Resume(ctx)
	case "blur":
		ctrl.ReportTabHidden()
	case "s":
	case "finish":
		_, err = ctrl.Finish(ctx)
		if err == nil {
			return false
		}
	case "h", "help":
		s.help()
		return false
	case "q", "quit":
		return true
	default:
		fmt.Printf("Commande inconnue: %s (h pour l'aide)\n", cmd)
		return false
	}

	if err != nil && !errors.Is(err, session.ErrNotConfirmed) {
		s.showError(err)
	}
	s.render(ctrl.View())
	return false
}

func (s *screen) answer(ctrl *session.Controller, value string) error {
	v := ctrl.View()
	if v.Question == nil {
		return nil
	}
	switch v.Question.Type {
	case model.QuestionTypeQCM:
		id := value
		if n, err := strconv.Atoi(value); err == nil && n >= 1 && n <= len(v.Question.Answers) {
			id = v.Question.Answers[n-1].ID
		}
		return ctrl.SetAnswer(model.ChoiceAnswer{OptionID: id})
	case model.QuestionTypeFillBlank:
		return ctrl.SetAnswer(model.TextAnswer{Text: value})
	default:
		return ctrl.SetAnswer(model.CodeAnswer{Code: value})
	}
}

// code reads a multi-line block. A block arriving in one go is what a paste
// looks like from a terminal, so it goes through the paste check.
func (s *screen) code(ctrl *session.Controller) error {
	fmt.Println(`Saisissez le code, terminez par une ligne contenant "."`)
	var b strings.Builder
	for line := range s.lines {
		if strings.TrimSpace(line) == "." {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	text := b.String()
	if ctrl.ReportPaste(text) {
		fmt.Println("(collage volumineux signalé)")
	}
	return ctrl.SetAnswer(model.CodeAnswer{Code: text})
}

func (s *screen) confirm(message string) bool {
	fmt.Printf("%s [o/N] ", message)
	answer, ok := <-s.lines
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "oui", "y", "yes":
		return true
	}
	return false
}

func (s *screen) notice(n session.Notice) {
	fmt.Printf("[%s] %s\n", n.Level, n.Message)
}

func (s *screen) showError(err error) {
	kind := session.KindOf(err)
	fmt.Printf("[%s] %s\n", kind, session.MessageOf(err))
}

func (s *screen) render(v session.View) {
	color := ansiGreen
	switch v.Color {
	case session.TimeColorWarning:
		color = ansiYellow
	case session.TimeColorDanger:
		color = ansiRed
	}

	fmt.Println()
	fmt.Printf("── %s ── question %d/%d ── %s%s%s ── %d/%d répondues (%.0f%%) ── %s\n",
		v.Title, v.Index+1, v.Total, color, v.RemainingDisplay, ansiReset,
		v.Answered, v.Total, v.Progress*100, v.State)

	q := v.Question
	if q == nil {
		return
	}
	marked := ""
	if v.CurrentMarked {
		marked = " [à revoir]"
	}
	fmt.Printf("%s%s\n", q.Text, marked)

	switch q.Type {
	case model.QuestionTypeQCM:
		selected := ""
		if a, ok := v.CurrentAnswer.(model.ChoiceAnswer); ok {
			selected = a.OptionID
		}
		for i, o := range q.Answers {
			mark := " "
			if o.ID == selected {
				mark = "x"
			}
			fmt.Printf("  [%s] %d. %s\n", mark, i+1, o.Option)
		}
	case model.QuestionTypeFillBlank:
		if a, ok := v.CurrentAnswer.(model.TextAnswer); ok {
			fmt.Printf("  > %s\n", a.Text)
		}
	case model.QuestionTypeCoding:
		if len(q.FunctionSignatures) > 0 {
			sig := q.FunctionSignatures[0]
			args := make([]string, 0, len(sig.Arguments))
			for _, a := range sig.Arguments {
				args = append(args, a.Name+" "+a.Type)
			}
			fmt.Printf("  %s: %s(%s) %s\n", sig.Language, q.FunctionName, strings.Join(args, ", "), sig.ReturnType)
		}
		if a, ok := v.CurrentAnswer.(model.CodeAnswer); ok {
			fmt.Println(a.Code)
		}
	}
	if len(v.Marked) > 0 {
		fmt.Printf("  À revoir: %s\n", strings.Join(v.Marked, ", "))
	}
}

func (s *screen) result(r *model.FinishResult, passingScore int) {
	if r == nil {
		return
	}
	sum := r.Summary(passingScore)
	fmt.Println()
	fmt.Println("=== Résultat ===")
	fmt.Printf("%s : %d%% (%d/%d), %d min\n", sum.Label, sum.Percentage, r.CorrectAnswers, r.TotalQuestions, r.TimeSpentMinutes)
	if sum.Passed {
		fmt.Println("Quiz réussi.")
	} else {
		fmt.Printf("Seuil de réussite : %d%%.\n", passingScore)
	}

	types := make([]string, 0, len(r.ScoresByType))
	for t := range r.ScoresByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-10s %.1f%%\n", t, r.ScoresByType[t])
	}
	for _, rec := range sum.Recommendations {
		fmt.Println("  -", rec)
	}
}
