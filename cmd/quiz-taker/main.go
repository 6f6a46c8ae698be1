package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/SijoOrganization/sijo-qcm-front/internal/config"
	"github.com/SijoOrganization/sijo-qcm-front/internal/database"
	"github.com/SijoOrganization/sijo-qcm-front/internal/draft"
	"github.com/SijoOrganization/sijo-qcm-front/internal/live"
	"github.com/SijoOrganization/sijo-qcm-front/internal/logger"
	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/session"
	"github.com/SijoOrganization/sijo-qcm-front/internal/sessionapi"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// stdout belongs to the quiz screen.
	log := logger.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := bufio.NewReader(os.Stdin)
	api := sessionapi.New(cfg.BackendURL, cfg.HTTPTimeout,
		sessionapi.WithToken(cfg.SessionToken),
		sessionapi.WithLogger(log))

	// ─── Token Gate ────────────────────────────────────────────────────
	if err := api.CheckToken(); err != nil {
		if !errors.Is(err, sessionapi.ErrTokenExpired) {
			fmt.Println("Error: SESSION_TOKEN is not a valid token")
			return
		}
		fmt.Println("Votre session a expiré. Veuillez vous reconnecter.")
		api.SetToken("")
	}

	var candidateID string
	if api.Token() == "" {
		id, err := login(ctx, reader, api)
		if err != nil {
			fmt.Println("Error:", session.MessageOf(err))
			log.Debug().Err(err).Msg("Login failed")
			return
		}
		candidateID = id
	}

	// ─── Pick or Start a Session ───────────────────────────────────────
	sessionID := prompt(reader, "Session ID (vide pour démarrer un quiz): ")
	if sessionID == "" {
		if candidateID == "" {
			candidateID = prompt(reader, "Candidate ID: ")
		}
		quizID := prompt(reader, "Quiz ID: ")
		if quizID == "" {
			fmt.Println("Error: Quiz ID is required")
			return
		}
		started, err := api.StartQuiz(ctx, model.StartQuizRequest{CandidateID: candidateID, QuizID: quizID})
		if err != nil {
			fmt.Println("Error:", session.MessageOf(err))
			log.Debug().Err(err).Msg("Start quiz failed")
			return
		}
		sessionID = started.SessionID
		fmt.Printf("Quiz « %s » démarré : %d questions, %d minutes.\n",
			started.QuizTitle, started.TotalQuestions, started.DurationMinutes)
	}

	// ─── Draft Cache ───────────────────────────────────────────────────
	var drafts session.DraftStore = draft.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("Draft cache unavailable, continuing without it")
		} else {
			defer rdb.Close()
			drafts = draft.NewRedisStore(rdb, cfg.DraftTTL, log)
		}
	}

	// ─── Session Controller ────────────────────────────────────────────
	lines := readLines(reader)
	screen := &screen{lines: lines}

	ctrl := session.NewController(api, sessionID, session.Options{
		AutosaveInterval:    cfg.AutosaveInterval,
		LargePasteThreshold: cfg.LargePasteThreshold,
		Drafts:              drafts,
		Confirm:             screen.confirm,
		Notify:              screen.notice,
		Logger:              log,
	})
	defer ctrl.Close()

	if err := ctrl.Load(ctx); err != nil {
		fmt.Println("Error:", session.MessageOf(err))
		log.Debug().Err(err).Msg("Load failed")
		return
	}

	// ─── Live Channel ──────────────────────────────────────────────────
	if cfg.LiveURL != "" {
		url, err := live.StreamURL(cfg.LiveURL, sessionID, api.Token())
		if err != nil {
			log.Warn().Err(err).Msg("Live channel disabled")
		} else {
			go live.NewSubscriber(url, ctrl, log).Run(ctx)
		}
	}

	// ─── Command Loop ──────────────────────────────────────────────────
	screen.help()
	screen.render(ctrl.View())
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrompu. Vos réponses enregistrées sont conservées.")
			return
		case <-ctrl.Done():
			screen.result(ctrl.Result(), cfg.PassingScore)
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := screen.run(ctx, ctrl, line); quit {
				return
			}
		}
	}
}

// login asks for credentials and keeps the issued token on api.
func login(ctx context.Context, reader *bufio.Reader, api *sessionapi.Client) (string, error) {
	fmt.Println("=== Connexion candidat ===")
	email := prompt(reader, "Email: ")
	if email == "" {
		return "", errors.New("email is required")
	}

	fmt.Print("Code d'accès: ")
	code, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read access code: %w", err)
	}

	loginCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := api.Login(loginCtx, model.LoginRequest{Email: email, AccessCode: string(code)})
	if err != nil {
		return "", err
	}
	return resp.CandidateID, nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := reader.ReadString('\n')
	return strings.TrimSpace(s)
}

// readLines feeds stdin lines to the command loop and to confirmations.
func readLines(reader *bufio.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			s, err := reader.ReadString('\n')
			if s != "" || err == nil {
				out <- strings.TrimRight(s, "\r\n")
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
