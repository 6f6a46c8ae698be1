package session

import (
	"errors"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/sessionapi"
)

// Kind classifies a controller failure by how the caller should react.
type Kind int

const (
	// KindFatalLoad means the session could not be loaded; show an error and
	// offer to leave.
	KindFatalLoad Kind = iota + 1
	// KindRetryable means the action failed but the session is intact.
	KindRetryable
	// KindBackground failures are logged only.
	KindBackground
	// KindFinalization means the attempt could not be finished.
	KindFinalization
)

func (k Kind) String() string {
	switch k {
	case KindFatalLoad:
		return "fatal_load"
	case KindRetryable:
		return "retryable"
	case KindBackground:
		return "background"
	case KindFinalization:
		return "finalization"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrClosed           = errors.New("controller closed")
	ErrFinalizeInFlight = errors.New("finalize already in progress")
	ErrNotConfirmed     = errors.New("finish not confirmed")
	ErrSessionClosed    = errors.New("session already closed on server")
	ErrOutOfRange       = errors.New("question index out of range")
)

// Error is what the controller hands back to the UI. Message is safe to
// show; Err keeps the cause for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return msgGeneric
}

const (
	msgGeneric      = "Une erreur inattendue est survenue."
	msgLoad         = "Erreur lors du chargement du quiz."
	msgLoadQuestion = "Erreur lors du chargement de la question."
	msgSave         = "Erreur lors de la sauvegarde de la réponse."
	msgNavigate     = "Erreur lors de la navigation."
	msgMark         = "Erreur lors du marquage."
	msgPause        = "Erreur lors de la pause."
	msgResume       = "Erreur lors de la reprise."
	msgFinish       = "Erreur lors de la finalisation du quiz."
	msgFinalSave    = "Votre dernière réponse n'a pas pu être sauvegardée."
	msgState        = "Action impossible pour le moment."
	msgClosed       = "Cette session est déjà terminée."
	msgTokenExpired = "Votre session a expiré, veuillez vous reconnecter."
	msgOutOfRange   = "Cette question n'existe pas."
	msgAnswerType   = "Ce type de réponse ne correspond pas à la question."
	msgBadAnswer    = "Réponse invalide."
	msgInFlight     = "La finalisation est déjà en cours."
)

// newError picks the user message for cause, falling back to fallback.
func newError(kind Kind, op, fallback string, cause error) *Error {
	msg := fallback
	switch {
	case errors.Is(cause, sessionapi.ErrTokenExpired), sessionapi.StatusCode(cause) == 401:
		msg = msgTokenExpired
	case errors.Is(cause, ErrSessionClosed):
		msg = msgClosed
	case errors.Is(cause, ErrOutOfRange):
		msg = msgOutOfRange
	case errors.Is(cause, ErrAnswerTypeMismatch):
		msg = msgAnswerType
	case errors.Is(cause, model.ErrInvalidAnswer):
		msg = msgBadAnswer
	case errors.Is(cause, ErrFinalizeInFlight):
		msg = msgInFlight
	case errors.Is(cause, ErrInvalidState), errors.Is(cause, ErrClosed):
		msg = msgState
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}
