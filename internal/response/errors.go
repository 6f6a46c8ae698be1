package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrSessionClosed       ErrCode = "SESSION_CLOSED"
	ErrSessionPaused       ErrCode = "SESSION_PAUSED"
	ErrQuestionOutOfRange  ErrCode = "QUESTION_OUT_OF_RANGE"
	ErrAnswerTypeMismatch  ErrCode = "ANSWER_TYPE_MISMATCH"
	ErrUnknownQuestion     ErrCode = "UNKNOWN_QUESTION"
	ErrQuizNotFound        ErrCode = "QUIZ_NOT_FOUND"
	ErrSessionAlreadyFinal ErrCode = "SESSION_ALREADY_FINISHED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email ou code d'accès incorrect."
	case ErrTokenRequired:
		return "Jeton d'authentification requis."
	case ErrTokenInvalid:
		return "Jeton d'authentification invalide."
	case ErrTokenExpired:
		return "Jeton d'authentification expiré."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Vous n'avez pas accès à cette ressource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation échouée. Vérifiez votre saisie."
	case ErrInvalidPayload:
		return "Contenu de la requête invalide."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Ressource introuvable."

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Session introuvable."
	case ErrSessionClosed:
		return "Cette session est terminée."
	case ErrSessionPaused:
		return "Cette session est en pause."
	case ErrQuestionOutOfRange:
		return "Numéro de question hors limites."
	case ErrAnswerTypeMismatch:
		return "La réponse ne correspond pas au type de la question."
	case ErrUnknownQuestion:
		return "Question inconnue pour cette session."
	case ErrQuizNotFound:
		return "Quiz introuvable."
	case ErrSessionAlreadyFinal:
		return "Cette session a déjà été terminée."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Trop de requêtes. Réessayez plus tard."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Erreur interne du serveur."
	default:
		return "Une erreur inattendue est survenue."
	}
}
