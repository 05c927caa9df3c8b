package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrNoActiveAttempt   ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptIncomplete ErrCode = "ATTEMPT_INCOMPLETE"
	ErrAttemptStart      ErrCode = "ATTEMPT_START_FAILED"
	ErrAttemptFinish     ErrCode = "ATTEMPT_FINISH_FAILED"
	ErrInvalidPhase      ErrCode = "INVALID_PHASE"

	// ─── Tutor ─────────────────────────────────────────────────────────
	ErrTutorUpstream    ErrCode = "TUTOR_UPSTREAM_ERROR"
	ErrTutorUnavailable ErrCode = "TUTOR_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "Se requiere un token de autenticación."
	case ErrTokenInvalid:
		return "El token de autenticación no es válido."
	case ErrValidation:
		return "La validación ha fallado. Revisa los datos enviados."
	case ErrInvalidID:
		return "El formato del identificador no es válido."
	case ErrInvalidPayload:
		return "El cuerpo de la petición no es válido."
	case ErrNotFound:
		return "Recurso no encontrado."
	case ErrNoActiveAttempt:
		return "No hay ningún test en curso."
	case ErrAttemptIncomplete:
		return "Te faltan preguntas por responder. Confirma para finalizar igualmente."
	case ErrAttemptStart:
		return "Error iniciando el test."
	case ErrAttemptFinish:
		return "Error finalizando el test."
	case ErrInvalidPhase:
		return "La acción no es válida en el estado actual del test."
	case ErrTutorUpstream:
		return "El tutor ha devuelto un error."
	case ErrTutorUnavailable:
		return "El tutor no devolvió texto. Intenta de nuevo en unos minutos."
	case ErrRateLimitExceeded:
		return "Demasiadas peticiones. Inténtalo de nuevo más tarde."
	case ErrInternal:
		return "Se ha producido un error interno del servidor."
	default:
		return "Se ha producido un error inesperado."
	}
}
