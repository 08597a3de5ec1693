package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// ERROR MAPPING - generic.ErrorKind -> HTTP status
// =============================================================================

var statusByKind = map[generic.ErrorKind]int{
	generic.KindValidation:               http.StatusBadRequest,
	generic.KindInsufficientBalance:      http.StatusUnprocessableEntity,
	generic.KindForbidden:                http.StatusForbidden,
	generic.KindNotFound:                 http.StatusNotFound,
	generic.KindInvalidStateTransition:   http.StatusConflict,
	generic.KindCancellationWindowClosed: http.StatusConflict,
	generic.KindConflict:                 http.StatusConflict,
	generic.KindStorage:                  http.StatusServiceUnavailable,
	generic.KindCycleDetected:            http.StatusInternalServerError,
}

func statusFor(kind generic.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status and an ErrorResponse. Server-side
// failures are logged and their details withheld from the client; storage
// failures carry Retry-After.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := generic.KindOf(err)
	status := statusFor(kind)
	resp := ErrorResponse{Error: http.StatusText(status), Code: string(kind)}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", string(kind)),
			zap.Error(err))
		if generic.IsRetryable(err) {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, status, resp)
		return
	}

	resp.Error = err.Error()
	resp.Details = errorDetails(err)
	writeJSON(w, status, resp)
}

func errorDetails(err error) any {
	var (
		validation   *generic.ValidationError
		insufficient *generic.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &validation):
		return map[string]string{"campo": validation.Field, "motivo": validation.Reason}
	case errors.As(err, &insufficient):
		return map[string]any{
			"disponibles": insufficient.Available,
			"solicitados": insufficient.Requested,
			"faltantes":   insufficient.Shortfall(),
		}
	}
	return nil
}

// validationFailure converts the first failed validator tag into a
// generic.ValidationError named after the JSON field.
func validationFailure(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &generic.ValidationError{Field: fe.Field(), Reason: "failed " + reason}
	}
	return &generic.ValidationError{Field: "body", Reason: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
