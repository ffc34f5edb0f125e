package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sheikh-saqib/transfer-ledger/internal/errors"
	"github.com/sheikh-saqib/transfer-ledger/internal/jsonx"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError renders err with the status of its AppError. Anything else is
// an internal error and its text is not exposed.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Msg("Unclassified handler error")
		appErr = apperrors.Internal("internal server error", err)
	}

	message := appErr.Message
	if appErr.Code != apperrors.ErrCodeInternalError && appErr.Err != nil {
		message = appErr.Message + ": " + appErr.Err.Error()
	}

	writeJSON(w, appErr.HTTPStatus, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    string(appErr.Code),
	})
}
