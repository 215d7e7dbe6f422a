package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/willnicht/willnicht/internal/common"
	"github.com/willnicht/willnicht/internal/cryptox"
	"github.com/willnicht/willnicht/internal/server/services"
)

const maxBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

var badRequest = []error{
	services.ErrInvalidEmail,
	services.ErrInvalidListing,
	services.ErrInvalidImageKey,
	services.ErrUnsupportedContentType,
	cryptox.ErrPasswordTooShort,
}

// writeServiceError maps a service error to its status. Anything unknown is
// logged and answered with 500.
func (s *HTTPServer) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorQuotaExceeded):
		writeError(w, http.StatusForbidden, common.ErrorQuotaExceeded.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "email already registered")
	default:
		for _, e := range badRequest {
			if errors.Is(err, e) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		s.logger.Error(ctx, "request failed", "err", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal.Error())
	}
}
