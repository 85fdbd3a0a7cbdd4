package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/bibliotheque/internal/domain"
)

const (
	dateFormat      = "2006-01-02"
	timestampFormat = "2006-01-02 15:04:05"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError maps the domain error taxonomy to a status code and a
// French client message. Anything outside the taxonomy is logged with
// its context and answered with the generic message; internal details
// never reach the response body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, attrs ...any) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Internal(err)
	}

	var status int
	switch de.Kind {
	case domain.KindInvalid, domain.KindUnprocessable:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", append(attrs, slog.String("error", err.Error()))...)
	}

	writeJSON(w, status, errorResponse{Error: de.Message})
}

// pathID parses the {id} path segment. Non-numeric ids behave like
// unknown ids: not found with the resource's own message.
func pathID(r *http.Request, notFoundMsg string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NotFound(notFoundMsg)
	}
	return id, nil
}
