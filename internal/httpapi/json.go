package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/meterbook-dev/meterbook/internal/ledger"
	"github.com/meterbook-dev/meterbook/internal/model"
)

type apiErrorJSON struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponseJSON struct {
	Error apiErrorJSON `json:"error"`
}

type submitResponseJSON struct {
	Date     string `json:"date"`
	Replaced bool   `json:"replaced"`
	Warning  string `json:"warning,omitempty"`
}

type deleteResponseJSON struct {
	Date    string `json:"date"`
	Deleted bool   `json:"deleted"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	_ = writeJSON(w, status, errorResponseJSON{Error: apiErrorJSON{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get("X-Request-Id"),
	}})
}

// writeError maps ledger errors onto status codes: bad input is 400, an
// unknown metric 404, everything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *model.MetricNotFoundError
	switch {
	case ledger.IsValidation(err):
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.As(err, &notFound):
		writeAPIError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
