package parcelapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/BearBump/ParcelBox/internal/apperr"
	"github.com/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err.Error())
	}
	writeMessage(w, status, apperr.Message(err))
}

// readJSON decodes the request body into v. An empty body leaves v untouched.
func readJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apperr.InvalidInput("Malformed JSON body")
	}
	return nil
}
