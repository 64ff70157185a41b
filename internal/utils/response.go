package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// JSON writes the payload with the given status. By the time encoding can
// fail the header is already out, so the failure is logged and the body left
// truncated.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("response encode failed", zap.Int("status", status), zap.Error(err))
	}
}

// JSONError writes a JSON error envelope.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
