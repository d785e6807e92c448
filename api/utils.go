package api

import (
	"encoding/json"
	"net/http"

	"AdvisorDesk/internal/logger"

	"go.uber.org/zap"
)

// RespondWithError writes {"success": false, "error": msg}.
func RespondWithError(w http.ResponseWriter, status int, errMsg string) {
	logger.L().Warn("request failed", zap.Int("status", status), zap.String("error", errMsg))
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   errMsg,
	})
}

// RespondWithPayload writes the payload fields next to "success": true.
func RespondWithPayload(w http.ResponseWriter, status int, payload map[string]interface{}) {
	resp := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		resp[k] = v
	}
	if _, ok := resp["success"]; !ok {
		resp["success"] = status < http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

// RespondWithErrorPayload is RespondWithError with extra fields, such as the
// rows that made the request fail.
func RespondWithErrorPayload(w http.ResponseWriter, status int, errMsg string, payload map[string]interface{}) {
	logger.L().Warn("request failed", zap.Int("status", status), zap.String("error", errMsg))
	resp := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		resp[k] = v
	}
	resp["success"] = false
	resp["error"] = errMsg
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.L().Error("encode response", zap.Error(err))
	}
}

// DecodeJSON reads a JSON request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
