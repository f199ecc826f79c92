package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// JSON writes data as the response body. A nil body only writes the status.
// Responses carry live session state and must not be cached by clients.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data == nil || status == http.StatusNoContent {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		GetLogger().Warn("Failed to encode response body", zap.Error(err))
	}
}

// Attachment sends data as a downloadable file.
func Attachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
