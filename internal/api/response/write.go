package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as the JSON response body with the given status
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes a bare 204, used by logout and the delete endpoints
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
