package handlers

import (
	"encoding/json"
	"net/http"
)

// Echo answers with the request body it was given. Used by callers as a
// connectivity check.
func Echo(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		body = map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Received", "data": body})
}

// Health reports service liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
