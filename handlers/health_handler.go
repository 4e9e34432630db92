package handlers

import (
	"net/http"
	"time"
)

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"message":   "Products API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
