package handlers

import (
	"net/http"
	"os"
)

// OpenAPISpec serves the OpenAPI document at path, read on every request.
func OpenAPISpec(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(path)
		if err != nil {
			http.Error(w, "Failed to read OpenAPI specification", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/x-yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
