package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/vyrodovalexey/beerstock/internal/model"
)

// writeJSONError writes the API error envelope.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Code: status, Message: message})
}
