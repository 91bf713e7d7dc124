package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// parseJSON decodes the request body into a value of type T. Unknown fields
// are rejected so client typos surface as 400s instead of silently dropped
// fields.
func parseJSON[T any](r *http.Request) (T, error) {
	var value T

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&value); err != nil {
		return value, fmt.Errorf("invalid JSON body: %w", err)
	}

	return value, nil
}
