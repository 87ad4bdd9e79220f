package strapi

import (
	"encoding/json"
	"strings"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	JWT  string         `json:"jwt"`
	User map[string]any `json:"user"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// errorMessage extracts a human-readable message from a Strapi error body.
// The shape varies across plugin versions, so the known variants are probed
// in order: {error:{message}}, then {message}, then the raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Message != "" {
		return flat.Message
	}

	return strings.TrimSpace(string(body))
}

// unwrapData unwraps the optional {data: user} envelope some endpoints use.
func unwrapData(raw map[string]any) map[string]any {
	if data, ok := raw["data"].(map[string]any); ok {
		return data
	}
	return raw
}
