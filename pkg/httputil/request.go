package httputil

import (
	"net/http"
	"strconv"
)

// ParseQueryInt parses an integer query parameter with a default value
func ParseQueryInt(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
