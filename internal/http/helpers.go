package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-listbind/internal/domain"
)

// Error codes returned in JSON error bodies.
const (
	CodePageNotFound  = "page_not_found"
	CodeInvalidPage   = "invalid_page"
	CodeBodyTooLarge  = "body_too_large"
	CodeBadRequest    = "bad_request"
	CodeHydrateFailed = "hydrate_failed"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		message = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// queryFilters turns query parameters into list filters. Repeated or comma
// separated parameters become string lists; UI names are aliased to API names.
func queryFilters(query url.Values) domain.Filters {
	out := domain.Filters{}
	for name, values := range query {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var parts []string
		for _, value := range values {
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					parts = append(parts, part)
				}
			}
		}
		switch len(parts) {
		case 0:
			continue
		case 1:
			if len(values) == 1 && !strings.Contains(values[0], ",") {
				out[domain.AliasFilterName(name)] = parts[0]
				continue
			}
		}
		out[domain.AliasFilterName(name)] = parts
	}
	return out
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
