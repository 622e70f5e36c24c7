package httpx

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
)

// WriteJSON encodes v as the response body. Every JSON answer from the
// authorization server may carry a token or an auth_req_id, so none of
// them are cacheable.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks the response as not storable (RFC 6749 section 5.1).
func NoCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
}

// SpaceList splits a space-delimited parameter such as scope or acr_values.
// Repeated values keep their first position. A blank value yields nil.
func SpaceList(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	out := fields[:0]
	for _, f := range fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
