package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/text/language"

	"costbook/internal/view"
)

const maxBodyBytes = 1 << 16

type itemInput struct {
	Name string `json:"name"`
	Cost amount `json:"cost"`
}

type costInput struct {
	Description string `json:"description"`
	Amount      amount `json:"amount"`
}

// amount accepts a JSON number or string and keeps the raw text, so that
// core.ParseAmount is the only place a value is coerced.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount must be a number or string: %w", err)
		}
		*a = amount(n.String())
		return nil
	}
}

// decodeBody reads a single JSON object into dst and writes a 400 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// parseViewConfig reads min, max, sort and locale from the query string.
func parseViewConfig(r *http.Request) (view.Config, error) {
	q := r.URL.Query()
	locale := language.Und
	if raw := q.Get("locale"); raw != "" {
		tag, err := language.Parse(raw)
		if err != nil {
			return view.Config{}, fmt.Errorf("invalid locale %q", raw)
		}
		locale = tag
	}
	return view.ParseConfig(q.Get("min"), q.Get("max"), q.Get("sort"), locale)
}
