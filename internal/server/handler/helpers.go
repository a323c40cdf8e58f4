package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/ingest"
	"github.com/alanyoungcy/tradejournal/internal/server/middleware"
)

const maxJSONBody = 1 << 20

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyImport):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAccountHasTrades),
		errors.Is(err, domain.ErrDefaultAccount),
		errors.Is(err, domain.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps err to a status and writes it. Client errors carry
// the error text; server errors are logged and answered generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "handler: "+op+" failed", slog.String("error", err.Error()))
		writeError(w, status, op+" failed")
		return
	}
	writeError(w, status, clientMessage(err))
}

var wrapSegment = regexp.MustCompile(`^[a-z_]+( [a-z_]+)?$`)

// clientMessage strips the "pkg: op:" prefixes added while wrapping, keeping
// the detail and the sentinel text.
func clientMessage(err error) string {
	parts := strings.Split(err.Error(), ": ")
	for len(parts) > 1 && wrapSegment.MatchString(parts[0]) {
		parts = parts[1:]
	}
	return strings.Join(parts, ": ")
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("malformed JSON body: %v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

// currentUser returns the authenticated user ID placed by middleware.Auth.
func currentUser(r *http.Request) string {
	return middleware.UserID(r.Context())
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// parseTradeFilter builds a filter for the current user from
// ?accountId=&symbol=&status=&from=&to=&limit=&offset=.
func parseTradeFilter(r *http.Request) (domain.TradeFilter, error) {
	q := r.URL.Query()
	opts := parseListOpts(r)
	f := domain.TradeFilter{
		UserID:    currentUser(r),
		AccountID: q.Get("accountId"),
		Symbol:    strings.TrimSpace(q.Get("symbol")),
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	}

	switch s := domain.TradeStatus(strings.ToLower(q.Get("status"))); s {
	case "", domain.TradeStatusOpen, domain.TradeStatusClosed:
		f.Status = s
	default:
		return f, fmt.Errorf("status must be open or closed: %w", domain.ErrInvalidInput)
	}

	var err error
	if f.From, err = parseBound(q.Get("from"), false); err != nil {
		return f, err
	}
	if f.To, err = parseBound(q.Get("to"), true); err != nil {
		return f, err
	}
	return f, nil
}

// parseBound parses a from/to query value. A bare date used as an upper
// bound covers the whole day.
func parseBound(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := ingest.ParseTime(s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, domain.ErrInvalidInput)
	}
	if upper && len(s) == len(time.DateOnly) {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
