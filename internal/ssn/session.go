// =============================================================================
// SSN ETL - Regulator Session
// =============================================================================
//
// A Session is one authenticated conversation with the regulator API.
//
// STATE MACHINE:
//   UNAUTHENTICATED --Authenticate--> AUTHENTICATED
//   AUTHENTICATED   --Submit-------->  SUBMITTED --Confirm--> CONFIRMED
//   AUTHENTICATED   --Correct------->  CORRECTING
//   AUTHENTICATED   --Query--------->  QUERYING
//   any failure                    ->  FAILED
//
// Every request carries "Content-Type: application/json" and, once
// authenticated, the "Token" header. A 401 is never retried.
//
// =============================================================================

package ssn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/spazos-ar/etl-ssn/internal/config"
	"github.com/spazos-ar/etl-ssn/internal/delivery"
	"github.com/spazos-ar/etl-ssn/internal/types"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the position of a Session in its lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateSubmitted
	StateConfirmed
	StateCorrecting
	StateQuerying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateSubmitted:
		return "SUBMITTED"
	case StateConfirmed:
		return "CONFIRMED"
	case StateCorrecting:
		return "CORRECTING"
	case StateQuerying:
		return "QUERYING"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// =============================================================================
// SESSION STRUCTURE
// =============================================================================

// Session talks to the regulator API on behalf of one company.
type Session struct {
	cfg    *config.Config
	creds  config.Credentials
	client Doer
	logger *slog.Logger

	token     string
	state     State
	submitted string
	announced bool
}

// Option customizes a Session.
type Option func(*Session)

// WithDoer replaces the HTTP client.
func WithDoer(d Doer) Option {
	return func(s *Session) { s.client = d }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates an unauthenticated session. Unless WithDoer is given
// it builds an HTTP client from the TLS and timeout settings of cfg.
func NewSession(cfg *config.Config, creds config.Credentials, opts ...Option) (*Session, error) {
	s := &Session{cfg: cfg, creds: creds, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := newHTTPClient(TLSOptions{Verify: cfg.VerifyTLS(), CAFile: cfg.CAFilePath()}, cfg.RequestTimeout())
		if err != nil {
			return nil, &config.ConfigurationError{Path: cfg.CAFilePath(), Err: err}
		}
		s.client = client
	}
	if !cfg.VerifyTLS() {
		s.logger.Warn("TLS certificate verification is disabled")
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// RetryPolicy returns the configured retry bounds.
func (s *Session) RetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: s.cfg.Retries, Delay: s.cfg.RetryDelay, Logger: s.logger}
}

// Close releases idle connections.
func (s *Session) Close() {
	if c, ok := s.client.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// Announce writes the startup banner once per session.
func (s *Session) Announce(w io.Writer, kind types.DeliveryKind) {
	if s.announced {
		return
	}
	s.announced = true

	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "SSN %s UPLOAD\n", strings.ToUpper(kind.Title()))
	fmt.Fprintf(w, "Delivery type: %s\n", kind.Tag())
	fmt.Fprintf(w, "Environment:   %s\n", s.cfg.Environment)
	fmt.Fprintf(w, "Server:        %s\n", s.cfg.BaseURL)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
}

// =============================================================================
// OPERATIONS
// =============================================================================

type loginRequest struct {
	User     string `json:"USER"`
	Company  string `json:"CIA"`
	Password string `json:"PASSWORD"`
}

// Authenticate logs in and stores the session token.
func (s *Session) Authenticate(ctx context.Context) (string, error) {
	const op = "authenticate"

	body, err := s.send(ctx, http.MethodPost, s.cfg.Endpoints.Login, nil,
		loginRequest{User: s.creds.User, Company: s.creds.Company, Password: s.creds.Password},
		ErrorTypeAuthentication, op)
	if err != nil {
		if e := (*Error)(nil); errors.As(err, &e) && e.Type != ErrorTypeConnection && e.Type != ErrorTypeTimeout {
			e.Type = ErrorTypeAuthentication
			e.Retryable = false
		}
		return "", s.fail(err)
	}

	token := findToken(body)
	if token == "" {
		return "", s.fail(newAuthError(op, 0, "response carries no token"))
	}

	s.token = token
	s.state = StateAuthenticated
	s.logger.InfoContext(ctx, "authenticated", "company", s.creds.Company)
	return token, nil
}

// Submit posts a delivery document. The company code is replaced with the
// authenticated one.
func (s *Session) Submit(ctx context.Context, p delivery.Payload) error {
	const op = "submit"
	if err := s.requireToken(op); err != nil {
		return err
	}

	p = p.WithCompany(s.creds.Company)
	s.logger.InfoContext(ctx, "submitting delivery",
		"kind", p.Kind.Tag(), "cycle", p.Cycle, "records", len(p.Records))

	if _, err := s.send(ctx, http.MethodPost, s.cfg.Endpoints.Entrega(p.Kind), nil, p, ErrorTypeSubmission, op); err != nil {
		return s.fail(err)
	}

	s.submitted = submissionKey(p.Kind, p.Cycle)
	s.state = StateSubmitted
	return nil
}

type confirmRequest struct {
	Company string `json:"CODIGOCOMPANIA"`
	Kind    string `json:"TIPOENTREGA"`
	Cycle   string `json:"CRONOGRAMA"`
}

// Confirm closes a delivery submitted earlier in this session.
func (s *Session) Confirm(ctx context.Context, kind types.DeliveryKind, cycle string) error {
	const op = "confirm"
	if err := s.requireToken(op); err != nil {
		return err
	}
	if s.submitted != submissionKey(kind, cycle) {
		return newStateError(op, fmt.Sprintf("%s %s was not submitted in this session", kind.Tag(), cycle))
	}

	req := confirmRequest{Company: s.creds.Company, Kind: kind.Tag(), Cycle: cycle}
	if _, err := s.send(ctx, http.MethodPost, s.cfg.Endpoints.Confirm(kind), nil, req, ErrorTypeConfirmation, op); err != nil {
		return s.fail(err)
	}

	s.state = StateConfirmed
	s.logger.InfoContext(ctx, "delivery confirmed", "kind", kind.Tag(), "cycle", cycle)
	return nil
}

type correctionRequest struct {
	Cycle   string `json:"cronograma"`
	Company string `json:"codigoCompania"`
	Kind    string `json:"tipoEntrega"`
}

// Correct asks the regulator to reopen a confirmed delivery.
func (s *Session) Correct(ctx context.Context, kind types.DeliveryKind, cycle string) error {
	const op = "correct"
	if err := s.requireToken(op); err != nil {
		return err
	}

	req := correctionRequest{Cycle: cycle, Company: s.creds.Company, Kind: kind.Title()}
	if _, err := s.send(ctx, http.MethodPut, s.cfg.Endpoints.Entrega(kind), nil, req, ErrorTypeCorrection, op); err != nil {
		return s.fail(err)
	}

	s.state = StateCorrecting
	s.logger.InfoContext(ctx, "correction requested", "kind", kind.Tag(), "cycle", cycle)
	return nil
}

// Query returns the regulator's status document for a delivery.
func (s *Session) Query(ctx context.Context, kind types.DeliveryKind, cycle string) (json.RawMessage, error) {
	const op = "query"
	if err := s.requireToken(op); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("codigoCompania", s.creds.Company)
	params.Set("tipoEntrega", kind.Tag())
	params.Set("cronograma", cycle)

	body, err := s.send(ctx, http.MethodGet, s.cfg.Endpoints.Entrega(kind), params, nil, ErrorTypeQuery, op)
	if err != nil {
		return nil, s.fail(err)
	}
	if !json.Valid(body) {
		return nil, s.fail(&Error{Type: ErrorTypeQuery, Op: op, Message: "response is not JSON", Retryable: true})
	}

	s.state = StateQuerying
	return json.RawMessage(body), nil
}

// Ping checks that the server is reachable over TLS. Any HTTP response
// counts as success.
func (s *Session) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL, nil)
	if err != nil {
		return &Error{Type: ErrorTypeConnection, Op: "ping", Cause: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return transportError("ping", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.InfoContext(ctx, "server reachable", "url", s.cfg.BaseURL, "status", resp.StatusCode)
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (s *Session) requireToken(op string) error {
	if s.token == "" {
		return newStateError(op, "session is not authenticated")
	}
	return nil
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	return err
}

// send performs one API call and returns the response body of a 2xx reply.
func (s *Session) send(ctx context.Context, method, path string, query url.Values, payload any, errType ErrorType, op string) ([]byte, error) {
	target := strings.TrimRight(s.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Type: errType, Op: op, Message: "failed to encode request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Type: errType, Op: op, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Token", s.token)
	}

	s.logger.DebugContext(ctx, "request", "method", method, "url", target)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, err)
	}
	s.logger.DebugContext(ctx, "response", "method", method, "url", target, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, newAuthError(op, resp.StatusCode, "invalid or expired token: "+ExtractMessage(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &Error{
			Type:       errType,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(body),
			Retryable:  true,
		}
	}
	return body, nil
}

func transportError(op string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Type: ErrorTypeTimeout, Op: op, Message: "request timed out", Cause: err, Retryable: true}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Type: ErrorTypeConnection, Op: op, Cause: err}
	}
	return &Error{Type: ErrorTypeConnection, Op: op, Cause: err, Retryable: true}
}

func submissionKey(kind types.DeliveryKind, cycle string) string {
	return string(kind) + "/" + cycle
}

// findToken returns the token field of a login reply, matching the key
// case-insensitively.
func findToken(body []byte) string {
	var reply map[string]any
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	for _, key := range []string{"TOKEN", "token"} {
		if v, ok := reply[key].(string); ok && v != "" {
			return v
		}
	}
	for key, value := range reply {
		if v, ok := value.(string); ok && v != "" && strings.EqualFold(key, "token") {
			return v
		}
	}
	return ""
}

// ExtractMessage renders the error detail of a regulator reply: the
// errors/errores list, then message, then detail, then the raw body.
func ExtractMessage(body []byte) string {
	raw := strings.TrimSpace(string(body))

	var reply map[string]any
	if err := json.Unmarshal(body, &reply); err != nil {
		if raw == "" {
			return "empty response"
		}
		return raw
	}

	for _, key := range []string{"errors", "errores"} {
		switch v := reply[key].(type) {
		case []any:
			if len(v) == 0 {
				continue
			}
			lines := make([]string, 0, len(v))
			for _, item := range v {
				lines = append(lines, "  • "+text(item))
			}
			return strings.Join(lines, "\n")
		case string:
			if v != "" {
				return "  • " + v
			}
		}
	}

	if v, ok := reply["message"].(string); ok && v != "" {
		return v
	}
	if v, ok := reply["detail"]; ok && v != nil {
		return text(v)
	}
	return raw
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
