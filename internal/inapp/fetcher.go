package inapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/inapp/internal/logging"
	"github.com/tOgg1/inapp/internal/models"
)

// DefaultMaxMessages is how many messages a single fetch asks for.
const DefaultMaxMessages = 10

// ErrNoFetcher is returned by Fetch when no message source is bound.
var ErrNoFetcher = errors.New("no message fetcher configured")

// Fetcher retrieves the full current message set from the server.
type Fetcher interface {
	Fetch(ctx context.Context) ([]*models.Message, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]*models.Message, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context) ([]*models.Message, error) { return f(ctx) }

// FetchError wraps a failed fetch with the source it came from.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Payload is the wire shape of a message fetch. Entries are kept raw so
// one malformed message does not fail the whole fetch.
type Payload struct {
	Messages []json.RawMessage `json:"inAppMessages"`
}

// DecodePayload parses a payload, normalizes each message and drops the
// ones that fail to decode or validate. At most max messages are returned
// when max is positive.
func DecodePayload(r io.Reader, max int, logger zerolog.Logger) ([]*models.Message, error) {
	var payload Payload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	messages := make([]*models.Message, 0, len(payload.Messages))
	for i, raw := range payload.Messages {
		var m *models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("dropping undecodable message")
			continue
		}
		if m == nil {
			continue
		}
		m.Normalize()
		if err := m.Validate(); err != nil {
			logger.Warn().Err(err).Int("index", i).Str("message_id", m.ID).Msg("dropping invalid message")
			continue
		}
		messages = append(messages, m)
		if max > 0 && len(messages) == max {
			break
		}
	}
	return messages, nil
}

// FileFetcher reads the payload from a local JSON file.
type FileFetcher struct {
	Path        string
	MaxMessages int

	logger zerolog.Logger
}

// NewFileFetcher creates a FileFetcher. maxMessages <= 0 uses DefaultMaxMessages.
func NewFileFetcher(path string, maxMessages int) *FileFetcher {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &FileFetcher{
		Path:        path,
		MaxMessages: maxMessages,
		logger:      logging.Component("fetcher").With().Str("path", path).Logger(),
	}
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context) ([]*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, &FetchError{Source: f.Path, Err: err}
	}
	defer file.Close()

	messages, err := DecodePayload(file, f.MaxMessages, f.logger)
	if err != nil {
		return nil, &FetchError{Source: f.Path, Err: err}
	}
	f.logger.Debug().Int("count", len(messages)).Msg("fetched messages from file")
	return messages, nil
}

// HTTPFetcher GETs the payload from an HTTP endpoint.
type HTTPFetcher struct {
	Endpoint    string
	APIKey      string
	MaxMessages int

	// Email or UserID identifies the user whose messages are fetched.
	Email  string
	UserID string

	client *http.Client
	logger zerolog.Logger
}

// NewHTTPFetcher creates an HTTPFetcher with a pooled client bounded by timeout.
func NewHTTPFetcher(endpoint, apiKey string, maxMessages int, timeout time.Duration) *HTTPFetcher {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &HTTPFetcher{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		MaxMessages: maxMessages,
		client:      newHTTPClient(timeout),
		logger:      logging.Component("fetcher").With().Str("endpoint", logging.RedactURL(endpoint)).Logger(),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]*models.Message, error) {
	source := logging.RedactURL(f.Endpoint)

	u, err := url.Parse(f.Endpoint)
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}
	q := u.Query()
	q.Set("count", strconv.Itoa(f.MaxMessages))
	switch {
	case f.Email != "":
		q.Set("email", f.Email)
	case f.UserID != "":
		q.Set("userId", f.UserID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("Api-Key", f.APIKey)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Source: source,
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, logging.Redact(string(body))),
		}
	}

	messages, err := DecodePayload(resp.Body, f.MaxMessages, f.logger)
	if err != nil {
		return nil, &FetchError{Source: source, Err: err}
	}
	f.logger.Debug().
		Int("count", len(messages)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched messages")
	return messages, nil
}
