// Package jokeapi fetches joke batches from a JokeAPI compatible endpoint.
package jokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tracker/internal/domain"
)

// maxBody caps the payload read from the remote.
const maxBody = 1 << 20

// ErrRemote is returned when the remote reports an error in its payload.
var ErrRemote = errors.New("remote reported an error")

// Client issues the fixed GET request.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for url. A nil httpClient gets one with timeout.
func NewClient(url string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{url: url, http: httpClient}
}

// URL returns the configured endpoint.
func (c *Client) URL() string { return c.url }

type joke struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
	Joke     string `json:"joke"`
}

type payload struct {
	Error   bool   `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Jokes   []joke `json:"jokes"`

	// single joke form, fields inline
	joke
}

// Fetch retrieves one batch.
func (c *Client) Fetch(ctx context.Context) ([]domain.Joke, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jokes: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read jokes: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("jokes endpoint answered %d", resp.StatusCode)
	}

	return Parse(body)
}

// Parse decodes the batch form {"jokes":[...]} and the single joke form.
func Parse(body []byte) ([]domain.Joke, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to parse jokes: %w", err)
	}
	if p.Error {
		return nil, fmt.Errorf("%w: code %d: %s", ErrRemote, p.Code, p.Message)
	}

	raw := p.Jokes
	if raw == nil {
		if p.Type == "" && p.Setup == "" && p.Joke == "" {
			return nil, errors.New("failed to parse jokes: payload holds no joke")
		}
		raw = []joke{p.joke}
	}

	jokes := make([]domain.Joke, 0, len(raw))
	for _, j := range raw {
		jokes = append(jokes, j.toDomain())
	}
	return jokes, nil
}

func (j joke) toDomain() domain.Joke {
	out := domain.Joke{
		ID:       j.ID,
		Setup:    j.Setup,
		Delivery: j.Delivery,
		Category: j.Category,
	}
	if j.Type == "single" {
		out.Setup = j.Joke
	}
	return out
}
