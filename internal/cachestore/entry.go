// Package cachestore keeps named cache generations of stored HTTP responses.
package cachestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrNotCacheable is returned by Put for requests other than GET.
	ErrNotCacheable = errors.New("only GET requests can be cached")
	// ErrPartialContent is returned by Put for 206 responses.
	ErrPartialContent = errors.New("partial responses are not cached")
	// ErrBadStatus is returned by AddAll when a resource answers outside 2xx.
	ErrBadStatus = errors.New("resource answered with a non-2xx status")
)

// Entry is a stored response.
type Entry struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Response rebuilds an independent *http.Response from the entry.
func (e *Entry) Response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        strconv.Itoa(e.Status) + " " + http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// capture drains resp into an entry and gives resp a fresh body over the
// same bytes, so the caller still holds an unread response. If reading fails
// the fresh body replays what was read and then fails the same way.
func capture(key string, resp *http.Response, now time.Time) (*Entry, error) {
	var body []byte
	if resp.Body != nil {
		b, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			resp.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), failingReader{err}))
			return nil, fmt.Errorf("failed to read body of %s: %w", key, err)
		}
		body = b
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Entry{
		URL:      key,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: now,
	}, nil
}

// Key is the cache key for a URL: the absolute URL without fragment.
func Key(req *http.Request) string {
	u := *req.URL
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
