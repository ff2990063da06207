package worker

import (
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/tracker/internal/logger"
)

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Handler serves any path by fetching it from the origin through the worker.
func (w *Worker) Handler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		out, err := w.outbound(r)
		if err != nil {
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}

		resp, err := w.Fetch(out)
		if err != nil {
			w.log.Warn("fetch failed", logger.String("url", out.URL.String()), logger.Error(err))
			http.Error(rw, "upstream unavailable", http.StatusBadGateway)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		header := resp.Header.Clone()
		removeHopHeaders(header)
		for k, vv := range header {
			for _, v := range vv {
				rw.Header().Add(k, v)
			}
		}
		rw.WriteHeader(resp.StatusCode)
		if r.Method != http.MethodHead {
			_, _ = io.Copy(rw, resp.Body)
		}
	})
}

// outbound rewrites an inbound request onto the origin.
func (w *Worker) outbound(r *http.Request) (*http.Request, error) {
	target := *w.origin
	target.Path = singleJoin(w.origin.Path, r.URL.Path)
	target.RawPath = ""
	target.RawQuery = r.URL.RawQuery
	target.Fragment = ""

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody {
		body = r.Body
	}
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	out.Header = r.Header.Clone()
	removeHopHeaders(out.Header)
	out.ContentLength = r.ContentLength
	return out, nil
}

// removeHopHeaders drops hop-by-hop headers, including any the Connection
// header names.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

func singleJoin(base, path string) string {
	joined, err := url.JoinPath("/", base, path)
	if err != nil {
		return path
	}
	return joined
}
