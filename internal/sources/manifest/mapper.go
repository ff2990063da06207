package manifest

import (
	"fmt"
	"net/url"
	"strings"
)

// Generation returns the cache generation name, "<app>-<version>"
func (m Manifest) Generation() string {
	return m.App + "-" + m.Version
}

// ResolveResources maps every resource path onto origin, keeping manifest order
func (m Manifest) ResolveResources(origin *url.URL) ([]string, error) {
	urls := make([]string, 0, len(m.Resources))
	for _, r := range m.Resources {
		u, err := Resolve(origin, r)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// LandingURL returns the absolute URL of the fallback page
func (m Manifest) LandingURL(origin *url.URL) (string, error) {
	landing := m.Landing
	if landing == "" {
		landing = DefaultLanding
	}
	return Resolve(origin, landing)
}

// Resolve maps a resource path ("./app.js", "/index.html", "icons/a.png")
// onto origin. A leading slash means the origin's base path, the same way
// inbound requests are joined onto it. Absolute URLs are rejected: a
// generation only holds same-origin assets.
func Resolve(origin *url.URL, resource string) (string, error) {
	resource = strings.TrimSpace(resource)
	ref, err := url.Parse(resource)
	if err != nil {
		return "", fmt.Errorf("invalid resource %q: %w", resource, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("resource %q must be relative to the origin", resource)
	}

	if strings.HasPrefix(ref.Path, "/") {
		ref.Path = strings.TrimLeft(ref.Path, "/")
		ref.RawPath = ""
	}

	base := *origin
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String(), nil
}
