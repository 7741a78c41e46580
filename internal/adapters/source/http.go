package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"mediagate/internal/core/domain"
)

// HTTPSource opens a single direct upstream URL.
type HTTPSource struct {
	URL     string
	Headers map[string]string
	Client  *http.Client
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	resp, err := get(ctx, s.client(), s.URL, s.Headers)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func (s *HTTPSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func get(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.E(domain.KindUpstreamUnavailable, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.E(domain.KindUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		kind := domain.KindUpstreamUnavailable
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			kind = domain.KindContentNotFound
		}
		return nil, domain.Errorf(kind, "upstream returned %s", resp.Status)
	}
	return resp, nil
}

func resolveRef(base, ref string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := u.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", ref, err)
	}
	return r.String(), nil
}
