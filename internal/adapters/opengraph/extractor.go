package opengraph

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"mediagate/internal/adapters/source"
	"mediagate/internal/core/domain"
	"mediagate/internal/core/ports"
)

// Extractor scrapes OpenGraph meta tags from platforms that expose media
// through og:video / og:image instead of a format API. LinkedIn posts are
// the main case; image-only posts become a single photo descriptor.
type Extractor struct {
	headers map[string]string
	client  *http.Client
}

func New(headers map[string]string, httpClient *http.Client) ports.Extractor {
	return &Extractor{headers: headers, client: httpClient}
}

func (e *Extractor) Name() string { return "opengraph" }

func (e *Extractor) CanHandle(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.E(domain.KindBadRequest, err)
	}
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	client := e.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.E(domain.KindUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, domain.Errorf(domain.KindContentNotFound, "post not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "fetching page: %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "parsing page: %v", err)
	}
	return e.fromMeta(rawURL, collectMeta(doc))
}

func (e *Extractor) fromMeta(rawURL string, meta map[string]string) (*domain.MediaInfo, error) {
	info := &domain.MediaInfo{
		URL:       rawURL,
		Platform:  "linkedin",
		Title:     meta["og:title"],
		Thumbnail: meta["og:image"],
	}
	if info.Title == "" {
		info.Title = "LinkedIn Post"
	}

	if videoURL := firstOf(meta, "og:video:secure_url", "og:video:url", "og:video"); videoURL != "" {
		info.Formats = append(info.Formats, domain.FormatDescriptor{
			ID:        "video",
			Kind:      domain.MediaVideo,
			Container: "mp4",
			Quality:   "original",
			Source:    &source.HTTPSource{URL: videoURL, Headers: e.headers, Client: e.client},
		})
	}
	if imageURL := meta["og:image"]; imageURL != "" {
		info.Formats = append(info.Formats, domain.FormatDescriptor{
			ID:        "photo",
			Kind:      domain.MediaPhoto,
			Container: extOf(imageURL),
			Quality:   "original",
			Source:    &source.HTTPSource{URL: imageURL, Headers: e.headers, Client: e.client},
		})
	}
	if len(info.Formats) == 0 {
		return nil, domain.Errorf(domain.KindContentNotFound, "no media found in post")
	}
	return info, nil
}

// collectMeta walks the document and gathers <meta property=... content=...>.
func collectMeta(doc *html.Node) map[string]string {
	meta := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property", "name":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if property != "" && content != "" {
				if _, seen := meta[property]; !seen {
					meta[property] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return meta
}

func firstOf(meta map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := meta[key]; v != "" {
			return v
		}
	}
	return ""
}

func extOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "jpg"
	}
	if i := strings.LastIndexByte(parsed.Path, '.'); i >= 0 && i < len(parsed.Path)-1 {
		ext := strings.ToLower(parsed.Path[i+1:])
		switch ext {
		case "jpg", "jpeg", "png", "gif", "webp":
			return ext
		}
	}
	return "jpg"
}
