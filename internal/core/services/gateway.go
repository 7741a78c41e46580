package services

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"mediagate/internal/core/domain"
	"mediagate/internal/core/ports"
)

// Gateway drives one streaming transaction per request:
// extract, select, relay. Admission is bounded by a weighted semaphore;
// requests beyond capacity fail fast with service_busy instead of piling
// up on upstream connections.
type Gateway struct {
	extractors     []ports.Extractor
	relay          *Relay
	slots          *semaphore.Weighted
	extractTimeout time.Duration
	requestTimeout time.Duration
}

func NewGateway(extractors []ports.Extractor, relay *Relay, maxConcurrent int64, extractTimeout, requestTimeout time.Duration) ports.Gateway {
	return &Gateway{
		extractors:     extractors,
		relay:          relay,
		slots:          semaphore.NewWeighted(maxConcurrent),
		extractTimeout: extractTimeout,
		requestTimeout: requestTimeout,
	}
}

func (g *Gateway) ExtractInfo(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	if err := g.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.slots.Release(1)

	return g.extract(ctx, rawURL)
}

func (g *Gateway) Download(ctx context.Context, req domain.DownloadRequest, sink ports.ResponseSink) error {
	return g.stream(ctx, req.URL, sink, func(info *domain.MediaInfo) (*domain.FormatDescriptor, error) {
		return SelectFormat(info, req.FormatID)
	})
}

func (g *Gateway) DownloadPhoto(ctx context.Context, rawURL string, sink ports.ResponseSink) error {
	return g.stream(ctx, rawURL, sink, SelectPhoto)
}

func (g *Gateway) stream(ctx context.Context, rawURL string, sink ports.ResponseSink, pick func(*domain.MediaInfo) (*domain.FormatDescriptor, error)) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.slots.Release(1)

	// One wall-clock budget spans extraction, selection and relay, on top
	// of the per-phase timeouts inside each component.
	ctx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	info, err := g.extract(ctx, rawURL)
	if err != nil {
		return err
	}
	format, err := pick(info)
	if err != nil {
		return err
	}

	start := time.Now()
	n, err := g.relay.Stream(ctx, format, info.Title, sink)
	if err != nil {
		log.Printf("relay failed url=%s format=%s bytes=%d: %v", rawURL, format.ID, n, err)
		return err
	}
	log.Printf("relayed url=%s format=%s bytes=%d in %s", rawURL, format.ID, n, time.Since(start).Round(time.Millisecond))
	return nil
}

func (g *Gateway) extract(parent context.Context, rawURL string) (*domain.MediaInfo, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	ext, err := g.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(parent, g.extractTimeout)
	defer cancel()

	info, err := ext.Extract(ctx, rawURL)
	if err != nil {
		if parent.Err() != nil {
			return nil, ctxErr(parent)
		}
		if ctx.Err() != nil {
			return nil, domain.Errorf(domain.KindUpstreamUnavailable, "extraction exceeded %s", g.extractTimeout)
		}
		return nil, domain.WrapKind(domain.KindUpstreamUnavailable, err)
	}
	return info, nil
}

func (g *Gateway) resolve(rawURL string) (ports.Extractor, error) {
	for _, ext := range g.extractors {
		if ext.CanHandle(rawURL) {
			return ext, nil
		}
	}
	return nil, domain.Errorf(domain.KindUnsupportedPlatform, "no extractor for this URL")
}

func (g *Gateway) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ctxErr(ctx)
	}
	if !g.slots.TryAcquire(1) {
		return domain.Errorf(domain.KindServiceBusy, "all download slots are in use")
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return domain.Errorf(domain.KindBadRequest, "url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return domain.Errorf(domain.KindBadRequest, "invalid url: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return domain.Errorf(domain.KindBadRequest, "unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return domain.Errorf(domain.KindBadRequest, "url has no host")
	}
	return nil
}
