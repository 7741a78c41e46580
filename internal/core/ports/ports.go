package ports

import (
	"context"
	"io"

	"mediagate/internal/core/domain"
)

// Gateway is the driving port: one method per API operation.
type Gateway interface {
	ExtractInfo(ctx context.Context, url string) (*domain.MediaInfo, error)
	Download(ctx context.Context, req domain.DownloadRequest, sink ResponseSink) error
	DownloadPhoto(ctx context.Context, url string, sink ResponseSink) error
}

// ResponseSink is the client side of a relay. Start must be called exactly
// once, before the first Write; after Start the response can no longer be
// replaced with an error body.
type ResponseSink interface {
	Start(contentType, filename string, size int64)
	io.Writer
	Flush()
}

// Extractor resolves a URL on one platform family into media metadata.
type Extractor interface {
	Name() string
	CanHandle(url string) bool
	Extract(ctx context.Context, url string) (*domain.MediaInfo, error)
}

// MediaProcessor combines staged elementary streams into one container.
type MediaProcessor interface {
	Mux(ctx context.Context, videoPath, audioPath, outPath string) error
}
