package domain

import (
	"context"
	"io"
)

// MediaKind tells the orchestrator what a descriptor carries.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaPhoto MediaKind = "photo"
)

type MediaInfo struct {
	URL             string             `json:"url"`
	Platform        string             `json:"platform"`
	Title           string             `json:"title"`
	Author          string             `json:"author,omitempty"`
	Thumbnail       string             `json:"thumbnail"`
	DurationSeconds int                `json:"duration,omitempty"`
	Formats         []FormatDescriptor `json:"formats"`
}

// FormatDescriptor is one retrievable variant of a media item. The Source
// field is the only handle to upstream bytes and is never serialized, so
// upstream URLs and credentials stay inside the process.
type FormatDescriptor struct {
	ID        string    `json:"format_id"`
	Kind      MediaKind `json:"kind"`
	Container string    `json:"ext"`
	Quality   string    `json:"quality"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	FPS       int       `json:"fps,omitempty"`
	Filesize  int64     `json:"filesize,omitempty"`
	AudioOnly bool      `json:"audio_only,omitempty"`
	VideoOnly bool      `json:"video_only,omitempty"`

	Source MediaSource `json:"-"`
}

type DownloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id,omitempty"`
}

// MediaSource opens one upstream byte stream. Size is -1 when unknown.
type MediaSource interface {
	Open(ctx context.Context) (stream io.ReadCloser, size int64, err error)
}

// MuxedSource is a pair of elementary streams that must be staged to disk
// and combined before they can be relayed as one file.
type MuxedSource struct {
	Video MediaSource
	Audio MediaSource
}

// Open on a MuxedSource is invalid; the relay stages both halves itself.
func (m MuxedSource) Open(context.Context) (io.ReadCloser, int64, error) {
	return nil, 0, Errorf(KindUpstreamRead, "muxed source cannot be opened directly")
}

// SourceFunc adapts a plain function to a MediaSource.
type SourceFunc func(ctx context.Context) (io.ReadCloser, int64, error)

func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	return f(ctx)
}

// ContentTypeFor maps a container extension to a response media type.
func ContentTypeFor(container string) string {
	switch container {
	case "mp4", "m4v", "mov", "mkv", "flv", "avi", "3gp":
		return "video/" + container
	case "webm":
		return "video/webm"
	case "mp3":
		return "audio/mpeg"
	case "m4a", "aac", "ogg", "opus", "wav":
		return "audio/" + container
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png", "gif", "webp":
		return "image/" + container
	default:
		return "application/octet-stream"
	}
}
