package youtube

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"mediagate/internal/core/domain"
	"mediagate/internal/core/ports"
)

// Extractor resolves YouTube URLs natively through the innertube API
// instead of shelling out to yt-dlp.
type Extractor struct {
	client *youtube.Client
}

func New(httpClient *http.Client) ports.Extractor {
	return &Extractor{client: &youtube.Client{HTTPClient: httpClient}}
}

func (e *Extractor) Name() string { return "youtube" }

func (e *Extractor) CanHandle(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	video, err := e.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, classify(err)
	}

	info := &domain.MediaInfo{
		URL:             rawURL,
		Platform:        e.Name(),
		Title:           video.Title,
		Author:          video.Author,
		DurationSeconds: int(video.Duration / time.Second),
	}
	if len(video.Thumbnails) > 0 {
		info.Thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	bestAudio := e.bestAudioSource(video)
	for i := range video.Formats {
		f := &video.Formats[i]
		desc := domain.FormatDescriptor{
			ID:        strconv.Itoa(f.ItagNo),
			Kind:      domain.MediaVideo,
			Container: mimeToExt(f.MimeType),
			Quality:   qualityLabel(f),
			Width:     f.Width,
			Height:    f.Height,
			FPS:       f.FPS,
			Filesize:  f.ContentLength,
			AudioOnly: f.AudioChannels > 0 && f.Height == 0,
			VideoOnly: f.AudioChannels == 0 && f.Height > 0,
		}
		if desc.AudioOnly {
			desc.Kind = domain.MediaAudio
		}

		src := e.streamSource(video, i)
		if desc.VideoOnly && bestAudio != nil {
			// Adaptive video tracks have no sound; pair them with the best
			// audio track so the relayed file is playable.
			desc.Source = domain.MuxedSource{Video: src, Audio: bestAudio}
			desc.Container = "mp4"
		} else {
			desc.Source = src
		}
		info.Formats = append(info.Formats, desc)
	}

	if info.Thumbnail != "" {
		info.Formats = append(info.Formats, thumbnailDescriptor(ctx, e.client.HTTPClient, info.Thumbnail))
	}
	if len(info.Formats) == 0 {
		return nil, domain.Errorf(domain.KindContentNotFound, "video has no retrievable formats")
	}
	return info, nil
}

func (e *Extractor) streamSource(video *youtube.Video, formatIdx int) domain.MediaSource {
	return domain.SourceFunc(func(ctx context.Context) (io.ReadCloser, int64, error) {
		stream, size, err := e.client.GetStreamContext(ctx, video, &video.Formats[formatIdx])
		if err != nil {
			return nil, 0, classify(err)
		}
		return stream, size, nil
	})
}

func (e *Extractor) bestAudioSource(video *youtube.Video) domain.MediaSource {
	best := -1
	for i := range video.Formats {
		f := &video.Formats[i]
		if f.AudioChannels == 0 || f.Height != 0 {
			continue
		}
		if best == -1 || f.Bitrate > video.Formats[best].Bitrate {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	return e.streamSource(video, best)
}

func thumbnailDescriptor(_ context.Context, httpClient *http.Client, thumbURL string) domain.FormatDescriptor {
	return domain.FormatDescriptor{
		ID:        "photo",
		Kind:      domain.MediaPhoto,
		Container: extFromURL(thumbURL, "jpg"),
		Quality:   "original",
		Source: domain.SourceFunc(func(ctx context.Context) (io.ReadCloser, int64, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbURL, nil)
			if err != nil {
				return nil, 0, domain.E(domain.KindUpstreamUnavailable, err)
			}
			client := httpClient
			if client == nil {
				client = http.DefaultClient
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, 0, domain.E(domain.KindUpstreamUnavailable, err)
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, 0, domain.Errorf(domain.KindUpstreamUnavailable, "thumbnail fetch returned %s", resp.Status)
			}
			return resp.Body, resp.ContentLength, nil
		}),
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return domain.E(domain.KindContentNotFound, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return domain.E(domain.KindBadRequest, err)
	}
	var status *youtube.ErrPlayabiltyStatus
	if errors.As(err, &status) {
		return domain.E(domain.KindContentNotFound, err)
	}
	return domain.E(domain.KindUpstreamUnavailable, err)
}

func qualityLabel(f *youtube.Format) string {
	if f.QualityLabel != "" {
		return f.QualityLabel
	}
	return f.Quality
}

func mimeToExt(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "mp4"
	}
	if i := strings.IndexByte(mt, '/'); i >= 0 {
		return mt[i+1:]
	}
	return "mp4"
}

func extFromURL(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	path := parsed.Path
	if i := strings.LastIndexByte(path, '.'); i >= 0 && i < len(path)-1 {
		return strings.ToLower(path[i+1:])
	}
	return fallback
}
