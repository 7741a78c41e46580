package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"sort"
	"strings"

	"mediagate/internal/adapters/source"
	"mediagate/internal/core/domain"
	"mediagate/internal/core/ports"
)

// maxFormats caps how many quality variants are exposed per item.
const maxFormats = 10

// platformHosts maps URL hosts to the platform label reported in
// MediaInfo. Everything yt-dlp can scrape that is not YouTube goes
// through this adapter.
var platformHosts = map[string]string{
	"tiktok.com":    "tiktok",
	"instagram.com": "instagram",
	"facebook.com":  "facebook",
	"fb.watch":      "facebook",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
}

// Extractor shells out to the yt-dlp binary for metadata and exposes the
// resolved stream URLs as byte sources. No media bytes pass through
// yt-dlp itself.
type Extractor struct {
	binPath string
	headers map[string]string
	client  *http.Client
}

func New(binPath string, headers map[string]string, httpClient *http.Client) ports.Extractor {
	return &Extractor{binPath: binPath, headers: headers, client: httpClient}
}

func (e *Extractor) Name() string { return "ytdlp" }

func (e *Extractor) CanHandle(rawURL string) bool {
	return e.platform(rawURL) != ""
}

func (e *Extractor) platform(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	for suffix, platform := range platformHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return platform
		}
	}
	return ""
}

// metadata matches the subset of `yt-dlp -J` output this adapter reads.
type metadata struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Uploader  string   `json:"uploader"`
	Duration  float64  `json:"duration"`
	Thumbnail string   `json:"thumbnail"`
	Formats   []format `json:"formats"`
}

type format struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	URL        string  `json:"url"`
	Protocol   string  `json:"protocol"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	Filesize   int64   `json:"filesize"`
	FilesizeA  int64   `json:"filesize_approx"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	ABR        float64 `json:"abr"`
	FormatNote string  `json:"format_note"`
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	out, err := e.dump(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return e.parse(rawURL, out)
}

func (e *Extractor) parse(rawURL string, out []byte) (*domain.MediaInfo, error) {
	var data metadata
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, "parsing yt-dlp output: %v", err)
	}

	info := &domain.MediaInfo{
		URL:             rawURL,
		Platform:        e.platform(rawURL),
		Title:           data.Title,
		Author:          data.Uploader,
		Thumbnail:       data.Thumbnail,
		DurationSeconds: int(data.Duration),
	}

	bestAudio := e.bestAudio(data.Formats)
	video := make([]format, 0, len(data.Formats))
	for _, f := range data.Formats {
		if f.VCodec == "" || f.VCodec == "none" || f.URL == "" {
			continue
		}
		video = append(video, f)
	}
	sort.SliceStable(video, func(i, j int) bool { return video[i].Height > video[j].Height })
	if len(video) > maxFormats {
		video = video[:maxFormats]
	}

	for _, f := range video {
		desc := domain.FormatDescriptor{
			ID:        f.FormatID,
			Kind:      domain.MediaVideo,
			Container: f.Ext,
			Quality:   f.quality(),
			Width:     f.Width,
			Height:    f.Height,
			FPS:       int(f.FPS),
			Filesize:  f.size(),
			VideoOnly: f.ACodec == "none",
		}
		src := e.sourceFor(f.URL, f.Protocol)
		if desc.VideoOnly && bestAudio != nil {
			desc.Source = domain.MuxedSource{Video: src, Audio: bestAudio}
			desc.Container = "mp4"
		} else {
			desc.Source = src
		}
		info.Formats = append(info.Formats, desc)
	}

	if data.Thumbnail != "" {
		info.Formats = append(info.Formats, domain.FormatDescriptor{
			ID:        "photo",
			Kind:      domain.MediaPhoto,
			Container: extOf(data.Thumbnail),
			Quality:   "original",
			Source:    e.sourceFor(data.Thumbnail, ""),
		})
	}
	if len(info.Formats) == 0 {
		return nil, domain.Errorf(domain.KindContentNotFound, "no retrievable media at this URL")
	}
	return info, nil
}

func (e *Extractor) dump(ctx context.Context, rawURL string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.binPath, "-J", "--no-playlist", "--no-warnings", rawURL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, domain.E(domain.KindUpstreamUnavailable, ctx.Err())
		}
		return nil, classifyStderr(stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

func classifyStderr(stderr string, err error) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "unsupported url"):
		return domain.Errorf(domain.KindUnsupportedPlatform, "yt-dlp: unsupported url")
	case strings.Contains(msg, "404"),
		strings.Contains(msg, "not exist"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "private"),
		strings.Contains(msg, "removed"):
		return domain.Errorf(domain.KindContentNotFound, "yt-dlp: %s", firstLine(stderr))
	default:
		return domain.Errorf(domain.KindUpstreamUnavailable, "yt-dlp failed: %v: %s", err, firstLine(stderr))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func (e *Extractor) sourceFor(rawURL, protocol string) domain.MediaSource {
	if strings.Contains(protocol, "m3u8") {
		return &source.HLSSource{ManifestURL: rawURL, Headers: e.headers, Client: e.client}
	}
	return &source.HTTPSource{URL: rawURL, Headers: e.headers, Client: e.client}
}

func (e *Extractor) bestAudio(formats []format) domain.MediaSource {
	best := -1
	for i, f := range formats {
		if f.ACodec == "" || f.ACodec == "none" || (f.VCodec != "" && f.VCodec != "none") || f.URL == "" {
			continue
		}
		if best == -1 || f.ABR > formats[best].ABR {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	return e.sourceFor(formats[best].URL, formats[best].Protocol)
}

func (f format) quality() string {
	if f.FormatNote != "" {
		return f.FormatNote
	}
	if f.Height > 0 {
		return fmt.Sprintf("%dp", f.Height)
	}
	return "unknown"
}

func (f format) size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeA
}

func extOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "jpg"
	}
	if i := strings.LastIndexByte(parsed.Path, '.'); i >= 0 && i < len(parsed.Path)-1 {
		return strings.ToLower(parsed.Path[i+1:])
	}
	return "jpg"
}
