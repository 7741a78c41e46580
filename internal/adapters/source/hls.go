package source

import (
	"context"
	"io"
	"net/http"

	"github.com/grafov/m3u8"

	"mediagate/internal/core/domain"
)

// HLSSource streams an HLS playlist as one continuous byte stream.
// A master playlist is resolved to its highest-bandwidth variant, then the
// media playlist's segments are fetched and concatenated in order. Total
// size is unknown up front, so Open reports -1.
type HLSSource struct {
	ManifestURL string
	Headers     map[string]string
	Client      *http.Client
}

func (s *HLSSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	mediaURL, media, err := s.resolveMedia(ctx, s.ManifestURL, 0)
	if err != nil {
		return nil, 0, err
	}

	pr, pw := io.Pipe()
	go s.pump(ctx, pw, mediaURL, media)
	return pr, -1, nil
}

// resolveMedia follows master playlists down to a media playlist,
// preferring the highest declared bandwidth.
func (s *HLSSource) resolveMedia(ctx context.Context, manifestURL string, depth int) (string, *m3u8.MediaPlaylist, error) {
	if depth > 3 {
		return "", nil, domain.Errorf(domain.KindUpstreamUnavailable, "hls master playlists nested too deep")
	}

	resp, err := get(ctx, s.client(), manifestURL, s.Headers)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return "", nil, domain.Errorf(domain.KindUpstreamUnavailable, "parsing hls manifest: %v", err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		if len(master.Variants) == 0 {
			return "", nil, domain.Errorf(domain.KindContentNotFound, "hls master playlist has no variants")
		}
		best := master.Variants[0]
		for _, v := range master.Variants {
			if v != nil && v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		next, err := resolveRef(manifestURL, best.URI)
		if err != nil {
			return "", nil, domain.E(domain.KindUpstreamUnavailable, err)
		}
		return s.resolveMedia(ctx, next, depth+1)
	case m3u8.MEDIA:
		return manifestURL, playlist.(*m3u8.MediaPlaylist), nil
	default:
		return "", nil, domain.Errorf(domain.KindUpstreamUnavailable, "unrecognized hls playlist type")
	}
}

// pump fetches segments sequentially and writes them into the pipe.
// Backpressure comes from the pipe itself: a slow client blocks the
// writer, which stops segment fetching.
func (s *HLSSource) pump(ctx context.Context, pw *io.PipeWriter, mediaURL string, media *m3u8.MediaPlaylist) {
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		if err := s.copySegment(ctx, pw, mediaURL, seg.URI); err != nil {
			pw.CloseWithError(err)
			return
		}
	}
	pw.Close()
}

func (s *HLSSource) copySegment(ctx context.Context, pw *io.PipeWriter, mediaURL, segURI string) error {
	segURL, err := resolveRef(mediaURL, segURI)
	if err != nil {
		return err
	}
	resp, err := get(ctx, s.client(), segURL, s.Headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(pw, resp.Body)
	return err
}

func (s *HLSSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}
