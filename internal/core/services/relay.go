package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mediagate/internal/core/domain"
	"mediagate/internal/core/ports"
)

const relayChunkSize = 64 * 1024

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, relayChunkSize)
		return &b
	},
}

// Relay copies upstream media bytes to a client sink in bounded chunks.
// Peak memory per transfer is one pooled chunk buffer regardless of file
// size. Sources that need muxing are staged into a session-owned temp
// directory which is removed on every exit path.
type Relay struct {
	processor      ports.MediaProcessor
	tempRoot       string
	connectTimeout time.Duration
	idleTimeout    time.Duration
}

func NewRelay(processor ports.MediaProcessor, tempRoot string, connectTimeout, idleTimeout time.Duration) *Relay {
	return &Relay{
		processor:      processor,
		tempRoot:       tempRoot,
		connectTimeout: connectTimeout,
		idleTimeout:    idleTimeout,
	}
}

// StreamSession owns the upstream connection and staging area of one
// relay call. Close releases everything it owns; callers defer it.
type StreamSession struct {
	ID    string
	Bytes int64

	tempRoot string
	dir      string
}

func newStreamSession(tempRoot string) *StreamSession {
	return &StreamSession{ID: uuid.NewString(), tempRoot: tempRoot}
}

// StagingDir creates the session's private temp directory on first use.
func (s *StreamSession) StagingDir() (string, error) {
	if s.dir != "" {
		return s.dir, nil
	}
	dir := filepath.Join(s.tempRoot, "relay-"+s.ID)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", err
	}
	s.dir = dir
	return dir, nil
}

func (s *StreamSession) Close() error {
	if s.dir == "" {
		return nil
	}
	dir := s.dir
	s.dir = ""
	return os.RemoveAll(dir)
}

// Stream relays the chosen format to sink and returns the byte count.
// sink.Start is called only after the upstream source is open, so any
// failure before the first byte can still become an error response.
func (r *Relay) Stream(ctx context.Context, format *domain.FormatDescriptor, title string, sink ports.ResponseSink) (int64, error) {
	session := newStreamSession(r.tempRoot)
	defer session.Close()

	var (
		stream io.ReadCloser
		size   int64
		err    error
	)
	if muxed, ok := format.Source.(domain.MuxedSource); ok {
		stream, size, err = r.stageMuxed(ctx, session, muxed)
	} else {
		stream, size, err = r.open(ctx, format.Source)
	}
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	sink.Start(domain.ContentTypeFor(format.Container), Filename(title, format.Container), size)

	n, err := r.copyChunks(ctx, sink, stream, domain.KindSinkWrite, sink.Flush)
	session.Bytes = n
	return n, err
}

// open starts the upstream connection, bounded by the connect timeout.
// The source's own context stays ctx so the stream survives the open
// window; a late stream after timeout is drained and closed.
func (r *Relay) open(ctx context.Context, src domain.MediaSource) (io.ReadCloser, int64, error) {
	if src == nil {
		return nil, 0, domain.Errorf(domain.KindUpstreamRead, "format has no byte source")
	}

	ch := make(chan opened, 1)
	go func() {
		rc, size, err := src.Open(ctx)
		ch <- opened{rc, size, err}
	}()

	timer := time.NewTimer(r.connectTimeout)
	defer timer.Stop()

	select {
	case o := <-ch:
		if o.err != nil {
			return nil, 0, domain.WrapKind(domain.KindUpstreamUnavailable, o.err)
		}
		return o.rc, o.size, nil
	case <-timer.C:
		go closeLate(ch)
		return nil, 0, domain.Errorf(domain.KindRelayTimeout, "opening upstream source exceeded %s", r.connectTimeout)
	case <-ctx.Done():
		go closeLate(ch)
		return nil, 0, ctxErr(ctx)
	}
}

type opened struct {
	rc   io.ReadCloser
	size int64
	err  error
}

func closeLate(ch <-chan opened) {
	if o := <-ch; o.rc != nil {
		o.rc.Close()
	}
}

// stageMuxed downloads both elementary streams into the session staging
// dir, muxes them and returns the combined file as the stream. The file
// lives inside the staging dir, so session.Close removes it.
func (r *Relay) stageMuxed(ctx context.Context, session *StreamSession, muxed domain.MuxedSource) (io.ReadCloser, int64, error) {
	if r.processor == nil {
		return nil, 0, domain.Errorf(domain.KindUpstreamRead, "no media processor configured for muxed source")
	}
	dir, err := session.StagingDir()
	if err != nil {
		return nil, 0, domain.E(domain.KindUpstreamRead, err)
	}

	videoPath := filepath.Join(dir, "video.part")
	audioPath := filepath.Join(dir, "audio.part")
	outPath := filepath.Join(dir, "muxed.mp4")

	if err := r.stageOne(ctx, muxed.Video, videoPath); err != nil {
		return nil, 0, err
	}
	if err := r.stageOne(ctx, muxed.Audio, audioPath); err != nil {
		return nil, 0, err
	}
	if err := r.processor.Mux(ctx, videoPath, audioPath, outPath); err != nil {
		return nil, 0, domain.WrapKind(domain.KindUpstreamRead, err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, 0, domain.E(domain.KindUpstreamRead, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, domain.E(domain.KindUpstreamRead, err)
	}
	return f, info.Size(), nil
}

func (r *Relay) stageOne(ctx context.Context, src domain.MediaSource, path string) error {
	stream, _, err := r.open(ctx, src)
	if err != nil {
		return err
	}
	defer stream.Close()

	f, err := os.Create(path)
	if err != nil {
		return domain.E(domain.KindUpstreamRead, err)
	}
	defer f.Close()

	_, err = r.copyChunks(ctx, f, stream, domain.KindUpstreamRead, nil)
	return err
}

// copyChunks is the relay loop: read one chunk, write it, flush, repeat.
// Each read is guarded by the idle watchdog; a stalled upstream gets its
// stream closed, which unblocks the pending read.
func (r *Relay) copyChunks(ctx context.Context, dst io.Writer, src io.ReadCloser, writeKind domain.Kind, flush func()) (int64, error) {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := *bufp

	var stalled atomic.Bool
	watchdog := time.AfterFunc(r.idleTimeout, func() {
		stalled.Store(true)
		src.Close()
	})
	defer watchdog.Stop()

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, ctxErr(ctx)
		}

		n, rerr := src.Read(buf)
		watchdog.Reset(r.idleTimeout)

		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, domain.E(writeKind, werr)
			}
			written += int64(n)
			if flush != nil {
				flush()
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			if stalled.Load() {
				return written, domain.Errorf(domain.KindRelayTimeout, "upstream idle for more than %s", r.idleTimeout)
			}
			if err := ctx.Err(); err != nil {
				return written, ctxErr(ctx)
			}
			return written, domain.WrapKind(domain.KindUpstreamRead, rerr)
		}
	}
}

// ctxErr maps a finished context to the failure it represents: an expired
// deadline is the request budget, a plain cancel is the client going away.
func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.E(domain.KindRequestTimeout, ctx.Err())
	}
	return domain.E(domain.KindSinkWrite, ctx.Err())
}

// Filename builds a safe attachment filename from a media title.
func Filename(title, container string) string {
	title = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '"', r == '\\', r == '/', r == ':', r == '*', r == '?', r == '<', r == '>', r == '|':
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(title))
	if title == "" {
		title = "media"
	}
	if len(title) > 120 {
		title = title[:120]
	}
	return fmt.Sprintf("%s.%s", title, container)
}
