package geometry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/logger"
	"github.com/Faultbox/pointview/pkg/formats"
)

// Loader errors.
var (
	ErrEmptyURL          = errors.New("empty geometry url")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrHTTPStatus        = errors.New("unexpected http status")
	ErrMalformed         = errors.New("malformed geometry")
)

const (
	readChunk    = 64 * 1024
	progressStep = 256 * 1024
	// maxPrealloc caps the buffer reserved from a declared size. Larger
	// bodies still load, growing as they arrive.
	maxPrealloc = 64 * 1024 * 1024
)

// Poster hands a callback to the host thread.
type Poster interface {
	Post(fn func())
}

// Loader fetches and parses geometry off the host thread and delivers the
// result back through a Poster.
type Loader struct {
	post   Poster
	client *http.Client
	log    *zap.Logger
}

// NewLoader creates a loader. A nil client uses http.DefaultClient.
func NewLoader(post Poster, client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		post:   post,
		client: client,
		log:    logger.Named("geometry"),
	}
}

// Load reads the geometry at rawURL (file:// url, plain path, or http(s) url)
// in a goroutine. Exactly one of onSuccess and onFailure is posted. onProgress
// may be nil; total is -1 when the size is unknown. Cancelling ctx aborts the
// read and reports ctx.Err() through onFailure.
func (l *Loader) Load(ctx context.Context, rawURL string,
	onSuccess func(*Geometry), onProgress func(loaded, total int64), onFailure func(error)) {
	go func() {
		report := func(loaded, total int64) {
			if onProgress != nil {
				l.post.Post(func() { onProgress(loaded, total) })
			}
		}

		g, err := l.fetch(ctx, rawURL, report)
		if err != nil {
			l.log.Warn("load failed", zap.String("url", rawURL), zap.Error(err))
			l.post.Post(func() { onFailure(err) })
			return
		}

		l.log.Info("geometry loaded",
			zap.String("url", rawURL),
			zap.Int("vertices", g.VertexCount()),
			zap.Int("triangles", len(g.Triangles)),
			zap.Bool("colors", g.HasColors()))
		l.post.Post(func() { onSuccess(g) })
	}()
}

func (l *Loader) fetch(ctx context.Context, rawURL string, report func(loaded, total int64)) (*Geometry, error) {
	rc, total, err := l.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := readAll(ctx, rc, total, report)
	if err != nil {
		return nil, err
	}

	return parse(rawURL, data)
}

// parse turns the payload into geometry. A panic while decoding is reported
// as ErrMalformed so a bad file cannot take the process down.
func parse(rawURL string, data []byte) (g *Geometry, err error) {
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("%w: %s: %v", ErrMalformed, rawURL, r)
		}
	}()

	ply, err := formats.ParsePLY(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrMalformed, rawURL, err)
	}
	return FromPLY(ply), nil
}

// open resolves rawURL to a reader and its size (-1 if unknown).
func (l *Loader) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	if rawURL == "" {
		return nil, 0, ErrEmptyURL
	}

	path := rawURL
	if strings.Contains(rawURL, "://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, 0, fmt.Errorf("parsing url: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			return l.openHTTP(ctx, rawURL)
		case "file":
			path = u.Path
		default:
			return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening geometry: %w", err)
	}
	total := int64(-1)
	if info, err := f.Stat(); err == nil {
		total = info.Size()
	}
	return f, total, nil
}

func (l *Loader) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("fetching geometry: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}

// readAll reads r in chunks, checking ctx between chunks and reporting
// progress every progressStep bytes and once at the end.
func readAll(ctx context.Context, r io.Reader, total int64, report func(loaded, total int64)) ([]byte, error) {
	var data []byte
	if total > 0 {
		data = make([]byte, 0, min(total, maxPrealloc))
	}
	buf := make([]byte, readChunk)
	var loaded, lastReport int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		data = append(data, buf[:n]...)
		loaded += int64(n)
		if loaded-lastReport >= progressStep {
			report(loaded, total)
			lastReport = loaded
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("reading geometry: %w", err)
		}
	}
	report(loaded, total)
	return data, nil
}
