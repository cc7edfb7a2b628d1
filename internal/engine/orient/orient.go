// Package orient produces orientation-corrected copies of preview images.
// Photos carry their rotation in EXIF; the corrected copy has it applied to
// the pixels so any decoder shows it upright.
package orient

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	// Extra decoders for previews
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/pointview/internal/logger"
)

// ErrNotImage is returned when the preview bytes are not a known image type.
var ErrNotImage = errors.New("not an image")

// DefaultTimeout bounds a remote preview fetch when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Poster hands a callback to the host thread.
type Poster interface {
	Post(fn func())
}

// Config configures an Orienter.
type Config struct {
	// Enabled turns correction on. When off, Correct reports the url unchanged.
	Enabled bool
	// CacheDir receives corrected copies. Empty uses a directory under os.TempDir.
	CacheDir string
	// Client fetches http(s) previews. Nil uses http.DefaultClient.
	Client *http.Client
	// Timeout bounds each http(s) fetch, body included. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Orienter corrects preview images off the host thread.
type Orienter struct {
	post     Poster
	enabled  bool
	cacheDir string
	client   *http.Client
	timeout  time.Duration
	group    singleflight.Group
	log      *zap.Logger
}

// New creates an orienter delivering results through post.
func New(post Poster, cfg Config) *Orienter {
	dir := cfg.CacheDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "pointview-previews")
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orienter{
		post:     post,
		enabled:  cfg.Enabled,
		cacheDir: dir,
		client:   client,
		timeout:  timeout,
		log:      logger.Named("orient"),
	}
}

// Correct reports the path of an upright copy of the image at rawURL, or
// rawURL itself if correction is disabled or fails. onResult always runs
// exactly once, on the host thread.
func (o *Orienter) Correct(rawURL string, onResult func(correctedURL string)) {
	if !o.enabled || rawURL == "" {
		o.post.Post(func() { onResult(rawURL) })
		return
	}

	go func() {
		v, err, _ := o.group.Do(rawURL, func() (any, error) {
			return o.correct(rawURL)
		})
		result := rawURL
		if err != nil {
			o.log.Warn("orientation correction failed, using original",
				zap.String("url", rawURL), zap.Error(err))
		} else {
			result = v.(string)
		}
		o.post.Post(func() { onResult(result) })
	}()
}

// CachePath returns where the corrected copy of rawURL is stored. version
// names the source revision, so an edited preview gets a fresh copy.
func (o *Orienter) CachePath(rawURL, version string) string {
	sum := sha1.Sum([]byte(rawURL + "\x00" + version))
	return filepath.Join(o.cacheDir, hex.EncodeToString(sum[:])+".png")
}

func (o *Orienter) correct(rawURL string) (string, error) {
	src, err := o.locate(rawURL)
	if err != nil {
		return "", err
	}
	out := o.CachePath(rawURL, src.version)
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	data, err := src.read()
	if err != nil {
		return "", err
	}

	kind, err := filetype.Match(data)
	if err != nil || kind.MIME.Type != "image" {
		return "", fmt.Errorf("%w: %s", ErrNotImage, rawURL)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decoding %s image: %w", kind.Extension, err)
	}

	if err := os.MkdirAll(o.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	// Write then rename so a concurrent reader never sees a partial file
	tmp, err := os.CreateTemp(o.cacheDir, "preview-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	err = imaging.Encode(tmp, img, imaging.PNG)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), out)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("saving corrected image: %w", err)
	}

	o.log.Debug("preview corrected",
		zap.String("url", rawURL),
		zap.String("path", out),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return out, nil
}

// source is a located preview. Local files are read only on a cache miss.
type source struct {
	version string
	path    string
	data    []byte
}

func (s source) read() ([]byte, error) {
	if s.path == "" {
		return s.data, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading preview: %w", err)
	}
	return data, nil
}

func (o *Orienter) locate(rawURL string) (source, error) {
	path := rawURL
	if strings.Contains(rawURL, "://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return source{}, fmt.Errorf("parsing url: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			return o.fetch(rawURL)
		case "file":
			path = u.Path
		default:
			return source{}, fmt.Errorf("unsupported url scheme %q", u.Scheme)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return source{}, fmt.Errorf("reading preview: %w", err)
	}
	if !info.Mode().IsRegular() {
		return source{}, fmt.Errorf("reading preview: %s is not a regular file", path)
	}
	return source{
		version: fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()),
		path:    path,
	}, nil
}

func (o *Orienter) fetch(rawURL string) (source, error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return source{}, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return source{}, fmt.Errorf("fetching preview: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return source{}, fmt.Errorf("fetching preview: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return source{}, fmt.Errorf("fetching preview: %w", err)
	}

	version := resp.Header.Get("ETag")
	if version == "" {
		version = resp.Header.Get("Last-Modified")
	}
	if version == "" {
		sum := sha1.Sum(data)
		version = hex.EncodeToString(sum[:])
	}
	return source{version: version, data: data}, nil
}
