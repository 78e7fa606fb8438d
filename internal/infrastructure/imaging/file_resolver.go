// Package imaging resolves artifact image references to pixel data.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/plumbline-dev/plumbline/internal/application/ports"
	"github.com/plumbline-dev/plumbline/internal/domain/similarity"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// DefaultMaxBytes bounds a single image file.
	DefaultMaxBytes = 32 << 20
	// DefaultCacheSize is the number of resolved samples kept in memory.
	DefaultCacheSize = 64
)

// Ensure interface compliance
var _ ports.ImageResolver = (*FileResolver)(nil)

// FileResolver resolves file paths, file:// URIs and base64 data URIs.
// Relative paths resolve against Root. Undecodable files still yield their
// raw bytes so callers can fall back to byte-level comparison.
type FileResolver struct {
	root     string
	maxBytes int64
	cache    *lru.Cache[string, similarity.Sample]
	logger   *slog.Logger
}

// Options configures a FileResolver.
type Options struct {
	Root      string
	MaxBytes  int64
	CacheSize int
	Logger    *slog.Logger
}

// NewFileResolver creates a resolver. Zero options take the defaults.
func NewFileResolver(opts Options) (*FileResolver, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cache, err := lru.New[string, similarity.Sample](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	return &FileResolver{
		root:     opts.Root,
		maxBytes: opts.MaxBytes,
		cache:    cache,
		logger:   opts.Logger,
	}, nil
}

// Resolve returns the decoded image and raw bytes for ref.
func (r *FileResolver) Resolve(ctx context.Context, ref string) (similarity.Sample, error) {
	if err := ctx.Err(); err != nil {
		return similarity.Sample{}, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return similarity.Sample{}, fmt.Errorf("empty reference: %w", ports.ErrImageUnavailable)
	}
	if sample, ok := r.cache.Get(ref); ok {
		return sample, nil
	}

	var data []byte
	var err error
	if strings.HasPrefix(ref, "data:") {
		data, err = decodeDataURI(ref)
	} else {
		data, err = r.readFile(ref)
	}
	if err != nil {
		return similarity.Sample{}, err
	}

	sample := similarity.Sample{Bytes: data}
	img, format, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		r.logger.Debug("image not decodable, using raw bytes", "ref", ref, "error", decodeErr)
	} else {
		sample.Image = img
		r.logger.Debug("resolved image", "ref", ref, "format", format, "bounds", img.Bounds().String())
	}

	r.cache.Add(ref, sample)
	return sample, nil
}

// Exists reports whether ref points at a readable regular file or a
// well-formed data URI.
func (r *FileResolver) Exists(_ context.Context, ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "data:") {
		_, err := decodeDataURI(ref)
		return err == nil
	}
	path, ok := r.localPath(ref)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *FileResolver) readFile(ref string) ([]byte, error) {
	path, ok := r.localPath(ref)
	if !ok {
		return nil, fmt.Errorf("unsupported reference %q: %w", ref, ports.ErrImageUnavailable)
	}

	//nolint:gosec // G304: image paths come from the operator's artifact documents
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ports.ErrImageUnavailable)
	}
	defer func() {
		_ = file.Close() // Best-effort cleanup
	}()

	data, err := io.ReadAll(io.LimitReader(file, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, r.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", path, ports.ErrImageUnavailable)
	}
	return data, nil
}

// localPath maps ref to a filesystem path. Remote URLs are not fetched.
func (r *FileResolver) localPath(ref string) (string, bool) {
	if after, ok := strings.CutPrefix(ref, "file://"); ok {
		return filepath.FromSlash(after), true
	}
	if strings.Contains(ref, "://") {
		return "", false
	}
	if filepath.IsAbs(ref) || r.root == "" {
		return ref, true
	}
	return filepath.Join(r.root, ref), true
}

// decodeDataURI decodes data:[<mediatype>];base64,<payload>.
func decodeDataURI(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data URI must be base64 encoded: %w", ports.ErrImageUnavailable)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URI payload: %v: %w", err, ports.ErrImageUnavailable)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data URI: %w", ports.ErrImageUnavailable)
	}
	return data, nil
}
