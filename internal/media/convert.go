// Package media normalizes binary image assets into web-displayable JPEG
// artifacts under the data directory.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	// Registered decoders for the source formats seen upstream.
	_ "image/gif"
	_ "image/png"
	_ "golang.org/x/image/tiff"
)

// maxWidth is the bound applied to converted images.
const maxWidth = 500

// Converter turns a remote media asset into a local, displayable artifact
// and returns the rewritten URL for its descriptor.
type Converter interface {
	Convert(ctx context.Context, name, sourceURL string) (string, error)
}

// Downloader fetches raw bytes from a URL.
type Downloader interface {
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// JPEGConverter downloads a non-displayable image, re-encodes it as JPEG
// bounded to maxWidth, and writes it into the data directory. Converted
// artifacts are also kept in the cache directory so reruns skip the
// download entirely.
type JPEGConverter struct {
	downloader Downloader
	dataDir    string
	cacheDir   string
	useCache   bool
	logger     *zap.Logger
}

// NewJPEGConverter creates a converter writing artifacts under dataDir.
func NewJPEGConverter(downloader Downloader, dataDir, cacheDir string, useCache bool, logger *zap.Logger) *JPEGConverter {
	return &JPEGConverter{
		downloader: downloader,
		dataDir:    dataDir,
		cacheDir:   cacheDir,
		useCache:   useCache,
		logger:     logger,
	}
}

// Convert normalizes the named asset and returns the local descriptor URL.
func (c *JPEGConverter) Convert(ctx context.Context, name, sourceURL string) (string, error) {
	destination := filepath.Join(c.dataDir, name+".jpg")
	cacheFile := filepath.Join(c.cacheDir, name+".jpg")
	localURL := "/data/" + name + ".jpg"

	if c.useCache {
		if data, err := os.ReadFile(cacheFile); err == nil {
			if err := os.WriteFile(destination, data, 0o644); err != nil {
				return "", fmt.Errorf("copy cached image: %w", err)
			}
			return localURL, nil
		}
	}

	data, err := c.downloader.Download(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	converted, err := reencode(data)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", name, err)
	}

	if err := os.WriteFile(destination, converted, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	c.logger.Info("converted image", zap.String("source", sourceURL), zap.String("url", localURL))

	if c.useCache {
		if err := os.WriteFile(cacheFile, converted, 0o644); err != nil {
			c.logger.Error("image cache write failed", zap.String("name", name), zap.Error(err))
		}
	}
	return localURL, nil
}

// reencode decodes the source image, scales it down to maxWidth if wider,
// and encodes it as JPEG.
func reencode(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > maxWidth {
		height := bounds.Dy() * maxWidth / bounds.Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
