// Package preview downloads card images and saves thumbnails of them.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// ErrNoImage is returned for cards without an image reference
var ErrNoImage = errors.New("card has no image")

// DefaultWidth is the thumbnail width; height follows the card ratio
const DefaultWidth = 244

type Downloader struct {
	logger *logrus.Logger
	client *http.Client
}

func NewDownloader(logger *logrus.Logger, client *http.Client) *Downloader {
	return &Downloader{logger: logger, client: client}
}

// Fetch downloads and decodes the image at url
func (d *Downloader) Fetch(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, ErrNoImage
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Thumbnail downloads url, scales it to width and saves it at dest. The
// output format follows the extension of dest.
func (d *Downloader) Thumbnail(ctx context.Context, url, dest string, width int) error {
	img, err := d.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if width <= 0 {
		width = DefaultWidth
	}

	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := imaging.Save(thumb, dest); err != nil {
		return fmt.Errorf("failed to save thumbnail: %w", err)
	}

	b := thumb.Bounds()
	d.logger.Infof("Saved %dx%d preview to %s", b.Dx(), b.Dy(), dest)
	return nil
}
