package oracle

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/sirupsen/logrus"
)

// Fetcher talks to the Scryfall bulk data API
type Fetcher struct {
	logger   *logrus.Logger
	client   *http.Client
	indexURL string
}

func NewFetcher(logger *logrus.Logger, client *http.Client, indexURL string) *Fetcher {
	return &Fetcher{
		logger:   logger,
		client:   client,
		indexURL: indexURL,
	}
}

// FetchBulkIndex fetches the list of downloadable bulk datasets
func (f *Fetcher) FetchBulkIndex(ctx context.Context) ([]models.BulkDataset, error) {
	f.logger.Debugf("Fetching bulk data index from %s", f.indexURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bulk index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var index struct {
		Data []models.BulkDataset `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bulk index: %w", err)
	}

	f.logger.Debugf("Bulk index lists %d datasets", len(index.Data))
	return index.Data, nil
}

// FindDataset returns the first dataset of the given type
func FindDataset(datasets []models.BulkDataset, datasetType string) (models.BulkDataset, error) {
	for _, d := range datasets {
		if d.Type == datasetType {
			return d, nil
		}
	}
	return models.BulkDataset{}, fmt.Errorf("no %q dataset in bulk index", datasetType)
}

// Download streams url into dest. The body goes to a temporary file next to
// dest first so an interrupted download never replaces a good snapshot.
func (f *Fetcher) Download(ctx context.Context, url, dest string) error {
	f.logger.Infof("Downloading %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if strings.HasSuffix(url, ".gz") {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		body = gzReader
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	f.logger.Infof("Downloaded %d bytes to %s", n, dest)
	return nil
}
