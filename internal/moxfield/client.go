// Package moxfield uploads collection import files to Moxfield.
package moxfield

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Granipouss/mtg-collection-pipe/internal/auth"
	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrRequest wraps every failed API call
var ErrRequest = errors.New("moxfield request failed")

// ImportDefaults are applied by Moxfield to any column the file leaves empty
var ImportDefaults = url.Values{
	"game":                  {"paper"},
	"defaultCondition":      {"nearMint"},
	"defaultCardLanguageId": {"LD58x"},
	"defaultQuantity":       {"1"},
	"playStay":              {"paperDollars"},
	"format":                {"moxfield"},
}

// Client uploads files to the Moxfield collection API
type Client struct {
	logger  *logrus.Logger
	client  *http.Client
	baseURL string
}

func NewClient(logger *logrus.Logger, client *http.Client, baseURL string) *Client {
	return &Client{
		logger:  logger,
		client:  client,
		baseURL: baseURL,
	}
}

// ImportFile uploads a Moxfield CSV into the account collection
func (c *Client) ImportFile(ctx context.Context, token auth.Token, path string) (*models.ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	endpoint := c.baseURL + "/v1/collections/import-file?" + ImportDefaults.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+string(token))

	c.logger.Debugf("POST %s (%d bytes)", endpoint, body.Len())
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrRequest, resp.StatusCode, truncate(raw, 512))
	}

	result := &models.ImportResult{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			// the body shape is undocumented; a 2xx is enough
			c.logger.Warnf("Unreadable import response: %v", err)
		}
	}
	c.logger.Infof("Uploaded %s (imported=%d failed=%d)", filepath.Base(path), result.TotalImported, result.TotalFailed)
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
