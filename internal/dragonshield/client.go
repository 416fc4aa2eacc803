// Package dragonshield is a client for the DragonShield card manager portal API.
package dragonshield

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Granipouss/mtg-collection-pipe/internal/auth"
	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/sirupsen/logrus"
)

// PageSize is the number of cards requested per folder page
const PageSize = 100

var (
	// ErrRequest wraps every failed API call
	ErrRequest = errors.New("dragonshield request failed")
	// ErrFolderNotFound is returned when no folder has the requested name
	ErrFolderNotFound = errors.New("folder not found")
)

// APIError carries a non-2xx response
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client calls the DragonShield portal API with a bearer token
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

// ListFolders returns every portal folder of the account
func (c *Client) ListFolders(ctx context.Context, token auth.Token) ([]models.Folder, error) {
	var folders []models.Folder
	if err := c.get(ctx, token, "portalfolders", &folders); err != nil {
		return nil, err
	}
	c.logger.Debugf("Listed %d folders", len(folders))
	return folders, nil
}

// GetFolder returns a single folder
func (c *Client) GetFolder(ctx context.Context, token auth.Token, id string) (*models.Folder, error) {
	var folder models.Folder
	if err := c.get(ctx, token, "portalfolders/"+url.PathEscape(id), &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// GetFolderCards returns one page of a folder's cards, sorted by name.
// Pages are numbered from 1.
func (c *Client) GetFolderCards(ctx context.Context, token auth.Token, id string, page int) ([]models.FolderCard, error) {
	query := url.Values{}
	query.Set("pageSize", strconv.Itoa(PageSize))
	query.Set("pageNumber", strconv.Itoa(page))
	query.Set("orderBy", "nameAsc")
	query.Set("lang", "en")

	var cards []models.FolderCard
	path := "portalfolders/" + url.PathEscape(id) + "/cards?" + query.Encode()
	if err := c.get(ctx, token, path, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// AllFolderCards pages through a folder until a short page comes back
func (c *Client) AllFolderCards(ctx context.Context, token auth.Token, id string) ([]models.FolderCard, error) {
	var all []models.FolderCard
	for page := 1; ; page++ {
		cards, err := c.GetFolderCards(ctx, token, id, page)
		if err != nil {
			return nil, err
		}
		all = append(all, cards...)
		if len(cards) < PageSize {
			return all, nil
		}
	}
}

// CreateFolder creates an empty folder
func (c *Client) CreateFolder(ctx context.Context, token auth.Token, name string) error {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("failed to marshal folder: %w", err)
	}

	resp, err := c.do(ctx, token, http.MethodPost, "portalfolders?provider=tcgplayer", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.logger.Infof("Created folder %q", name)
	return nil
}

// DeleteFolder deletes a folder. The version must match the one last listed,
// which keeps a concurrently modified folder from being removed.
func (c *Client) DeleteFolder(ctx context.Context, token auth.Token, id string, version int64) error {
	path := fmt.Sprintf("portalfolders/%s/version/%d", url.PathEscape(id), version)
	resp, err := c.do(ctx, token, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.logger.Infof("Deleted folder %s (version %d)", id, version)
	return nil
}

// ExportFolder asks for a CSV export of a folder and downloads it to dest
func (c *Client) ExportFolder(ctx context.Context, token auth.Token, id, dest string) error {
	return c.export(ctx, token, "folders/"+url.PathEscape(id)+"/export", dest)
}

// ExportAll downloads a single CSV export of every folder of the account
func (c *Client) ExportAll(ctx context.Context, token auth.Token, dest string) error {
	return c.export(ctx, token, "folders/export", dest)
}

// FindFolder returns the first folder called name
func FindFolder(folders []models.Folder, name string) (models.Folder, error) {
	for _, f := range folders {
		if f.Name == name {
			return f, nil
		}
	}
	return models.Folder{}, fmt.Errorf("%w: no %q folder on DragonShield", ErrFolderNotFound, name)
}

func (c *Client) export(ctx context.Context, token auth.Token, path, dest string) error {
	var export struct {
		ExportURL string `json:"exportUrl"`
	}
	if err := c.get(ctx, token, path, &export); err != nil {
		return err
	}
	if export.ExportURL == "" {
		return fmt.Errorf("%w: %s returned no export url", ErrRequest, path)
	}
	return c.download(ctx, export.ExportURL, dest)
}

func (c *Client) get(ctx context.Context, token auth.Token, path string, out interface{}) error {
	resp, err := c.do(ctx, token, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	envelope := struct {
		Data interface{} `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: failed to unmarshal %s: %w", ErrRequest, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, token auth.Token, method, path string, body io.Reader) (*http.Response, error) {
	endpoint := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+string(token))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugf("%s %s", method, endpoint)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %w", ErrRequest, &APIError{
			Method: method,
			URL:    endpoint,
			Status: resp.StatusCode,
			Body:   string(msg),
		})
	}
	return resp, nil
}

// download fetches a pre-signed export url, which takes no Authorization header
func (c *Client) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: download export: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: download export: unexpected status code: %d", ErrRequest, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	n, err := io.Copy(file, resp.Body)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}

	c.logger.Debugf("Downloaded export (%d bytes) to %s", n, dest)
	return nil
}
