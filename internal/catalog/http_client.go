package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// HTTPDoer describes the HTTP client used by the catalog service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient talks to the CDN's library REST API.
type HTTPClient struct {
	baseURL   string
	accessKey string
	client    HTTPDoer
	logger    *slog.Logger
}

// NewHTTPClient builds a catalog client from configuration.
func NewHTTPClient(cfg *config.Config, logger *slog.Logger) *HTTPClient {
	timeout := time.Duration(cfg.Catalog.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.Catalog.BaseURL), "/"),
		accessKey: strings.TrimSpace(cfg.Catalog.AccessKey),
		client:    &http.Client{Timeout: timeout},
		logger:    logging.NewComponentLogger(logger, "catalog"),
	}
}

type libraryPayload struct {
	Items []struct {
		ID   json.Number `json:"Id"`
		Name string      `json:"Name"`
	} `json:"Items"`
	TotalItems int `json:"TotalItems"`
}

type collectionPayload struct {
	Items []struct {
		GUID string `json:"guid"`
		Name string `json:"name"`
	} `json:"items"`
	TotalItems int `json:"totalItems"`
}

func (c *HTTPClient) ListLibraries(ctx context.Context) ([]Library, error) {
	var all []Library
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/videolibrary?page=%d&perPage=100", c.baseURL, page)
		var payload libraryPayload
		if err := c.get(ctx, url, &payload); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "catalog", "list-libraries", "fetch library page", err)
		}
		for _, item := range payload.Items {
			all = append(all, Library{ID: item.ID.String(), Name: item.Name})
		}
		if len(all) >= payload.TotalItems || len(payload.Items) == 0 {
			break
		}
	}
	c.logger.Debug("libraries listed", slog.Int("count", len(all)))
	return all, nil
}

func (c *HTTPClient) ListCollections(ctx context.Context, libraryID string) ([]Collection, error) {
	var all []Collection
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/library/%s/collections?page=%d&itemsPerPage=100", c.baseURL, libraryID, page)
		var payload collectionPayload
		if err := c.get(ctx, url, &payload); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "catalog", "list-collections", "fetch collection page", err)
		}
		for _, item := range payload.Items {
			all = append(all, Collection{ID: item.GUID, Name: item.Name})
		}
		if len(all) >= payload.TotalItems || len(payload.Items) == 0 {
			break
		}
	}
	return all, nil
}

func (c *HTTPClient) EnsureCollection(ctx context.Context, libraryID, name string) (Collection, error) {
	existing, err := c.ListCollections(ctx, libraryID)
	if err != nil {
		return Collection{}, err
	}
	for _, col := range existing {
		if strings.EqualFold(col.Name, name) {
			return col, nil
		}
	}

	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return Collection{}, services.Wrap(services.ErrValidation, "catalog", "ensure-collection", "encode request", err)
	}
	url := fmt.Sprintf("%s/library/%s/collections", c.baseURL, libraryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Collection{}, services.Wrap(services.ErrValidation, "catalog", "ensure-collection", "build request", err)
	}
	req.Header.Set("AccessKey", c.accessKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Collection{}, services.Wrap(services.ErrTransient, "catalog", "ensure-collection", "create collection", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Collection{}, services.Wrap(services.ErrExternalTool, "catalog", "ensure-collection",
			fmt.Sprintf("create collection returned %d", resp.StatusCode), nil)
	}

	var created struct {
		GUID string `json:"guid"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Collection{}, services.Wrap(services.ErrExternalTool, "catalog", "ensure-collection", "decode response", err)
	}

	c.logger.Info("collection created",
		logging.String(logging.FieldLibrary, libraryID),
		slog.String("collection", created.Name))
	return Collection{ID: created.GUID, Name: created.Name}, nil
}

func (c *HTTPClient) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("AccessKey", c.accessKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
