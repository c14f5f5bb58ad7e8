package kinopoisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"kinolog/internal/config"
	"kinolog/internal/models"
)

const (
	defaultBaseURL  = "https://api.kinopoisk.dev/v1.4"
	searchLimit     = 10
	imagesPageLimit = 50
)

// listResponse is the docs/pages pagination envelope of the list endpoints.
type listResponse[T any] struct {
	Docs  []T `json:"docs"`
	Pages int `json:"pages"`
}

// Client wraps direct Kinopoisk API HTTP calls. Responses are memoized for
// the duration of a run so the merger and the refresher do not repeat
// identical lookups.
type Client struct {
	baseURL    string
	apiKey     string
	retryDelay time.Duration
	httpClient *http.Client
	cache      *gocache.Cache
	logger     *logrus.Logger
}

// NewClient creates a new Kinopoisk client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("kinopoisk API key is required")
	}

	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     cfg.APIKey,
		retryDelay: time.Duration(cfg.RequestDelaySeconds) * time.Second,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		},
		cache:  gocache.New(15*time.Minute, 30*time.Minute),
		logger: logger,
	}, nil
}

// Search returns candidate entries for a title, in the order the catalog
// ranks them. An empty slice means zero results, which is not an error.
func (c *Client) Search(ctx context.Context, title string) ([]models.CatalogEntry, error) {
	cacheKey := "search:" + strings.ToLower(title)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.CatalogEntry), nil
	}

	params := url.Values{}
	params.Set("query", title)
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("page", "1")

	var response listResponse[models.CatalogEntry]
	if err := c.doRequest(ctx, "/movie/search", params, &response); err != nil {
		return nil, fmt.Errorf("search for %q failed: %w", title, err)
	}

	c.logger.WithFields(logrus.Fields{
		"title": title,
		"count": len(response.Docs),
	}).Debug("Kinopoisk search completed")

	c.cache.Set(cacheKey, response.Docs, gocache.DefaultExpiration)
	return response.Docs, nil
}

// GetByID fetches the full catalog record for an id.
func (c *Client) GetByID(ctx context.Context, id int) (*models.CatalogEntry, error) {
	cacheKey := "movie:" + strconv.Itoa(id)
	if cached, ok := c.cache.Get(cacheKey); ok {
		entry := cached.(models.CatalogEntry)
		return &entry, nil
	}

	var entry models.CatalogEntry
	if err := c.doRequest(ctx, "/movie/"+strconv.Itoa(id), nil, &entry); err != nil {
		return nil, fmt.Errorf("fetch of id %d failed: %w", id, err)
	}

	c.cache.Set(cacheKey, entry, gocache.DefaultExpiration)
	return &entry, nil
}

// GetImages fetches all still images for an id, flattening the paginated
// response. A page failure past the first returns whatever was gathered;
// only a quota rejection propagates, because it must halt the whole run.
func (c *Client) GetImages(ctx context.Context, id int) ([]models.ImageDoc, error) {
	var all []models.ImageDoc

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("movieId", strconv.Itoa(id))
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(imagesPageLimit))
		params.Set("type", "still")

		var response listResponse[models.ImageDoc]
		if err := c.doRequest(ctx, "/image", params, &response); err != nil {
			if IsQuotaExceeded(err) || page == 1 {
				return all, fmt.Errorf("image fetch for id %d failed: %w", id, err)
			}
			c.logger.WithError(err).WithFields(logrus.Fields{
				"id":   id,
				"page": page,
			}).Error("Image page fetch failed, keeping earlier pages")
			return all, nil
		}

		all = append(all, response.Docs...)

		if page >= response.Pages {
			break
		}
	}

	return all, nil
}

// doRequest performs an authenticated GET against the catalog API. Transport
// failures are retried on a fixed, non-adaptive delay; HTTP-level failures
// are not retried.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	c.logger.WithField("url", fullURL).Debug("Making Kinopoisk API request")

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("X-API-KEY", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			body, _ := io.ReadAll(resp.Body)
			c.logger.WithFields(logrus.Fields{
				"status_code": resp.StatusCode,
				"body":        string(body),
			}).Error("Kinopoisk API rejected the key")
			return backoff.Permanent(fmt.Errorf("status %d: %s: %w", resp.StatusCode, string(body), ErrQuotaExceeded))
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(&APIError{StatusCode: resp.StatusCode, Body: string(body)})
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), 2), ctx)
	return backoff.Retry(operation, policy)
}

// PageURL returns the human-facing catalog page for an id, used when asking
// the user to confirm a candidate.
func PageURL(id int) string {
	return fmt.Sprintf("https://www.kinopoisk.ru/film/%d/", id)
}
