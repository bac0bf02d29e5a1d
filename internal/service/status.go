package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"

	"github.com/CrazyWorldPL/IVshop/internal/metrics"
	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// StatusChecker asks an external service whether a Minecraft server is online.
type StatusChecker interface {
	Status(ctx context.Context, address string) (*models.ServerStatus, error)
}

// MCStatusClient queries an mcsrvstat.us compatible API.
type MCStatusClient struct {
	client *resty.Client
	cache  *cache.Cache // nil when caching is off
	logger *slog.Logger
}

type mcsrvstatResponse struct {
	Online  bool   `json:"online"`
	Version string `json:"version"`
	Players struct {
		Online int `json:"online"`
		Max    int `json:"max"`
	} `json:"players"`
}

// NewMCStatusClient creates a status client. Answers are cached per address
// for ttl; a ttl <= 0 disables caching.
func NewMCStatusClient(baseURL string, ttl time.Duration, logger *slog.Logger) *MCStatusClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "IVshop")

	c := &MCStatusClient{
		client: client,
		logger: logger,
	}
	// go-cache treats a zero ttl as "never expire".
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

// Status returns the server status for address (host or host:port)
func (c *MCStatusClient) Status(ctx context.Context, address string) (*models.ServerStatus, error) {
	if c.cache != nil {
		if cached, found := c.cache.Get(address); found {
			metrics.StatusCacheHits.Inc()
			return cached.(*models.ServerStatus), nil
		}
		metrics.StatusCacheMisses.Inc()
	}

	var res mcsrvstatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetResult(&res).
		Get("/{address}")
	if err != nil {
		return nil, fmt.Errorf("status api request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status api returned %d", resp.StatusCode())
	}

	status := &models.ServerStatus{
		Online:        res.Online,
		Version:       res.Version,
		PlayersOnline: res.Players.Online,
		PlayersMax:    res.Players.Max,
	}
	if c.cache != nil {
		c.cache.Set(address, status, cache.DefaultExpiration)
	}
	c.logger.DebugContext(ctx, "Fetched server status", "address", address, "online", status.Online)
	return status, nil
}
