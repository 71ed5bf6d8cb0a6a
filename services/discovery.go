package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/internal/rpc"
)

/**
 * Resolved service URL with an explicit expiry
 * @description
 * - Resolve asks the registry at /discovery/services/{name} and takes the first instance
 * - When discovery fails or returns nothing the fallback URL is used, and cached as well
 * - Entries expire after ttl; Invalidate forces the next Resolve to ask again
 */
type DiscoveryCache struct {
	client   rpc.HTTPClient
	service  string
	fallback string
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	url       string
	expiresAt time.Time
}

func NewDiscoveryCache(client rpc.HTTPClient, service, fallback string, ttl time.Duration) *DiscoveryCache {
	return &DiscoveryCache{
		client:   client,
		service:  service,
		fallback: fallback,
		ttl:      ttl,
		now:      time.Now,
	}
}

/**
 * Resolve the service base URL
 * @param {context.Context} ctx - Request context
 * @returns {string} Cached, discovered or fallback URL
 * @returns {bool} true when the URL came from the registry (now or when cached)
 */
func (d *DiscoveryCache) Resolve(ctx context.Context) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.url != "" && d.now().Before(d.expiresAt) {
		return d.url, d.url != d.fallback
	}

	u, err := d.discover(ctx)
	if err != nil {
		logger.Warnf("Service discovery for %s failed: %v, using %s", d.service, err, d.fallback)
		u = d.fallback
	} else {
		logger.Infof("Discovered %s at %s", d.service, u)
	}
	d.url = u
	d.expiresAt = d.now().Add(d.ttl)
	return u, u != d.fallback
}

// Invalidate 清除缓存
func (d *DiscoveryCache) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = ""
	d.expiresAt = time.Time{}
}

func (d *DiscoveryCache) discover(ctx context.Context) (string, error) {
	resp, err := d.client.Get(ctx, "/discovery/services/"+url.PathEscape(d.service), nil)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	var instances []models.DiscoveredInstance
	if err := resp.DecodeJSON(&instances); err != nil {
		return "", err
	}
	if len(instances) == 0 || instances[0].Host == "" {
		return "", fmt.Errorf("no instances of %s", d.service)
	}
	inst := instances[0]
	scheme := inst.Scheme
	if scheme == "" {
		scheme = "http"
	}
	if inst.Port == 0 {
		return fmt.Sprintf("%s://%s", scheme, inst.Host), nil
	}
	return fmt.Sprintf("%s://%s:%d", scheme, inst.Host, inst.Port), nil
}
