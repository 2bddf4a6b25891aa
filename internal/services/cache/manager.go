package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/models"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/services/metrics"
	"github.com/serhatsoysal/ai-driven-multimodal-analytics/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	defaultConnectAttempts = 3
	defaultRetryDelay      = time.Second
	defaultDialTimeout     = 10 * time.Second
	pingTimeout            = 5 * time.Second
	reconnectTimeout       = time.Second
)

var errNotConnected = errors.New("cache manager is not connected")

// Options configures a Manager.
type Options struct {
	URL               string
	Enabled           bool
	DefaultTTL        time.Duration
	CompressThreshold int
	DialTimeout       time.Duration
	// ConnectAttempts bounds the PING retries performed by Connect.
	ConnectAttempts int
	RetryDelay      time.Duration
}

// Manager owns the Redis connection used for response caching.
//
// A Manager starts disconnected. Connect establishes the client, Disconnect
// releases it; both are idempotent. Operations on a disconnected manager fail
// with a cache_unavailable AppError, which callers treat as a miss.
type Manager struct {
	opts  Options
	codec *codec

	mu            sync.RWMutex
	client        *redis.Client
	wantConnected bool
	lastAttempt   time.Time
}

// NewManager creates a disconnected cache manager.
func NewManager(opts Options) *Manager {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = defaultConnectAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	c, err := newCodec(opts.CompressThreshold)
	if err != nil {
		fiberlog.Warnf("CacheManager: compression disabled: %v", err)
		c = &codec{}
	}

	return &Manager{opts: opts, codec: c}
}

// Enabled reports whether caching is switched on in configuration.
func (m *Manager) Enabled() bool {
	return m.opts.Enabled
}

// IsConnected reports whether a live client is held.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Connect parses the Redis URL, builds a tuned client and verifies it with
// PING. Calling Connect on a connected or disabled manager is a no-op. On
// failure no client is retained, and later operations retry the connection
// at most once per RetryDelay until Disconnect is called.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.opts.Enabled {
		fiberlog.Info("CacheManager: Redis disabled, skipping connect")
		return nil
	}

	m.mu.Lock()
	m.wantConnected = true
	m.lastAttempt = time.Now()
	connected := m.client != nil
	m.mu.Unlock()

	if connected {
		return nil
	}
	return m.dial(ctx, m.opts.ConnectAttempts)
}

func (m *Manager) dial(ctx context.Context, attempts int) error {
	opt, err := redis.ParseURL(m.opts.URL)
	if err != nil {
		return models.NewConnectionError("redis", fmt.Errorf("failed to parse Redis URL: %w", err))
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute
	opt.DialTimeout = m.opts.DialTimeout
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond

	fiberlog.Debugf("CacheManager: Redis client configuration: PoolSize=%d, MinIdle=%d, MaxRetries=%d",
		opt.PoolSize, opt.MinIdleConns, opt.MaxRetries)

	client := redis.NewClient(opt)
	if err := m.pingWithRetry(ctx, client, attempts); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			fiberlog.Errorf("CacheManager: Failed to close Redis client after connection failures: %v", closeErr)
		}
		return models.NewConnectionError("redis", err)
	}

	m.mu.Lock()
	install := m.client == nil && m.wantConnected
	if install {
		m.client = client
	}
	m.mu.Unlock()

	if !install {
		// Lost a race with another dial or with Disconnect.
		_ = client.Close()
	}
	return nil
}

// liveClient returns the connected client. When the manager is
// disconnected after a failed Connect it makes one throttled reconnect
// attempt before giving up.
func (m *Manager) liveClient(ctx context.Context) *redis.Client {
	if client := m.currentClient(); client != nil {
		return client
	}
	if !m.claimReconnect() {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, reconnectTimeout)
	defer cancel()
	if err := m.dial(dialCtx, 1); err != nil {
		fiberlog.Debugf("CacheManager: Reconnect failed: %v", err)
		return nil
	}
	fiberlog.Info("CacheManager: Reconnected to Redis")
	return m.currentClient()
}

func (m *Manager) claimReconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opts.Enabled || !m.wantConnected || m.client != nil {
		return false
	}
	if time.Since(m.lastAttempt) < m.opts.RetryDelay {
		return false
	}
	m.lastAttempt = time.Now()
	return true
}

func (m *Manager) pingWithRetry(ctx context.Context, client *redis.Client, maxAttempts int) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = client.Ping(pingCtx).Err()
		cancel()

		if lastErr == nil {
			fiberlog.Infof("CacheManager: Redis connection established successfully (attempt %d/%d)", attempt, maxAttempts)
			stats := client.PoolStats()
			fiberlog.Debugf("CacheManager: Redis pool initialized: Hits=%d, Misses=%d, Timeouts=%d, TotalConns=%d, IdleConns=%d",
				stats.Hits, stats.Misses, stats.Timeouts, stats.TotalConns, stats.IdleConns)
			return nil
		}

		fiberlog.Warnf("CacheManager: Redis connection failed (attempt %d/%d): %v", attempt, maxAttempts, lastErr)

		if attempt < maxAttempts {
			delay := time.Duration(attempt) * m.opts.RetryDelay
			fiberlog.Infof("CacheManager: Retrying Redis connection in %v...", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxAttempts, lastErr)
}

// Disconnect closes the client. It is safe to call when never connected
// and safe to call more than once.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.wantConnected = false
	m.mu.Unlock()

	if client == nil {
		return nil
	}

	if err := client.Close(); err != nil {
		fiberlog.Warnf("CacheManager: Error closing Redis client: %v", err)
		return err
	}
	fiberlog.Info("CacheManager: Redis connection closed")
	return nil
}

// Ping checks backend connectivity, used by /health.
func (m *Manager) Ping(ctx context.Context) error {
	client := m.liveClient(ctx)
	if client == nil {
		return models.NewCacheUnavailableError("ping", errNotConnected)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return models.NewCacheUnavailableError("ping", err)
	}
	return nil
}

// Set encodes value and stores it under key with the given TTL. A ttl <= 0
// uses the manager's default TTL. Existing entries are overwritten.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := m.checkKey(key); err != nil {
		return err
	}
	if !m.opts.Enabled {
		return nil
	}

	client := m.liveClient(ctx)
	if client == nil {
		metrics.RecordCacheOperation("set", "error")
		return models.NewCacheUnavailableError("set", errNotConnected)
	}

	payload, err := m.codec.encode(value)
	if err != nil {
		metrics.RecordCacheOperation("set", "error")
		return models.NewCacheUnavailableError("set", err)
	}

	if ttl <= 0 {
		ttl = m.opts.DefaultTTL
	}

	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		metrics.RecordCacheOperation("set", "error")
		return models.NewCacheUnavailableError("set", err)
	}

	metrics.RecordCacheOperation("set", "stored")
	fiberlog.Debugf("[%s] CacheManager: Stored %s (%d bytes, ttl=%v)", utils.RequestIDFromContext(ctx), key, len(payload), ttl)
	return nil
}

// GetRaw returns the decoded JSON stored under key. A missing or expired
// key yields (nil, false, nil).
func (m *Manager) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.checkKey(key); err != nil {
		return nil, false, err
	}
	if !m.opts.Enabled {
		return nil, false, nil
	}

	client := m.liveClient(ctx)
	if client == nil {
		metrics.RecordCacheOperation("get", "error")
		return nil, false, models.NewCacheUnavailableError("get", errNotConnected)
	}

	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheOperation("get", "miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCacheOperation("get", "error")
		return nil, false, models.NewCacheUnavailableError("get", err)
	}

	body, err := m.codec.decode(raw)
	if err != nil {
		metrics.RecordCacheOperation("get", "error")
		return nil, false, models.NewCacheUnavailableError("get", err)
	}

	metrics.RecordCacheOperation("get", "hit")
	return body, true, nil
}

// Get decodes the value stored under key into dest. It reports false
// without error when the key is absent or expired.
func (m *Manager) Get(ctx context.Context, key string, dest any) (bool, error) {
	body, found, err := m.GetRaw(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := unmarshal(body, dest); err != nil {
		return false, models.NewCacheUnavailableError("get", fmt.Errorf("failed to decode cached value: %w", err))
	}
	return true, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.checkKey(key); err != nil {
		return err
	}
	if !m.opts.Enabled {
		return nil
	}

	client := m.liveClient(ctx)
	if client == nil {
		metrics.RecordCacheOperation("delete", "error")
		return models.NewCacheUnavailableError("delete", errNotConnected)
	}

	if err := client.Del(ctx, key).Err(); err != nil {
		metrics.RecordCacheOperation("delete", "error")
		return models.NewCacheUnavailableError("delete", err)
	}

	metrics.RecordCacheOperation("delete", "deleted")
	return nil
}

func (m *Manager) currentClient() *redis.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Manager) checkKey(key string) error {
	if err := ValidateKey(key); err != nil {
		return models.NewValidationError("invalid cache key", []models.FieldError{{Field: "key", Reason: err.Error()}}, err)
	}
	return nil
}
