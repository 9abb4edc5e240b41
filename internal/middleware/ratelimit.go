package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"poetportal/internal/models"
	"poetportal/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// maxLocalKeys bounds the in-process fallback table.
const maxLocalKeys = 10000

var errNoRedis = errors.New("redis client is nil")

// CheckRateLimit counts one hit for id on resource in Redis and reports
// whether the hit is within limit for the current window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, errNoRedis
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// Limiter enforces limit hits per window for each caller. Counters live in
// Redis so every instance shares them; while Redis is missing or failing a
// token bucket per caller takes over in process.
type Limiter struct {
	rdb      *redis.Client
	resource string
	limit    int
	window   time.Duration

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func NewLimiter(rdb *redis.Client, resource string, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	return &Limiter{
		rdb:      rdb,
		resource: resource,
		limit:    limit,
		window:   window,
		local:    make(map[string]*rate.Limiter),
	}
}

// Allow records a hit for id.
func (l *Limiter) Allow(ctx context.Context, id string) bool {
	allowed, err := CheckRateLimit(ctx, l.rdb, l.resource, id, l.limit, l.window)
	if err == nil {
		return allowed
	}
	if !errors.Is(err, errNoRedis) {
		observability.Ctx(ctx).Warn().Err(err).Str("resource", l.resource).Msg("rate limit store unavailable, using local limiter")
	}
	return l.localLimiter(id).Allow()
}

func (l *Limiter) localLimiter(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.local[id]; ok {
		return lim
	}
	if len(l.local) >= maxLocalKeys {
		l.local = make(map[string]*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
	l.local[id] = lim
	return lim
}

// Handler keys callers by authenticated user id, or by IP for anonymous
// requests, and answers 429 once a caller is over the limit.
func (l *Limiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id string
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = fmt.Sprintf("user:%d", uid)
		} else {
			id = "ip:" + c.IP()
		}

		if !l.Allow(c.UserContext(), id) {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}

// RateLimit returns a fiber middleware enforcing limit requests per window
// on resource.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, resource string) fiber.Handler {
	return NewLimiter(rdb, resource, limit, window).Handler()
}
