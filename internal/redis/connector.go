package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/naeap/journal/internal/logger"
)

// ConnectOptions defines the Redis client and its connection retry behavior.
type ConnectOptions struct {
	Addr           string        // Redis address (ex: "localhost:6379")
	User           string        // Optional username
	Password       string        // Optional password
	RedisDB        int           // Redis DB number
	DialTimeout    time.Duration // Redis dial timeout
	ReadTimeout    time.Duration // Redis read timeout
	WriteTimeout   time.Duration // Redis write timeout
	PoolSize       int           // Redis connection pool size
	ConnectTimeout time.Duration // Total time allowed for connection attempts (ex: 30s)
	RetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	MaxWait        time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt (ex: 2s)
	WarnThreshold  int           // warn after this many attempts
}

func (o ConnectOptions) validate() error {
	switch {
	case o.Addr == "":
		return fmt.Errorf("Addr must be set")
	case o.ConnectTimeout <= 0:
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", o.ConnectTimeout)
	case o.RetryInterval <= 0:
		return fmt.Errorf("RetryInterval must be > 0, got %v", o.RetryInterval)
	case o.MaxWait <= 0:
		return fmt.Errorf("MaxWait must be > 0, got %v", o.MaxWait)
	case o.PingTimeout <= 0:
		return fmt.Errorf("PingTimeout must be > 0, got %v", o.PingTimeout)
	case o.WarnThreshold < 0:
		return fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold)
	}
	return nil
}

// Connector owns the single Redis client of the process.
// The client is built and pinged on the first call to Client; later calls
// return the same handle (or the same error) without dialing again.
type Connector struct {
	opts ConnectOptions
	log  logger.Logger

	once   sync.Once
	client *redis.Client
	err    error
}

// NewConnector prepares a connector. Nothing is dialed until Client is called.
func NewConnector(opts ConnectOptions, log logger.Logger) *Connector {
	return &Connector{opts: opts, log: log}
}

// Client returns the shared client, connecting with exponential backoff on
// first use. It fails if Redis cannot be reached within ConnectTimeout.
func (c *Connector) Client(ctx context.Context) (*redis.Client, error) {
	c.once.Do(func() {
		c.client, c.err = c.connect(ctx)
	})
	return c.client, c.err
}

// Close releases the client if one was built.
func (c *Connector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Connector) connect(ctx context.Context) (*redis.Client, error) {
	if err := c.opts.validate(); err != nil {
		c.log.Error("invalid redis options", logger.Error(err))
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         c.opts.Addr,
		Username:     c.opts.User,
		Password:     c.opts.Password,
		DB:           c.opts.RedisDB,
		DialTimeout:  c.opts.DialTimeout,
		ReadTimeout:  c.opts.ReadTimeout,
		WriteTimeout: c.opts.WriteTimeout,
		PoolSize:     c.opts.PoolSize,
	})

	if err := c.pingWithRetry(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// pingWithRetry pings until success or ConnectTimeout, doubling the wait
// between attempts up to MaxWait.
func (c *Connector) pingWithRetry(parent context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(parent, c.opts.ConnectTimeout)
	defer cancel()

	addr := c.opts.Addr
	c.log.Info("connecting to redis",
		logger.String("addr", addr),
		logger.Duration("timeout", c.opts.ConnectTimeout))

	start := time.Now()
	wait := c.opts.RetryInterval

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, c.opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				c.log.Warn("connected to redis after retry",
					logger.String("addr", addr),
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				c.log.Info("connected to redis", logger.String("addr", addr))
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.log.Error("redis unavailable - failed to connect after timeout",
				logger.String("addr", addr),
				logger.Int("attempts", attempt),
				logger.Duration("timeout", c.opts.ConnectTimeout),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				addr, attempt, c.opts.ConnectTimeout, err)

		case <-timer.C:
			c.logRetry(attempt, timeLeft(ctx), wait, err)
			wait *= 2
			if wait > c.opts.MaxWait {
				wait = c.opts.MaxWait
			}
		}
	}
}

func (c *Connector) logRetry(attempt int, remaining, nextRetry time.Duration, err error) {
	fields := []zap.Field{
		logger.String("addr", c.opts.Addr),
		logger.Int("attempt", attempt),
		logger.Duration("next_retry_in", nextRetry),
		logger.Error(err),
	}
	switch {
	case remaining < 10*time.Second:
		c.log.Error("redis still down - retrying but timeout approaching",
			append(fields, logger.Duration("remaining", remaining))...)
	case attempt <= c.opts.WarnThreshold:
		c.log.Warn("redis connection failed, retrying", fields...)
	default:
		c.log.Error("redis still unavailable - connection attempts failing", fields...)
	}
}

// timeLeft returns the remaining time before context deadline.
func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
