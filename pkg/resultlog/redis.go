// Package resultlog publishes run reports to Redis so that schedulers and
// dashboards can follow dbsync runs without parsing logs.
//
// Redis keys, with <name> from Config.Name:
//
//	SET  <name>:run:<id>          <JSON>  EX <ttl>   one key per run
//	SET  <name>:last:<operation>  <JSON>  EX <ttl>   latest run per operation
//	PUB  <name>:runs              <JSON>             event stream
package resultlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/dbsync/pkg/adapters"
	"github.com/ruslano69/dbsync/pkg/migration"
)

const (
	DefaultName = "dbsync"
	DefaultTTL  = 3600
)

// Config selects the result log backend. An empty Type disables it.
type Config struct {
	Type     string `yaml:"type"`     // redis
	Address  string `yaml:"address"`  // e.g. "127.0.0.1:6379"
	Name     string `yaml:"name"`     // key and channel prefix
	Password string `yaml:"password"` // optional
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl"` // seconds, default 3600
}

// Enabled reports whether a backend is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Type) != ""
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if !strings.EqualFold(c.Type, "redis") {
		return fmt.Errorf("%w: unsupported result_log type %q (supported: redis)", adapters.ErrConfiguration, c.Type)
	}
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: result_log address is required", adapters.ErrConfiguration)
	}
	if c.TTL < 0 {
		return fmt.Errorf("%w: result_log ttl must be >= 0", adapters.ErrConfiguration)
	}
	return nil
}

func (c Config) name() string {
	if c.Name == "" {
		return DefaultName
	}
	return c.Name
}

func (c Config) ttl() time.Duration {
	if c.TTL == 0 {
		return DefaultTTL * time.Second
	}
	return time.Duration(c.TTL) * time.Second
}

var _ migration.Reporter = (*RedisPublisher)(nil)

// RedisPublisher stores and announces run reports.
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher connects lazily; the first report opens the connection.
func NewRedisPublisher(config Config) (*RedisPublisher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisPublisher{client: client, config: config}, nil
}

// NewRedisPublisherWithClient uses an existing client. Close closes it.
func NewRedisPublisherWithClient(config Config, client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, config: config}
}

func (p *RedisPublisher) RunKey(id string) string {
	return p.config.name() + ":run:" + id
}

func (p *RedisPublisher) LastKey(operation string) string {
	return p.config.name() + ":last:" + operation
}

func (p *RedisPublisher) Channel() string {
	return p.config.name() + ":runs"
}

// ReportRun writes the report under its run key and the per-operation
// latest key in one transaction, then publishes it.
func (p *RedisPublisher) ReportRun(ctx context.Context, report migration.RunReport) error {
	if report.ID == "" {
		return errors.New("run report without id")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	ttl := p.config.ttl()
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.RunKey(report.ID), payload, ttl)
		pipe.Set(ctx, p.LastKey(report.Operation), payload, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Last returns the most recent report for operation. found is false when
// none is stored or it has expired.
func (p *RedisPublisher) Last(ctx context.Context, operation string) (report migration.RunReport, found bool, err error) {
	data, err := p.client.Get(ctx, p.LastKey(operation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return report, false, nil
	}
	if err != nil {
		return report, false, fmt.Errorf("redis GET failed: %w", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, false, fmt.Errorf("failed to decode run report: %w", err)
	}
	return report, true, nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
