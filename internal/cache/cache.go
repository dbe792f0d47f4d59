// Package cache publishes graph snapshot exports to Redis so other
// consumers can read the current graph without rebuilding it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/models"
)

// Redis keys.
const (
	SnapshotKey = "navgraph:snapshot"
	EpochKey    = "navgraph:snapshot:epoch"
)

const opTimeout = 5 * time.Second

// ErrMiss is returned by Fetch when no snapshot is cached.
var ErrMiss = errors.New("no cached snapshot")

// SnapshotCache stores the latest export under SnapshotKey and its epoch
// under EpochKey.
type SnapshotCache struct {
	client *redis.Client
	log    *logrus.Logger
	ttl    time.Duration
}

// New connects to the Redis instance at url (redis://[:password@]host:port/db).
// ttl zero means cached snapshots never expire.
func New(url string, ttl time.Duration, log *logrus.Logger) (*SnapshotCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	return &SnapshotCache{client: redis.NewClient(opts), log: log, ttl: ttl}, nil
}

// Ping checks connectivity.
func (c *SnapshotCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}

	return nil
}

// Publish writes export and its epoch in one MULTI/EXEC so readers never see
// a snapshot paired with another epoch.
func (c *SnapshotCache) Publish(ctx context.Context, export models.GraphExport) error {
	data, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, SnapshotKey, data, c.ttl)
		p.Set(ctx, EpochKey, strconv.FormatUint(export.Epoch, 10), c.ttl)

		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing snapshot: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"epoch": export.Epoch,
		"bytes": len(data),
	}).Debug("snapshot published to redis")

	return nil
}

// Fetch reads the cached export. It returns ErrMiss when nothing is cached.
func (c *SnapshotCache) Fetch(ctx context.Context) (*models.GraphExport, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}

	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}

	var export models.GraphExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("decoding cached snapshot: %w", err)
	}

	return &export, nil
}

// Epoch reads the cached epoch without fetching the snapshot body.
func (c *SnapshotCache) Epoch(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	v, err := c.client.Get(ctx, EpochKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrMiss
	}

	if err != nil {
		return 0, fmt.Errorf("fetching snapshot epoch: %w", err)
	}

	return v, nil
}

// Close releases the client.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
