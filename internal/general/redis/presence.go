package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/vehicle"
	"fleet-track/internal/ports"

	goredis "github.com/redis/go-redis/v9"
)

// presenceTTL keeps keys from outliving a vehicle that stopped reporting.
// It is deliberately much longer than the heartbeat timeout so liveness is
// decided by the stored timestamp, not by key expiry.
const presenceTTL = 30 * time.Minute

// PresenceStore keeps the fast-changing per-vehicle state (last-known sample,
// heartbeat, intended status) in Redis. Postgres stays the durable record;
// the store only accelerates the read path.
type PresenceStore struct {
	rdb *goredis.Client
}

// NewPresenceStore constructs a PresenceStore bound to the given client.
func NewPresenceStore(rdb *goredis.Client) ports.PresenceStore {
	return &PresenceStore{rdb: rdb}
}

func keyLastKnown(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:last_known", vehicleID)
}

func keyHeartbeat(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:heartbeat", vehicleID)
}

func keyIntendedStatus(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:status", vehicleID)
}

// SetLastKnown stores the newest accepted sample for a vehicle.
func (store *PresenceStore) SetLastKnown(ctx context.Context, vehicleID string, sample geo.Sample) error {
	b, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return store.rdb.Set(ctx, keyLastKnown(vehicleID), b, presenceTTL).Err()
}

// GetLastKnown returns the cached last-known sample, or nil when absent.
func (store *PresenceStore) GetLastKnown(ctx context.Context, vehicleID string) (*geo.Sample, error) {
	raw, err := store.rdb.Get(ctx, keyLastKnown(vehicleID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var sample geo.Sample
	if err := json.Unmarshal([]byte(raw), &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// SetHeartbeat stores the latest heartbeat timestamp for a vehicle.
func (store *PresenceStore) SetHeartbeat(ctx context.Context, vehicleID string, atMillis int64) error {
	return store.rdb.Set(ctx, keyHeartbeat(vehicleID), atMillis, presenceTTL).Err()
}

// GetHeartbeat returns the cached heartbeat timestamp, or 0 when absent.
func (store *PresenceStore) GetHeartbeat(ctx context.Context, vehicleID string) (int64, error) {
	raw, err := store.rdb.Get(ctx, keyHeartbeat(vehicleID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

// SetIntendedStatus caches the stored intent used to derive presence.
func (store *PresenceStore) SetIntendedStatus(ctx context.Context, vehicleID string, status vehicle.IntendedStatus) error {
	return store.rdb.Set(ctx, keyIntendedStatus(vehicleID), status.String(), presenceTTL).Err()
}

// GetIntendedStatus returns the cached intent; absence maps to OFFLINE.
func (store *PresenceStore) GetIntendedStatus(ctx context.Context, vehicleID string) (vehicle.IntendedStatus, error) {
	raw, err := store.rdb.Get(ctx, keyIntendedStatus(vehicleID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return vehicle.IntendedOffline, nil
		}
		return "", err
	}
	return vehicle.ParseIntendedStatus(raw)
}
