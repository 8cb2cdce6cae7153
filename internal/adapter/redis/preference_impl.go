package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/user/ghibli-blocker/internal/entity"
)

const preferencesKey = "ghibli:preferences"

// PreferenceRepoImpl stores preferences in a Redis hash.
type PreferenceRepoImpl struct {
	client *redis.Client
}

// NewPreferenceRepo creates a new instance of PreferenceRepoImpl.
func NewPreferenceRepo(client *redis.Client) *PreferenceRepoImpl {
	return &PreferenceRepoImpl{client: client}
}

// Load reads the preference hash. Missing fields take their defaults.
func (r *PreferenceRepoImpl) Load(ctx context.Context) (entity.Preferences, error) {
	values, err := r.client.HGetAll(ctx, preferencesKey).Result()
	if err != nil {
		return entity.Preferences{}, err
	}
	return entity.DecodePreferences(values), nil
}

func (r *PreferenceRepoImpl) SetEnabled(ctx context.Context, enabled bool) error {
	return r.client.HSet(ctx, preferencesKey, entity.KeyEnabled, strconv.FormatBool(enabled)).Err()
}

func (r *PreferenceRepoImpl) SetMode(ctx context.Context, mode entity.Mode) error {
	return r.client.HSet(ctx, preferencesKey, entity.KeyMode, string(mode)).Err()
}

// IncrementBlocked uses HINCRBY, which is atomic across agents.
func (r *PreferenceRepoImpl) IncrementBlocked(ctx context.Context) (uint64, error) {
	n, err := r.client.HIncrBy(ctx, preferencesKey, entity.KeyBlockedCount, 1).Result()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}
