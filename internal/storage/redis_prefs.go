package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-companion/internal/models"
)

const (
	profileKey = "companion:profile"
	roleKey    = "companion:role"
)

// RedisPrefs implements PreferenceStore on Redis.
type RedisPrefs struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisPrefs(addr, password string) *RedisPrefs {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisPrefs{client: c, ctx: context.Background()}
}

func (r *RedisPrefs) LoadProfile(ctx context.Context) (models.PassengerProfile, bool, error) {
	raw, err := r.client.Get(ctx, profileKey).Result()
	if err == redis.Nil {
		return models.PassengerProfile{}, false, nil
	}
	if err != nil {
		return models.PassengerProfile{}, false, fmt.Errorf("load profile: %w", err)
	}
	var p models.PassengerProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// corrupt value: treat as absent so callers fall back to defaults
		return models.PassengerProfile{}, false, nil
	}
	return p, true, nil
}

func (r *RedisPrefs) SaveProfile(profile models.PassengerProfile) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, profileKey, b, 0).Err()
}

func (r *RedisPrefs) LoadRole(ctx context.Context) (models.Role, bool, error) {
	raw, err := r.client.Get(ctx, roleKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load role: %w", err)
	}
	role, err := models.ParseRole(raw)
	if err != nil {
		return "", false, nil
	}
	return role, true, nil
}

func (r *RedisPrefs) SaveRole(role models.Role) error {
	return r.client.Set(r.ctx, roleKey, string(role), 0).Err()
}

// Ping verifies connectivity for readiness checks.
func (r *RedisPrefs) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
