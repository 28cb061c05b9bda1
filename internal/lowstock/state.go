package lowstock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryStateStore keeps observations in process memory. Suitable for tests
// and single-instance deployments.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStateStore constructs an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]State)}
}

func stateKey(restaurantID, stockID string) string {
	return restaurantID + ":" + stockID
}

// Last returns the previous observation for the ingredient.
func (s *MemoryStateStore) Last(ctx context.Context, restaurantID, stockID string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[stateKey(restaurantID, stockID)]
	return state, ok, nil
}

// Put records an observation.
func (s *MemoryStateStore) Put(ctx context.Context, restaurantID, stockID string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(restaurantID, stockID)] = state
	return nil
}

// RedisStateStore persists observations in a redis hash per restaurant so
// sweeps survive process restarts and can run from any instance.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore constructs the store.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func redisKey(restaurantID string) string {
	return fmt.Sprintf("lowstock:%s", restaurantID)
}

// Last returns the previous observation for the ingredient.
func (s *RedisStateStore) Last(ctx context.Context, restaurantID, stockID string) (State, bool, error) {
	raw, err := s.client.HGet(ctx, redisKey(restaurantID), stockID).Result()
	if err != nil {
		if err == redis.Nil {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

// Put records an observation.
func (s *RedisStateStore) Put(ctx context.Context, restaurantID, stockID string, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, redisKey(restaurantID), stockID, raw).Err()
}
