package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	errx "github.com/allie-ai/allie-core/internal/core/error"
)

// ErrNotFound reports that no graph document exists for the family.
var ErrNotFound = errors.New("graph: not found")

// Store persists knowledge graph documents. One document holds a family's
// entire graph; writes replace the whole document, last write wins.
type Store interface {
	Load(ctx context.Context, familyID string) (*Graph, error)
	Save(ctx context.Context, g *Graph) error
}

// RedisStore keeps each family's graph as a JSON document in Redis.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func graphKey(familyID string) string {
	return fmt.Sprintf("kg:%s", familyID)
}

func (s *RedisStore) Load(ctx context.Context, familyID string) (*Graph, error) {
	raw, err := s.client.Get(ctx, graphKey(familyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, errx.WrapRedis(err)
	}

	var g Graph
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("graph: decode %s: %w", familyID, err)
	}
	if g.Entities == nil {
		g.Entities = map[string]*Entity{}
	}
	return &g, nil
}

func (s *RedisStore) Save(ctx context.Context, g *Graph) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("graph: encode %s: %w", g.FamilyID, err)
	}
	if err := s.client.Set(ctx, graphKey(g.FamilyID), raw, 0).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// MemoryStore is an in-process Store used in tests and demos.
type MemoryStore struct {
	graphs map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{graphs: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, familyID string) (*Graph, error) {
	raw, ok := s.graphs[familyID]
	if !ok {
		return nil, ErrNotFound
	}
	var g Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	if g.Entities == nil {
		g.Entities = map[string]*Entity{}
	}
	return &g, nil
}

func (s *MemoryStore) Save(_ context.Context, g *Graph) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	s.graphs[g.FamilyID] = raw
	return nil
}
