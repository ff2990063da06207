package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/tracker/internal/cachestore"
	"github.com/redis/go-redis/v9"
)

// CreateGeneration registers a generation name
func (s *Store) CreateGeneration(ctx context.Context, name string) error {
	if err := s.client.SAdd(ctx, AllGenerationsKey(), name).Err(); err != nil {
		return fmt.Errorf("failed to create generation %s: %w", name, err)
	}
	return nil
}

// Generations lists every generation name, sorted
func (s *Store) Generations(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, AllGenerationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// HasGeneration reports whether the generation is registered
func (s *Store) HasGeneration(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, AllGenerationsKey(), name).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check generation %s: %w", name, err)
	}
	return ok, nil
}

// DeleteGeneration removes a generation and all of its entries
func (s *Store) DeleteGeneration(ctx context.Context, name string) (bool, error) {
	pipe := s.client.TxPipeline()
	removed := pipe.SRem(ctx, AllGenerationsKey(), name)
	pipe.Del(ctx, GenerationKey(name))

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete generation %s: %w", name, err)
	}
	return removed.Val() > 0, nil
}

// GetEntry retrieves a stored response, nil on a miss
func (s *Store) GetEntry(ctx context.Context, generation, key string) (*cachestore.Entry, error) {
	data, err := s.client.HGet(ctx, GenerationKey(generation), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	var entry cachestore.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// PutEntries stores entries in one MULTI/EXEC so a batch lands whole or not at all
func (s *Store) PutEntries(ctx context.Context, generation string, entries []*cachestore.Entry) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, AllGenerationsKey(), generation)

	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry %s: %w", entry.URL, err)
		}
		pipe.HSet(ctx, GenerationKey(generation), entry.URL, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save entries: %w", err)
	}
	return nil
}

// EntryKeys lists the URLs stored in a generation, sorted
func (s *Store) EntryKeys(ctx context.Context, generation string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, GenerationKey(generation)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// StrayGenerations finds generation hashes no longer registered in the set,
// left behind by a crash between SREM and DEL
func (s *Store) StrayGenerations(ctx context.Context) ([]string, error) {
	registered, err := s.client.SMembers(ctx, AllGenerationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	known := make(map[string]bool, len(registered))
	for _, name := range registered {
		known[name] = true
	}

	var stray []string
	iter := s.client.Scan(ctx, 0, KeyPrefixGeneration+"*", 0).Iterator()
	for iter.Next(ctx) {
		name, err := ExtractGeneration(iter.Val())
		if err != nil {
			continue
		}
		if !known[name] {
			stray = append(stray, name)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan generations: %w", err)
	}
	sort.Strings(stray)
	return stray, nil
}

// DropStray deletes the hash of an unregistered generation
func (s *Store) DropStray(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, GenerationKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to drop stray generation %s: %w", name, err)
	}
	return nil
}

var _ cachestore.Backend = (*Store)(nil)
