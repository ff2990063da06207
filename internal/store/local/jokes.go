package local

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/objectdb"
)

// Jokes is the joke collection.
type Jokes struct {
	db *objectdb.DB
}

// NewJokes wraps an open joke database.
func NewJokes(db *objectdb.DB) *Jokes {
	return &Jokes{db: db}
}

// SaveMany upserts every joke by id in one transaction. A joke already
// stored under the same id is replaced.
func (j *Jokes) SaveMany(ctx context.Context, jokes []domain.Joke) error {
	return j.db.Update(ctx, func(tx *objectdb.Tx) error {
		s, err := tx.Store(JokeStore)
		if err != nil {
			return err
		}
		for _, joke := range jokes {
			if _, err := s.Put(joke); err != nil {
				return fmt.Errorf("failed to save joke %d: %w", joke.ID, err)
			}
		}
		return nil
	})
}

// List returns every joke in key order.
func (j *Jokes) List(ctx context.Context) ([]domain.Joke, error) {
	var jokes []domain.Joke
	err := j.db.View(ctx, func(tx *objectdb.Tx) error {
		s, err := tx.Store(JokeStore)
		if err != nil {
			return err
		}
		jokes, err = objectdb.GetAll[domain.Joke](s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list jokes: %w", err)
	}
	return jokes, nil
}

// Delete removes the joke with id.
func (j *Jokes) Delete(ctx context.Context, id int64) error {
	return j.db.Update(ctx, func(tx *objectdb.Tx) error {
		s, err := tx.Store(JokeStore)
		if err != nil {
			return err
		}
		return s.Delete(id)
	})
}

// Count returns the number of stored jokes.
func (j *Jokes) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.View(ctx, func(tx *objectdb.Tx) error {
		s, err := tx.Store(JokeStore)
		if err != nil {
			return err
		}
		n, err = s.Count()
		return err
	})
	return n, err
}
