// Package controller holds the page side: it validates input, writes to the
// local stores and rebuilds views from storage after every mutation.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/kv"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// ErrNotFound is returned when deleting a record that does not exist.
var ErrNotFound = errors.New("record not found")

// Vacations manages the vacation list kept as one JSON blob in the simple store.
type Vacations struct {
	store  kv.Storage
	key    string
	format *domain.DateFormatter
	log    logger.Logger

	// one mutation at a time, like the single-threaded page
	mu sync.Mutex
}

// NewVacations creates the vacation controller.
func NewVacations(store kv.Storage, key string, format *domain.DateFormatter, log logger.Logger) *Vacations {
	return &Vacations{store: store, key: key, format: format, log: log}
}

// Submit validates the range, stores it and returns the rebuilt view.
// An invalid range writes nothing and returns domain.ErrInvalidDates.
func (v *Vacations) Submit(ctx context.Context, startDate, endDate string) (domain.VacationsView, error) {
	startDate, endDate = strings.TrimSpace(startDate), strings.TrimSpace(endDate)
	if err := domain.ValidateDates(startDate, endDate); err != nil {
		v.log.Debug("rejected vacation",
			logger.String("start", startDate),
			logger.String("end", endDate))
		return domain.VacationsView{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	vacations, err := v.load(ctx)
	if err != nil {
		return domain.VacationsView{}, err
	}

	vacations = append(vacations, domain.Vacation{StartDate: startDate, EndDate: endDate})
	domain.SortVacations(vacations)

	if err := v.save(ctx, vacations); err != nil {
		return domain.VacationsView{}, err
	}
	return v.render(ctx)
}

// View rebuilds the view from storage.
func (v *Vacations) View(ctx context.Context) (domain.VacationsView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.render(ctx)
}

// List returns the stored vacations, newest first.
func (v *Vacations) List(ctx context.Context) ([]domain.Vacation, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vacations, err := v.load(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortVacations(vacations)
	return vacations, nil
}

// Delete removes the vacation at index in the sorted list.
func (v *Vacations) Delete(ctx context.Context, index int) (domain.VacationsView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vacations, err := v.load(ctx)
	if err != nil {
		return domain.VacationsView{}, err
	}
	domain.SortVacations(vacations)

	if index < 0 || index >= len(vacations) {
		return domain.VacationsView{}, fmt.Errorf("%w: vacation %d", ErrNotFound, index)
	}
	vacations = append(vacations[:index], vacations[index+1:]...)

	if err := v.save(ctx, vacations); err != nil {
		return domain.VacationsView{}, err
	}
	return v.render(ctx)
}

func (v *Vacations) render(ctx context.Context) (domain.VacationsView, error) {
	vacations, err := v.load(ctx)
	if err != nil {
		return domain.VacationsView{}, err
	}
	// order is re-established on every load
	domain.SortVacations(vacations)
	return domain.RenderVacations(vacations, v.format), nil
}

func (v *Vacations) load(ctx context.Context) ([]domain.Vacation, error) {
	raw, ok, err := v.store.Get(ctx, v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read vacations: %w", err)
	}
	if !ok || raw == "" {
		return []domain.Vacation{}, nil
	}

	var vacations []domain.Vacation
	if err := json.Unmarshal([]byte(raw), &vacations); err != nil {
		return nil, fmt.Errorf("failed to parse vacations under %q: %w", v.key, err)
	}
	if vacations == nil {
		vacations = []domain.Vacation{}
	}
	return vacations, nil
}

func (v *Vacations) save(ctx context.Context, vacations []domain.Vacation) error {
	data, err := json.Marshal(vacations)
	if err != nil {
		return fmt.Errorf("failed to marshal vacations: %w", err)
	}
	if err := v.store.Set(ctx, v.key, string(data)); err != nil {
		return fmt.Errorf("failed to save vacations: %w", err)
	}
	return nil
}
