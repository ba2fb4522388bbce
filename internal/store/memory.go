package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vyrodovalexey/beerstock/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu     sync.RWMutex
	beers  map[int64]model.Beer
	nextID int64
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		beers:  make(map[int64]model.Beer),
		nextID: 1,
	}
}

// FindByName returns the beer with exactly this name.
func (s *MemoryStore) FindByName(ctx context.Context, name string) (*model.Beer, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find beer by name: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, beer := range s.beers {
		if beer.Name == name {
			return &beer, nil
		}
	}

	return nil, ErrNotFound
}

// FindByID retrieves a beer by its ID.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*model.Beer, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find beer by id: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	beer, exists := s.beers[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &beer, nil
}

// FindAll returns all beers ordered by ID.
func (s *MemoryStore) FindAll(ctx context.Context) ([]model.Beer, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find all beers: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	beers := make([]model.Beer, 0, len(s.beers))
	for _, beer := range s.beers {
		beers = append(beers, beer)
	}
	sort.Slice(beers, func(i, j int) bool { return beers[i].ID < beers[j].ID })

	return beers, nil
}

// Save inserts or overwrites a beer.
func (s *MemoryStore) Save(ctx context.Context, beer *model.Beer) (*model.Beer, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("save beer: %w", ctx.Err())
	default:
	}

	if beer == nil {
		return nil, fmt.Errorf("save beer: %w", ErrNilBeer)
	}

	if beer.ID < 0 {
		return nil, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *beer
	if saved.ID == 0 {
		saved.ID = s.nextID
		s.nextID++
	} else if _, exists := s.beers[saved.ID]; !exists {
		return nil, ErrNotFound
	}

	s.beers[saved.ID] = saved

	return &saved, nil
}

// DeleteByID removes a beer from the store by its ID.
func (s *MemoryStore) DeleteByID(ctx context.Context, id int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete beer: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.beers[id]; !exists {
		return ErrNotFound
	}

	delete(s.beers, id)

	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
