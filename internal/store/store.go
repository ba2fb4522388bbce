// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/beerstock/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("beer not found")
	ErrInvalidID = errors.New("invalid beer ID")
	ErrNilBeer   = errors.New("beer cannot be nil")
)

// Store defines the persistence operations the beer service relies on.
// Implementations give single-operation atomicity only.
type Store interface {
	// FindByName returns the beer with exactly this name, or ErrNotFound.
	FindByName(ctx context.Context, name string) (*model.Beer, error)

	// FindByID returns the beer with this ID, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.Beer, error)

	// FindAll returns every stored beer.
	FindAll(ctx context.Context) ([]model.Beer, error)

	// Save inserts a beer with a zero ID, assigning a new one, and
	// overwrites the stored beer otherwise.
	Save(ctx context.Context, beer *model.Beer) (*model.Beer, error)

	// DeleteByID removes a beer by its ID, or returns ErrNotFound.
	DeleteByID(ctx context.Context, id int64) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
