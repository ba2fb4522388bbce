// Package handler provides HTTP request handlers for the REST API.
package handler

import (
	"context"

	"github.com/vyrodovalexey/beerstock/internal/model"
)

// BeerService is the set of stock operations exposed over HTTP.
type BeerService interface {
	Create(ctx context.Context, candidate model.Beer) (*model.Beer, error)
	FindByName(ctx context.Context, name string) (*model.Beer, error)
	ListAll(ctx context.Context) ([]model.Beer, error)
	DeleteByID(ctx context.Context, id int64) error
	Increment(ctx context.Context, id int64, amount int) (*model.Beer, error)
	Decrement(ctx context.Context, id int64, amount int) (*model.Beer, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}
