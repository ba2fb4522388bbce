// Package service implements the beer stock rules on top of a store.
//
// BeerService is the only component allowed to mutate persisted beers. It
// rejects duplicate names on create and keeps 0 <= quantity <= max on every
// increment and decrement. Read-modify-write cycles are not transactional:
// two concurrent changes to the same beer can overwrite each other.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/beerstock/internal/model"
	"github.com/vyrodovalexey/beerstock/internal/store"
)

// TracerName is the instrumentation name used for service spans.
const TracerName = "github.com/vyrodovalexey/beerstock/internal/service"

// Operation labels.
const (
	opCreate     = "create"
	opFindByName = "find_by_name"
	opListAll    = "list_all"
	opDelete     = "delete"
	opIncrement  = "increment"
	opDecrement  = "decrement"
)

var stockOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "beerstock_stock_operations_total",
		Help: "Total number of beer service operations by outcome",
	},
	[]string{"operation", "result"},
)

// EventPublisher receives a StockEvent after every successful mutation.
type EventPublisher interface {
	Publish(event model.StockEvent)
}

// Option configures a BeerService.
type Option func(*BeerService)

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *BeerService) {
		s.tracer = tracer
	}
}

// BeerService enforces the beer stock rules.
type BeerService struct {
	store     store.Store
	publisher EventPublisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewBeerService creates a BeerService. A nil publisher disables events.
func NewBeerService(
	s store.Store,
	publisher EventPublisher,
	logger *zap.Logger,
	opts ...Option,
) *BeerService {
	svc := &BeerService{
		store:     s,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores a new beer if no beer with the same name exists.
// Any ID on the candidate is ignored.
func (s *BeerService) Create(ctx context.Context, candidate model.Beer) (*model.Beer, error) {
	ctx, span := s.tracer.Start(ctx, "BeerService.Create",
		trace.WithAttributes(attribute.String("beer.name", candidate.Name)),
	)
	defer span.End()

	_, err := s.store.FindByName(ctx, candidate.Name)
	switch {
	case err == nil:
		return nil, s.fail(span, opCreate, AlreadyRegistered(candidate.Name))
	case !errors.Is(err, store.ErrNotFound):
		return nil, s.fail(span, opCreate, fmt.Errorf("looking up beer %q: %w", candidate.Name, err))
	}

	candidate.ID = 0
	saved, err := s.store.Save(ctx, &candidate)
	if err != nil {
		return nil, s.fail(span, opCreate, fmt.Errorf("saving beer %q: %w", candidate.Name, err))
	}

	span.SetAttributes(attribute.Int64("beer.id", saved.ID))
	s.succeed(opCreate, model.StockEventCreated, *saved)

	return saved, nil
}

// FindByName returns the beer with exactly this name.
func (s *BeerService) FindByName(ctx context.Context, name string) (*model.Beer, error) {
	ctx, span := s.tracer.Start(ctx, "BeerService.FindByName",
		trace.WithAttributes(attribute.String("beer.name", name)),
	)
	defer span.End()

	beer, err := s.store.FindByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.fail(span, opFindByName, NotFoundByName(name))
	}
	if err != nil {
		return nil, s.fail(span, opFindByName, fmt.Errorf("finding beer %q: %w", name, err))
	}

	stockOperationsTotal.WithLabelValues(opFindByName, "ok").Inc()
	return beer, nil
}

// ListAll returns every beer in store order. An empty store yields an empty slice.
func (s *BeerService) ListAll(ctx context.Context) ([]model.Beer, error) {
	ctx, span := s.tracer.Start(ctx, "BeerService.ListAll")
	defer span.End()

	beers, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, s.fail(span, opListAll, fmt.Errorf("listing beers: %w", err))
	}
	if beers == nil {
		beers = []model.Beer{}
	}

	span.SetAttributes(attribute.Int("beer.count", len(beers)))
	stockOperationsTotal.WithLabelValues(opListAll, "ok").Inc()
	return beers, nil
}

// DeleteByID removes an existing beer.
func (s *BeerService) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "BeerService.DeleteByID",
		trace.WithAttributes(attribute.Int64("beer.id", id)),
	)
	defer span.End()

	beer, err := s.findByID(ctx, id)
	if err != nil {
		return s.fail(span, opDelete, err)
	}

	if err := s.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.fail(span, opDelete, NotFoundByID(id))
		}
		return s.fail(span, opDelete, fmt.Errorf("deleting beer %d: %w", id, err))
	}

	s.succeed(opDelete, model.StockEventDeleted, *beer)
	return nil
}

// Increment adds amount to the stock of a beer. The resulting quantity may
// equal max but not exceed it. The sign of amount is not checked.
func (s *BeerService) Increment(ctx context.Context, id int64, amount int) (*model.Beer, error) {
	return s.changeQuantity(ctx, "BeerService.Increment", opIncrement, id, amount, func(b *model.Beer) error {
		newQuantity := b.Quantity + amount
		if newQuantity > b.Max {
			return StockExceeded(b.ID, b.Max)
		}
		b.Quantity = newQuantity
		return nil
	})
}

// Decrement removes amount from the stock of a beer. The resulting quantity
// may reach zero but not go below it. The sign of amount is not checked.
func (s *BeerService) Decrement(ctx context.Context, id int64, amount int) (*model.Beer, error) {
	return s.changeQuantity(ctx, "BeerService.Decrement", opDecrement, id, amount, func(b *model.Beer) error {
		newQuantity := b.Quantity - amount
		if newQuantity < 0 {
			return StockLessThanZero(b.ID)
		}
		b.Quantity = newQuantity
		return nil
	})
}

func (s *BeerService) changeQuantity(
	ctx context.Context,
	spanName, op string,
	id int64,
	amount int,
	apply func(*model.Beer) error,
) (*model.Beer, error) {
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.Int64("beer.id", id),
			attribute.Int("stock.amount", amount),
		),
	)
	defer span.End()

	beer, err := s.findByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, op, err)
	}

	if err := apply(beer); err != nil {
		return nil, s.fail(span, op, err)
	}

	saved, err := s.store.Save(ctx, beer)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.fail(span, op, NotFoundByID(id))
	}
	if err != nil {
		return nil, s.fail(span, op, fmt.Errorf("saving beer %d: %w", id, err))
	}

	eventType := model.StockEventIncremented
	if op == opDecrement {
		eventType = model.StockEventDecremented
	}
	s.succeed(op, eventType, *saved)

	return saved, nil
}

// findByID maps store misses, including IDs the store rejects outright, to NotFound.
func (s *BeerService) findByID(ctx context.Context, id int64) (*model.Beer, error) {
	beer, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
		return nil, NotFoundByID(id)
	}
	if err != nil {
		return nil, fmt.Errorf("finding beer %d: %w", id, err)
	}
	return beer, nil
}

func (s *BeerService) succeed(op string, eventType model.StockEventType, beer model.Beer) {
	stockOperationsTotal.WithLabelValues(op, "ok").Inc()

	s.logger.Info("beer stock changed",
		zap.String("operation", op),
		zap.Int64("id", beer.ID),
		zap.String("name", beer.Name),
		zap.Int("quantity", beer.Quantity),
		zap.Int("max", beer.Max),
	)

	if s.publisher != nil {
		s.publisher.Publish(model.NewStockEvent(eventType, beer))
	}
}

// fail records err on the span and metrics and returns it unchanged.
func (s *BeerService) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var domainErr *Error
	if errors.As(err, &domainErr) {
		stockOperationsTotal.WithLabelValues(op, domainErr.Kind.String()).Inc()
		s.logger.Debug("beer operation rejected",
			zap.String("operation", op),
			zap.String("reason", domainErr.Kind.String()),
			zap.Error(err),
		)
		return err
	}

	stockOperationsTotal.WithLabelValues(op, "error").Inc()
	s.logger.Error("beer operation failed", zap.String("operation", op), zap.Error(err))
	return err
}
