// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// BeerType is the closed set of beer styles the stock accepts.
type BeerType string

// Supported beer types.
const (
	BeerTypeLager    BeerType = "LAGER"
	BeerTypeMalzbier BeerType = "MALZBIER"
	BeerTypeWitbier  BeerType = "WITBIER"
	BeerTypeWeiss    BeerType = "WEISS"
	BeerTypeAle      BeerType = "ALE"
	BeerTypeIPA      BeerType = "IPA"
	BeerTypeStout    BeerType = "STOUT"
)

// BeerTypes lists every supported beer type.
var BeerTypes = []BeerType{
	BeerTypeLager,
	BeerTypeMalzbier,
	BeerTypeWitbier,
	BeerTypeWeiss,
	BeerTypeAle,
	BeerTypeIPA,
	BeerTypeStout,
}

// Valid reports whether t is one of the supported beer types.
func (t BeerType) Valid() bool {
	for _, known := range BeerTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Field limits.
const (
	MaxNameLength      = 200
	MaxBrandLength     = 200
	MaxCapacity        = 500
	MaxInitialQuantity = 100
	MaxQuantityChange  = 100
)

// ErrValidation is wrapped by every error returned from Validate methods.
var ErrValidation = errors.New("validation failed")

// Beer is one stock-keeping unit.
type Beer struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name" validate:"required,min=1,max=200"`
	Brand    string   `json:"brand" validate:"required,min=1,max=200"`
	Max      int      `json:"max" validate:"required,gte=1,lte=500"`
	Quantity int      `json:"quantity" validate:"gte=0,lte=100,ltefield=Max"`
	Type     BeerType `json:"type" validate:"required,beertype"`
}

// Validate checks a beer candidate before creation.
func (b *Beer) Validate() error {
	return validateStruct(b)
}

// QuantityRequest carries the amount for increment and decrement calls.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=100"`
}

// Validate checks the requested amount.
func (q *QuantityRequest) Validate() error {
	return validateStruct(q)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("beertype", func(fl validator.FieldLevel) bool {
			return BeerType(fl.Field().String()).Valid()
		})
	})
	return validate
}

// validateStruct runs the struct tags and flattens field errors into one message.
func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s cannot be above %s", field, fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s cannot be above %s", field, strings.ToLower(fe.Param()))
	case "beertype":
		return fmt.Sprintf("%s must be one of %s", field, joinBeerTypes())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func joinBeerTypes() string {
	names := make([]string, len(BeerTypes))
	for i, t := range BeerTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// APIResponse is a generic wrapper for successful API responses. Data is
// always present, so an empty list encodes as [].
type APIResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// StockEventType names what happened to a beer's stock.
type StockEventType string

// Stock event types.
const (
	StockEventCreated     StockEventType = "created"
	StockEventIncremented StockEventType = "incremented"
	StockEventDecremented StockEventType = "decremented"
	StockEventDeleted     StockEventType = "deleted"
)

// StockEvent is broadcast to stock feed subscribers after every successful mutation.
type StockEvent struct {
	Type      StockEventType `json:"type"`
	BeerID    int64          `json:"beer_id"`
	Name      string         `json:"name"`
	Quantity  int            `json:"quantity"`
	Max       int            `json:"max"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewStockEvent builds an event describing the current state of b.
func NewStockEvent(eventType StockEventType, b Beer) StockEvent {
	return StockEvent{
		Type:      eventType,
		BeerID:    b.ID,
		Name:      b.Name,
		Quantity:  b.Quantity,
		Max:       b.Max,
		Timestamp: time.Now().UTC(),
	}
}
