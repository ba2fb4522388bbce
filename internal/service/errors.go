package service

import "fmt"

// Kind identifies which domain rule a request violated.
type Kind int

// Domain error kinds.
const (
	KindAlreadyRegistered Kind = iota + 1
	KindNotFound
	KindStockExceeded
	KindStockLessThanZero
)

// String returns the metric and log label for the kind.
func (k Kind) String() string {
	switch k {
	case KindAlreadyRegistered:
		return "already_registered"
	case KindNotFound:
		return "not_found"
	case KindStockExceeded:
		return "stock_exceeded"
	case KindStockLessThanZero:
		return "stock_less_than_zero"
	default:
		return "unknown"
	}
}

// Error is the single error type for domain rule violations. Only the
// payload fields relevant to Kind are set.
type Error struct {
	Kind Kind
	Name string
	ID   int64
	Max  int
}

// Sentinels for errors.Is checks. They match any *Error of the same Kind.
var (
	ErrAlreadyRegistered = &Error{Kind: KindAlreadyRegistered}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrStockExceeded     = &Error{Kind: KindStockExceeded}
	ErrStockLessThanZero = &Error{Kind: KindStockLessThanZero}
)

// AlreadyRegistered reports a create for a name that is already taken.
func AlreadyRegistered(name string) *Error {
	return &Error{Kind: KindAlreadyRegistered, Name: name}
}

// NotFoundByName reports a missing beer looked up by name.
func NotFoundByName(name string) *Error {
	return &Error{Kind: KindNotFound, Name: name}
}

// NotFoundByID reports a missing beer looked up by ID.
func NotFoundByID(id int64) *Error {
	return &Error{Kind: KindNotFound, ID: id}
}

// StockExceeded reports an increment that would push quantity above max.
func StockExceeded(id int64, maxQuantity int) *Error {
	return &Error{Kind: KindStockExceeded, ID: id, Max: maxQuantity}
}

// StockLessThanZero reports a decrement that would push quantity below zero.
func StockLessThanZero(id int64) *Error {
	return &Error{Kind: KindStockLessThanZero, ID: id}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAlreadyRegistered:
		return fmt.Sprintf("beer with name %s already registered in the system", e.Name)
	case KindNotFound:
		if e.Name != "" {
			return fmt.Sprintf("beer with name %s not found in the system", e.Name)
		}
		return fmt.Sprintf("beer with id %d not found in the system", e.ID)
	case KindStockExceeded:
		return fmt.Sprintf("stock capacity of beer with id %d cannot be above max %d", e.ID, e.Max)
	case KindStockLessThanZero:
		return fmt.Sprintf("stock capacity of beer with id %d cannot be below 0", e.ID)
	default:
		return "beer stock error"
	}
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
