package service

import (
	"context"
	"errors"
	"fmt"
	"menu-service/internal/models"
	"strings"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrOrderNotFound  = errors.New("order not found")
	ErrCouponNotFound = errors.New("coupon not found")
	ErrCouponInactive = errors.New("coupon is inactive")
	ErrCouponExists   = errors.New("coupon already exists")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrStatusMismatch = errors.New("persisted status does not match requested status")
	ErrTimeout        = errors.New("store operation timed out, outcome unknown")
)

// Kind classifies every error the service returns.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInvalidStatus
	KindInvalidTransition
	KindNotFound
	KindConflict
	KindTimeout
	KindStore
	KindNotAuthenticated
	KindNotAuthorized
	KindStatusMismatch
	KindEmptyCart
	KindCouponInactive
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindValidation:        "validation_error",
	KindInvalidStatus:     "invalid_status",
	KindInvalidTransition: "invalid_transition",
	KindNotFound:          "not_found",
	KindConflict:          "conflict",
	KindTimeout:           "timeout",
	KindStore:             "store_error",
	KindNotAuthenticated:  "unauthorized",
	KindNotAuthorized:     "forbidden",
	KindStatusMismatch:    "status_mismatch",
	KindEmptyCart:         "empty_cart",
	KindCouponInactive:    "coupon_inactive",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// TransitionError rejects a move that is not in the lifecycle table.
type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries field-level problems the caller can fix.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// StoreError wraps a failure reported by the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		te *TransitionError
		ve *ValidationError
		se *StoreError
	)
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &te):
		return KindInvalidTransition
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindNotAuthenticated
	case errors.Is(err, ErrForbidden):
		return KindNotAuthorized
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrCouponNotFound):
		return KindNotFound
	case errors.Is(err, ErrCouponExists):
		return KindConflict
	case errors.Is(err, ErrCouponInactive):
		return KindCouponInactive
	case errors.Is(err, ErrEmptyCart):
		return KindEmptyCart
	case errors.Is(err, ErrInvalidStatus):
		return KindInvalidStatus
	case errors.Is(err, ErrStatusMismatch):
		return KindStatusMismatch
	case errors.As(err, &se):
		return KindStore
	default:
		return KindUnknown
	}
}
