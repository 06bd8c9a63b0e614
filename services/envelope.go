// Package services is the data-access layer between the HTTP/view code and
// the managed backend. Issue, user, storage and settings operations return an
// Envelope and never let a backend error or panic escape; authentication
// operations return explicit errors.
package services

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"cityconnect-be/apperror"
)

// Envelope is the uniform result of a data-access call.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	// Err keeps the typed cause for callers that map it to a status code.
	Err error `json:"-"`
}

func ok[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

func fail[T any](err error) Envelope[T] {
	return Envelope[T]{Error: apperror.Message(err), Err: err}
}

// Unwrap returns the data or the error, for callers that prefer Go style.
func (e Envelope[T]) Unwrap() (T, error) {
	if e.Success {
		return e.Data, nil
	}
	if e.Err != nil {
		return e.Data, e.Err
	}
	return e.Data, errors.New(e.Error)
}

// guard turns a panic inside a service call into a failed envelope.
func guard[T any](logger *zap.Logger, op string, out *Envelope[T]) {
	if r := recover(); r != nil {
		logger.Error("service call panicked", zap.String("op", op), zap.Any("panic", r), zap.Stack("stack"))
		*out = fail[T](apperror.Read("Something went wrong", fmt.Errorf("panic in %s: %v", op, r)))
	}
}
