package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Behavior(t *testing.T) {
	err := NewValidationError("invalid input").WithCode("VAL001").WithDetail("field", "name").WithComponent("test-component")
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "invalid input", err.Message)
	assert.Equal(t, "VAL001", err.Code)
	assert.Equal(t, "test-component", err.Component)
	assert.Equal(t, "name", err.Details["field"])
	assert.Equal(t, "invalid input", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.HTTPCode)
}

func TestAppError_WithCause_Unwrap(t *testing.T) {
	cause := errors.New("driver said no")
	err := NewNotFoundError("container 'items'").WithCause(cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, "container 'items' not found: driver said no", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestIsPredicates(t *testing.T) {
	nf := NewNotFoundError("doc")
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsConflict(nf))
	assert.False(t, IsValidation(nf))

	conflict := NewAlreadyExistsError("database 'orders'")
	assert.True(t, IsConflict(conflict))
	assert.False(t, IsNotFound(conflict))
	assert.Equal(t, http.StatusConflict, conflict.HTTPCode)

	consistency := NewConsistencyError("two items with id 1")
	assert.True(t, IsConsistency(consistency))
	assert.True(t, errors.Is(consistency, ErrConsistencyViolation))

	assert.True(t, IsValidation(NewValidationError("bad")))
}

func TestIsPredicates_SentinelsAndWrapping(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrContainerNotFound)))
	assert.True(t, IsConflict(fmt.Errorf("create: %w", ErrAlreadyExists)))
	assert.True(t, IsNotFound(fmt.Errorf("outer: %w", NewNotFoundError("item"))))

	plain := errors.New("quota exceeded")
	assert.False(t, IsNotFound(plain))
	assert.False(t, IsConflict(plain))
	assert.False(t, IsConsistency(plain))
	assert.False(t, IsNotFound(nil))
}

func TestIsPredicates_NestedAppErrors(t *testing.T) {
	inner := NewConflictError("exists")
	outer := NewInternalError("create failed").WithCause(inner)
	assert.True(t, IsConflict(outer))
}

func TestWrapError(t *testing.T) {
	appErr := NewValidationError("bad")
	assert.Same(t, appErr, WrapError(appErr, "ignored"))

	wrapped := WrapError(errors.New("io"), "store failed")
	assert.Equal(t, ErrorTypeInternal, wrapped.Type)
	assert.Equal(t, "store failed: io", wrapped.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NewNotFoundError("x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(fmt.Errorf("ctx: %w", NewValidationError("x"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
