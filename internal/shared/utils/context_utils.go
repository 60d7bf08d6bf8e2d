package utils

import (
	"context"
	"errors"

	"cosmosdb-wrapper/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRequestIDNotFound  = errors.New("requestID not found in context")
	ErrRequestIDNotString = errors.New("requestID in context is not a string")
	ErrDatabaseNotFound   = errors.New("database not found in context")
	ErrDatabaseNotString  = errors.New("database in context is not a string")
	ErrContainerNotFound  = errors.New("container not found in context")
	ErrContainerNotString = errors.New("container in context is not a string")
)

func stringValue(ctx context.Context, key interface{}, notFound, notString error) (string, error) {
	val := ctx.Value(key)
	if val == nil {
		return "", notFound
	}
	s, ok := val.(string)
	if !ok {
		return "", notString
	}
	return s, nil
}

// GetRequestIDFromContext retrieves the request ID from the context.
// It returns an error if the request ID is not found or is not a string.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.RequestIDKey, ErrRequestIDNotFound, ErrRequestIDNotString)
}

// GetDatabaseFromContext retrieves the database name from the context.
func GetDatabaseFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.DatabaseKey, ErrDatabaseNotFound, ErrDatabaseNotString)
}

// GetContainerFromContext retrieves the container name from the context.
func GetContainerFromContext(ctx context.Context) (string, error) {
	return stringValue(ctx, contextkeys.ContainerKey, ErrContainerNotFound, ErrContainerNotString)
}

// Context setters

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// WithDatabase returns ctx unchanged when database is empty
func WithDatabase(ctx context.Context, database string) context.Context {
	if database == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.DatabaseKey, database)
}

// WithContainer returns ctx unchanged when container is empty
func WithContainer(ctx context.Context, container string) context.Context {
	if container == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.ContainerKey, container)
}

func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}

// GetRequestIDOrDefault returns the request ID or def when absent
func GetRequestIDOrDefault(ctx context.Context, def string) string {
	if v, err := GetRequestIDFromContext(ctx); err == nil {
		return v
	}
	return def
}
