package logger

import (
	"context"

	"github.com/google/uuid"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithVideoID adds the VOD id under analysis to the context.
func WithVideoID(ctx context.Context, videoID string) context.Context {
	return context.WithValue(ctx, ContextKeyVideoID, videoID)
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, ContextKeyOperation, operation)
}

// GenerateRequestID generates a new request ID for a single analysis run.
func GenerateRequestID() string {
	return uuid.New().String()
}
