package logger

import (
	"context"

	"github.com/google/uuid"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithAdminEmail adds the signed-in admin email to the context.
func WithAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextKeyAdminEmail, email)
}

// WithReservationID adds a reservation ID to the context.
func WithReservationID(ctx context.Context, reservationID string) context.Context {
	return context.WithValue(ctx, ContextKeyReservationID, reservationID)
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, ContextKeyOperation, operation)
}

// GenerateRequestID generates a new request ID.
func GenerateRequestID() string {
	requestID := uuid.New()
	return requestID.String()
}
