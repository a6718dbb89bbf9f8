// Package store provides durable storage for sessions, messages and the
// retail reference data the chatbot queries.
package store

import (
	"context"

	"shopchat/internal/domain"
)

// Store defines the storage operations used by the chat service and loader.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID int64) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	ListSessionsByUser(ctx context.Context, userID int64) ([]domain.Session, error)

	// Messages
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessagesBySession(ctx context.Context, sessionID int64) ([]domain.Message, error)
	NextSequence(ctx context.Context, sessionID int64) (int, error)

	// Reference data
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	CountUsers(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (int64, error)

	// Bulk import
	InsertDistributionCenters(ctx context.Context, centers []domain.DistributionCenter) error
	InsertProducts(ctx context.Context, products []domain.Product) error
	InsertUsers(ctx context.Context, users []domain.User) error
	InsertOrders(ctx context.Context, orders []domain.Order) error

	Close() error
}
