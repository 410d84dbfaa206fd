// File: database/repository/credit/interface.go
package creditRepo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"mentora/database"
)

// ErrInsufficientBalance is returned when a debit would take a balance
// below zero. The debit is conditional, so a concurrent spender can never
// push an account negative.
var ErrInsufficientBalance = errors.New("insufficient credit balance")

// CreditRepository is the credit ledger: per-user balances plus an
// append-only entry log. Debit and Credit are safe to call from inside
// the booking critical section.
type CreditRepository interface {
	Debit(ctx context.Context, userID string, amount int, memo string) error
	Credit(ctx context.Context, userID string, amount int, memo string) error
	Balance(ctx context.Context, userID string) (int, error)
}

type mongoCreditRepo struct {
	balanceColl *mongo.Collection
	entryColl   *mongo.Collection
}

// NewMongoCreditRepo constructs a new MongoDB CreditRepository.
func NewMongoCreditRepo() CreditRepository {
	db := database.MongoClient.Database("mentora")
	return &mongoCreditRepo{
		balanceColl: db.Collection("credit_balances"),
		entryColl:   db.Collection("credit_entries"),
	}
}
