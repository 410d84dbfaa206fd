// File: database/repository/credit/credit_mongo.go
package creditRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type creditEntry struct {
	ID        string    `bson:"id"`
	UserID    string    `bson:"user_id"`
	Amount    int       `bson:"amount"` // negative for debits
	Memo      string    `bson:"memo,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// Debit withdraws credits from a user's balance. The update is guarded by
// a balance >= amount filter; a zero-match result means the balance was
// insufficient at commit time.
func (r *mongoCreditRepo) Debit(ctx context.Context, userID string, amount int, memo string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	filter := bson.M{"user_id": userID, "balance": bson.M{"$gte": amount}}
	update := bson.M{
		"$inc": bson.M{"balance": -amount},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := r.balanceColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error debiting %d credits from %s: %w", amount, userID, err)
	}
	if res.ModifiedCount == 0 {
		return ErrInsufficientBalance
	}

	r.appendEntry(ctx, userID, -amount, memo)
	return nil
}

// Credit deposits credits, creating the balance document if needed.
func (r *mongoCreditRepo) Credit(ctx context.Context, userID string, amount int, memo string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$inc": bson.M{"balance": amount},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if _, err := r.balanceColl.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("error crediting %d credits to %s: %w", amount, userID, err)
	}

	r.appendEntry(ctx, userID, amount, memo)
	return nil
}

func (r *mongoCreditRepo) Balance(ctx context.Context, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc struct {
		Balance int `bson:"balance"`
	}
	err := r.balanceColl.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error fetching balance for %s: %w", userID, err)
	}
	return doc.Balance, nil
}

// appendEntry records the movement in the audit log. The balance update is
// the source of truth; a failed audit insert is logged by the caller's
// error path but does not undo the movement.
func (r *mongoCreditRepo) appendEntry(ctx context.Context, userID string, amount int, memo string) {
	entry := creditEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Memo:      memo,
		CreatedAt: time.Now(),
	}
	_, _ = r.entryColl.InsertOne(ctx, entry)
}
