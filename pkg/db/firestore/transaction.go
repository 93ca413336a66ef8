package firestore

import (
	"context"
	"fmt"

	apperrors "atelier/pkg/errors"

	"cloud.google.com/go/firestore"
)

type txKey struct{}

// TransactionFunc runs inside a Firestore transaction. Repositories recover
// the transaction from ctx with FromContext. Firestore requires every read to
// happen before the first write.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type firestoreTransactionManager struct {
	client *firestore.Client
}

func NewTransactionManager(client *firestore.Client) TransactionManager {
	return &firestoreTransactionManager{client: client}
}

func (m *firestoreTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	err := m.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// FromContext returns the transaction attached by ExecuteTransaction.
func FromContext(ctx context.Context) (*firestore.Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(*firestore.Transaction)
	return tx, ok && tx != nil
}
