package database

import (
	"context"
	"fmt"

	"github.com/user/nftmarket/backend/internal/models"
)

// CreditBalance adds amount to a principal's balance, creating the row on first credit.
// Callers pass the transaction the event is recorded in.
func CreditBalance(ctx context.Context, q PgxQuerier, principal models.Principal, amount models.Amount) error {
	if amount < 0 {
		return fmt.Errorf("credit amount must not be negative")
	}
	if amount == 0 {
		return nil
	}

	query := `INSERT INTO balances (principal, amount) VALUES ($1, $2)
			  ON CONFLICT (principal) DO UPDATE SET amount = balances.amount + $2, updated_at = NOW()`
	if _, err := q.Exec(ctx, query, string(principal), int64(amount)); err != nil {
		return fmt.Errorf("error crediting %d to %s: %w", amount, principal, err)
	}
	return nil
}
