package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, from_account_id, to_account_id, amount, transaction_date, status)
VALUES ($1, $2, $3, $4, $5, $6)
`

type CreateTransactionParams struct {
	ID              string             `json:"id"`
	FromAccountID   string             `json:"from_account_id"`
	ToAccountID     string             `json:"to_account_id"`
	Amount          pgtype.Numeric     `json:"amount"`
	TransactionDate pgtype.Timestamptz `json:"transaction_date"`
	Status          string             `json:"status"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.FromAccountID,
		arg.ToAccountID,
		arg.Amount,
		arg.TransactionDate,
		arg.Status,
	)
	return err
}

const listTransactionsByAccount = `-- name: ListTransactionsByAccount :many
SELECT id, from_account_id, to_account_id, amount, transaction_date, status FROM transactions
WHERE from_account_id = $1 OR to_account_id = $1
ORDER BY transaction_date, id
`

func (q *Queries) ListTransactionsByAccount(ctx context.Context, fromAccountID string) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactionsByAccount, fromAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.FromAccountID,
			&i.ToAccountID,
			&i.Amount,
			&i.TransactionDate,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
