package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countSearchAccounts = `-- name: CountSearchAccounts :one
SELECT COUNT(*) FROM accounts
WHERE owner_id = $1
  AND ($2::text = '' OR name ILIKE '%' || $2::text || '%' ESCAPE '\')
  AND ($3::text = '' OR number LIKE '%' || $3::text || '%' ESCAPE '\')
`

type CountSearchAccountsParams struct {
	OwnerID      string `json:"owner_id"`
	NameFilter   string `json:"name_filter"`
	NumberFilter string `json:"number_filter"`
}

func (q *Queries) CountSearchAccounts(ctx context.Context, arg CountSearchAccountsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countSearchAccounts, arg.OwnerID, arg.NameFilter, arg.NumberFilter)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (id, number, name, owner_id, balance, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateAccountParams struct {
	ID        string             `json:"id"`
	Number    string             `json:"number"`
	Name      string             `json:"name"`
	OwnerID   string             `json:"owner_id"`
	Balance   pgtype.Numeric     `json:"balance"`
	Version   int64              `json:"version"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.Exec(ctx, createAccount,
		arg.ID,
		arg.Number,
		arg.Name,
		arg.OwnerID,
		arg.Balance,
		arg.Version,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const deleteAccount = `-- name: DeleteAccount :execrows
DELETE FROM accounts WHERE id = $1 AND owner_id = $2
`

type DeleteAccountParams struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

func (q *Queries) DeleteAccount(ctx context.Context, arg DeleteAccountParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAccount, arg.ID, arg.OwnerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getAccountByIDAndOwner = `-- name: GetAccountByIDAndOwner :one
SELECT id, number, name, owner_id, balance, version, created_at, updated_at FROM accounts WHERE id = $1 AND owner_id = $2
`

type GetAccountByIDAndOwnerParams struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

func (q *Queries) GetAccountByIDAndOwner(ctx context.Context, arg GetAccountByIDAndOwnerParams) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByIDAndOwner, arg.ID, arg.OwnerID)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Number,
		&i.Name,
		&i.OwnerID,
		&i.Balance,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountsByIDsForUpdate = `-- name: GetAccountsByIDsForUpdate :many
SELECT id, number, name, owner_id, balance, version, created_at, updated_at FROM accounts
WHERE owner_id = $1 AND id = ANY($2::text[])
ORDER BY id
FOR UPDATE
`

type GetAccountsByIDsForUpdateParams struct {
	OwnerID string   `json:"owner_id"`
	Column2 []string `json:"column_2"`
}

func (q *Queries) GetAccountsByIDsForUpdate(ctx context.Context, arg GetAccountsByIDsForUpdateParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, getAccountsByIDsForUpdate, arg.OwnerID, arg.Column2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.Number,
			&i.Name,
			&i.OwnerID,
			&i.Balance,
			&i.Version,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const searchAccounts = `-- name: SearchAccounts :many
SELECT id, number, name, owner_id, balance, version, created_at, updated_at FROM accounts
WHERE owner_id = $1
  AND ($2::text = '' OR name ILIKE '%' || $2::text || '%' ESCAPE '\')
  AND ($3::text = '' OR number LIKE '%' || $3::text || '%' ESCAPE '\')
ORDER BY created_at, id
LIMIT $4 OFFSET $5
`

type SearchAccountsParams struct {
	OwnerID      string `json:"owner_id"`
	NameFilter   string `json:"name_filter"`
	NumberFilter string `json:"number_filter"`
	PageLimit    int32  `json:"page_limit"`
	PageOffset   int32  `json:"page_offset"`
}

func (q *Queries) SearchAccounts(ctx context.Context, arg SearchAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, searchAccounts,
		arg.OwnerID,
		arg.NameFilter,
		arg.NumberFilter,
		arg.PageLimit,
		arg.PageOffset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.Number,
			&i.Name,
			&i.OwnerID,
			&i.Balance,
			&i.Version,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateAccountBalance = `-- name: UpdateAccountBalance :exec
UPDATE accounts
SET balance = $2, version = version + 1, updated_at = $3
WHERE id = $1
`

type UpdateAccountBalanceParams struct {
	ID        string             `json:"id"`
	Balance   pgtype.Numeric     `json:"balance"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateAccountBalance(ctx context.Context, arg UpdateAccountBalanceParams) error {
	_, err := q.db.Exec(ctx, updateAccountBalance, arg.ID, arg.Balance, arg.UpdatedAt)
	return err
}

const updateAccountName = `-- name: UpdateAccountName :one
UPDATE accounts
SET name = $3, updated_at = $4
WHERE id = $1 AND owner_id = $2
RETURNING id, number, name, owner_id, balance, version, created_at, updated_at
`

type UpdateAccountNameParams struct {
	ID        string             `json:"id"`
	OwnerID   string             `json:"owner_id"`
	Name      string             `json:"name"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateAccountName(ctx context.Context, arg UpdateAccountNameParams) (Account, error) {
	row := q.db.QueryRow(ctx, updateAccountName,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.UpdatedAt,
	)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Number,
		&i.Name,
		&i.OwnerID,
		&i.Balance,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
