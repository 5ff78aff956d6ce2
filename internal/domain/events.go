package domain

import "time"

// Event types
const (
	EventTypeTransferSucceeded = "transfer.succeeded"
	EventTypeTransferFailed    = "transfer.failed"
	EventTypeAccountCreated    = "account.created"
	EventTypeAccountDeposited  = "account.deposited"
	EventTypeAccountDeleted    = "account.deleted"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeAccount     = "account"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewTransferEvent builds the outbox event for a decided transfer.
func NewTransferEvent(id string, outcome *TransferOutcome, at time.Time) *OutboxEvent {
	tx := outcome.Transaction

	eventType := EventTypeTransferSucceeded
	if !outcome.Succeeded() {
		eventType = EventTypeTransferFailed
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   tx.ID,
		AggregateType: AggregateTypeTransaction,
		EventType:     eventType,
		Payload: map[string]any{
			"transaction_id":  tx.ID,
			"from_account_id": tx.FromAccountID,
			"to_account_id":   tx.ToAccountID,
			"amount":          tx.Amount.StringFixed(MoneyScale),
			"status":          string(outcome.Status),
			"reason":          outcome.Reason,
		},
		CreatedAt: at,
	}
}

// NewAccountEvent builds an account lifecycle event. amount may be empty.
func NewAccountEvent(id, eventType string, account *Account, amount string, at time.Time) *OutboxEvent {
	payload := map[string]any{
		"account_id": account.ID,
		"owner_id":   account.OwnerID,
		"number":     account.Number,
		"name":       account.Name,
		"balance":    account.Balance.StringFixed(MoneyScale),
	}
	if amount != "" {
		payload["amount"] = amount
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   account.ID,
		AggregateType: AggregateTypeAccount,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}
