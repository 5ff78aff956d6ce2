package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountNameTaken   = errors.New("account name already in use")
	ErrAccountNumberTaken = errors.New("account number already in use")
	ErrAccountHasBalance  = errors.New("account balance must be zero to delete it")

	// Transfer errors
	ErrSameAccount      = errors.New("cannot transfer to same account")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrConcurrentUpdate = errors.New("account is being updated concurrently, retry later")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)
