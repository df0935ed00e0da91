package repository

import "errors"

var (
	// ErrAccountNotFound возвращается, если учётная запись не найдена.
	ErrAccountNotFound = errors.New("account not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientFunds возвращается, если баланса не хватает на заказ.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrCodeConflict возвращается, если не удалось подобрать свободный код учётной записи.
	ErrCodeConflict = errors.New("share code conflict")
)
