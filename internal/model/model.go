// Package model содержит доменные сущности сервиса доставки воды.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Language описывает язык интерфейса пользователя.
type Language string

const (
	LanguageRU Language = "ru"
	LanguageEN Language = "en"
)

// DefaultLanguage используется, пока пользователь не выбрал язык.
const DefaultLanguage = LanguageRU

// ParseLanguage возвращает язык по тегу и признак того, что тег поддерживается.
func ParseLanguage(tag string) (Language, bool) {
	switch Language(tag) {
	case LanguageRU, LanguageEN:
		return Language(tag), true
	default:
		return "", false
	}
}

// Account представляет учётную запись клиента: профиль, баланс и код для заказа по коду.
type Account struct {
	UserID      int64           `json:"user_id"`
	Code        string          `json:"code"`
	DisplayName string          `json:"display_name"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	Language    Language        `json:"language"`
	Balance     decimal.Decimal `json:"balance"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Profile содержит изменяемые поля учётной записи, собранные в диалоге.
type Profile struct {
	UserID      int64
	DisplayName string
	Phone       string
	Address     string
	Language    Language
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusCompleted OrderStatus = "completed"
)

// ParseOrderStatus возвращает статус заказа по строке.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusActive, OrderStatusCompleted:
		return OrderStatus(s), true
	default:
		return "", false
	}
}

// Order описывает размещённый заказ. После создания меняется только статус.
type Order struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	Address     string          `json:"address"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewOrder содержит данные для создания заказа.
type NewOrder struct {
	AccountID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Address   string
	Latitude  *float64
	Longitude *float64
}

// TotalCost возвращает стоимость заказа: количество × цена за единицу.
func (o NewOrder) TotalCost() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}
