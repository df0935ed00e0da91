// Package validation содержит функции валидации входных данных диалога.
package validation

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CodeLength задаёт длину кода учётной записи.
const CodeLength = 8

// CodeAlphabet перечисляет символы кода учётной записи.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	// ErrAmountFormat возвращается, если сумма не является числом.
	ErrAmountFormat = errors.New("amount is not a number")
	// ErrAmountNotPositive возвращается для нулевой или отрицательной суммы.
	ErrAmountNotPositive = errors.New("amount must be positive")
	// ErrAmountTooLarge возвращается для суммы сверх MaxAmount.
	ErrAmountTooLarge = errors.New("amount is too large")
)

// MaxAmount ограничивает разовое пополнение баланса.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

// NormalizePhone убирает пробелы, дефисы и скобки из номера телефона.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// IsValidPhone проверяет, что номер начинается с «+» и далее содержит только цифры,
// либо целиком состоит из цифр.
func IsValidPhone(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	if digits == "" {
		return false
	}
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// HasHouseNumber проверяет, что уточнение адреса содержит хотя бы одну цифру.
func HasHouseNumber(detail string) bool {
	return strings.IndexFunc(detail, unicode.IsDigit) >= 0
}

// ParseAmount разбирает положительную сумму пополнения. Допускается запятая как разделитель.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountFormat
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	return amount, nil
}

// NormalizeCode приводит введённый код к верхнему регистру без пробелов.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode проверяет длину и алфавит кода учётной записи.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
