package repository

import "github.com/shopspring/decimal"

// Денежные суммы хранятся в минимальных единицах (сотых долях).

func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
