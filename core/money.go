package core

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places money amounts are stored with (NUMERIC(10,2)).
const MoneyPlaces = 2

// RoundMoney rounds `d` half away from zero to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MoneyEqual compares two amounts at storage precision.
func MoneyEqual(a, b decimal.Decimal) bool {
	return RoundMoney(a).Equal(RoundMoney(b))
}
