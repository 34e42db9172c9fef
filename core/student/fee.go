package student

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/academia/core"
)

// ComputeFinalFee returns total - discount at storage precision.
// A discount larger than the total is not rejected: the result is then negative.
func ComputeFinalFee(total, discount decimal.Decimal) decimal.Decimal {
	return core.RoundMoney(core.RoundMoney(total).Sub(core.RoundMoney(discount)))
}

// applyFees rounds the fee terms & derives FinalFee. Called on every create & update.
func (e *Enrollment) applyFees() {
	e.TotalFee = core.RoundMoney(e.TotalFee)
	e.DiscountAmount = core.RoundMoney(e.DiscountAmount)
	e.FinalFee = ComputeFinalFee(e.TotalFee, e.DiscountAmount)
}
