package trade

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// ApplyBuy returns p after buying qty shares at price. The average cost
// becomes the volume-weighted average of the held shares and the new ones.
// A buy that would push the quantity past math.MaxInt64 is rejected.
func ApplyBuy(p model.Position, qty int64, price decimal.Decimal) (model.Position, error) {
	if qty > math.MaxInt64-p.Quantity {
		return p, fmt.Errorf("%w: buying %d %s on top of %d exceeds the maximum position size", model.ErrInvalidInput, qty, p.Symbol, p.Quantity)
	}
	held := decimal.NewFromInt(p.Quantity)
	added := decimal.NewFromInt(qty)
	total := held.Add(added)

	cost := held.Mul(p.AverageCost).Add(added.Mul(price))
	p.Quantity += qty
	p.AverageCost = cost.Div(total)
	return p, nil
}

// ApplySell returns p after selling qty shares. The average cost is
// unchanged unless the position is closed, in which case it resets to zero.
func ApplySell(p model.Position, qty int64) (model.Position, error) {
	if p.Quantity < qty {
		return p, fmt.Errorf("%w: holding %d %s, selling %d", model.ErrInsufficientPosition, p.Quantity, p.Symbol, qty)
	}
	p.Quantity -= qty
	if p.Quantity == 0 {
		p.AverageCost = decimal.Zero
	}
	return p, nil
}
