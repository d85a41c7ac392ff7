package models

import "github.com/shopspring/decimal"

// Apply применяет движение к паре (OnHand, Reserved) и пересчитывает производные поля.
// Количество уже должно быть провалидировано сервисом (>0, для ADJUST допустим знак).
// OnHand и Reserved никогда не уходят ниже нуля; Available — может.
func (b *Balance) Apply(t MovementType, qty decimal.Decimal) {
	switch t {
	case MovementIn:
		b.OnHand = b.OnHand.Add(qty)
	case MovementOut:
		// доставка списывает и остаток, и совпадающий резерв
		b.OnHand = clampZero(b.OnHand.Sub(qty))
		b.Reserved = clampZero(b.Reserved.Sub(qty))
	case MovementReserve:
		b.Reserved = b.Reserved.Add(qty)
	case MovementRelease:
		b.Reserved = clampZero(b.Reserved.Sub(qty))
	case MovementAdjust:
		b.OnHand = clampZero(b.OnHand.Add(qty))
	}
	b.Recompute()
}

// Recompute пересчитывает Available и LowStock из формулы — на каждой записи.
func (b *Balance) Recompute() {
	b.Available = b.OnHand.Sub(b.Reserved)
	b.LowStock = b.MinStock != nil && b.Available.Cmp(*b.MinStock) <= 0
}

func clampZero(v decimal.Decimal) decimal.Decimal {
	if v.Sign() < 0 {
		return decimal.Zero
	}
	return v
}
