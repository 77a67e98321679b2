package compose

import (
	"math"

	"homefolio/config"
)

// Payment is an estimated monthly housing cost.
type Payment struct {
	Principal float64 // principal and interest
	Tax       float64
	Insurance float64
}

func (p Payment) Total() float64 { return p.Principal + p.Tax + p.Insurance }

// MonthlyPayment estimates the monthly cost of buying at price:
// M = L·r·(1+r)^n / ((1+r)^n − 1) on the financed amount, plus property tax
// and a flat insurance figure.
func MonthlyPayment(price float64, m config.Mortgage) Payment {
	if price <= 0 {
		return Payment{}
	}
	loan := price * (1 - m.DownPayment)
	n := float64(m.TermYears * 12)
	r := m.AnnualRate / 12

	var principal float64
	switch {
	case n <= 0:
	case r == 0:
		principal = loan / n
	default:
		f := math.Pow(1+r, n)
		principal = loan * r * f / (f - 1)
	}

	return Payment{
		Principal: principal,
		Tax:       price * m.TaxRate / 12,
		Insurance: m.MonthlyInsurance,
	}
}
