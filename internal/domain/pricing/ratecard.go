package pricing

import (
	"time"

	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/money"
)

// RateCard is a flat nightly rate with weekend and long-stay rules. It backs
// the in-process quoting service used when no data layer is configured.
type RateCard struct {
	Nightly          money.Money
	WeekendSurcharge money.Money
	LongStayNights   int
	LongStayPercent  int64
	Deposit          DepositRule
}

func (c RateCard) Quote(r daterange.DateRange) (Quote, error) {
	if err := r.Validate(); err != nil {
		return Quote{}, err
	}
	if c.Nightly.Currency == "" {
		return Quote{}, ErrCurrencyUnset
	}
	if c.Nightly.Amount < 0 || c.WeekendSurcharge.Amount < 0 {
		return Quote{}, ErrNegativeComponent
	}
	nights := r.Nights()
	base := c.Nightly.Multiply(int64(nights))

	rules := money.Money{Currency: c.Nightly.Currency}
	if c.WeekendSurcharge.Amount > 0 {
		for _, night := range r.Days() {
			if wd := night.Weekday(); wd == time.Friday || wd == time.Saturday {
				rules.Amount += c.WeekendSurcharge.Amount
			}
		}
	}
	if c.LongStayNights > 0 && nights >= c.LongStayNights && c.LongStayPercent > 0 {
		rules.Amount -= base.Amount * c.LongStayPercent / 100
	}

	total, err := base.Add(rules)
	if err != nil {
		return Quote{}, err
	}
	total = total.ClampZero()
	deposit := c.Deposit
	if deposit == "" {
		deposit = DepositNone
	}
	return Quote{
		Nights:       nights,
		BaseSubtotal: base,
		RulesDelta:   rules,
		Total:        total,
		PerNight:     money.Money{Amount: total.Amount / int64(nights), Currency: total.Currency},
		DepositRule:  deposit,
	}, nil
}
