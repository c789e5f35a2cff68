package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Summary is the shop's financial position derived from order totals.
//
// Balance is money already received (paid orders). Receivable is work that
// is finished but not yet paid (completed orders).
type Summary struct {
	Balance    decimal.Decimal
	Receivable decimal.Decimal
	Orders     int
	ByStatus   map[Status]int
}

// Summary aggregates all orders into a Summary.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "order.Summary")
	defer span.End()

	orders, err := s.orders.List(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	sum := &Summary{
		Balance:    decimal.Zero,
		Receivable: decimal.Zero,
		Orders:     len(orders),
		ByStatus:   make(map[Status]int, len(Statuses)),
	}
	for _, o := range orders {
		sum.ByStatus[o.Status]++
		switch o.Status {
		case StatusPaid:
			sum.Balance = sum.Balance.Add(o.Total)
		case StatusCompleted:
			sum.Receivable = sum.Receivable.Add(o.Total)
		}
	}
	return sum, nil
}
