package document

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/repairdesk/internal/domain/cost"
)

// Party is the customer block printed on every document.
type Party struct {
	Name     string
	Email    string
	Phone    string
	Document string
	Address  string
}

// OrderData is everything printed on a service order.
type OrderData struct {
	Number            int
	IssuedAt          time.Time
	Status            string
	Client            Party
	Service           string
	DeviceType        string
	Brand             string
	Model             string
	Serial            string
	Defects           string
	Diagnosis         string
	EstimatedDeadline *time.Time

	Parts           []cost.PartCost
	LaborCost       decimal.Decimal
	PartsSubtotal   decimal.Decimal
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
}

// ReceiptData is everything printed on a payment receipt.
type ReceiptData struct {
	ID            int64
	IssuedAt      time.Time
	OrderNumber   int
	Client        Party
	OrderTotal    decimal.Decimal
	AmountPaid    decimal.Decimal
	PaymentMethod string
	Installments  int
}
