package document

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Row is a label/value pair. Amount rows are printed right-aligned in a
// ruled table.
type Row struct {
	Label  string
	Value  string
	Bold   bool
	Amount bool
}

// Section is a titled block of rows.
type Section struct {
	Title string
	Rows  []Row
}

// Layout is the device-independent content of a document, top to bottom.
type Layout struct {
	Title      string
	Info       []Row
	Sections   []Section
	TermsTitle string
	Terms      []string
	SignTitle  string
	Signatures []string
	Notes      []string
}

// OrderLayout builds the content of a service order.
func OrderLayout(f *Formatter, d OrderData) Layout {
	l := f.labels

	info := []Row{
		{Label: l.orderNumber, Value: strconv.Itoa(d.Number), Bold: true},
		{Label: l.date, Value: f.Date(d.IssuedAt)},
		{Label: l.status, Value: f.Status(d.Status)},
	}

	device := []Row{
		{Label: l.service, Value: orEmpty(d.Service)},
		{Label: l.deviceType, Value: orEmpty(d.DeviceType)},
		{Label: l.brandModel, Value: orEmpty(joinNonEmpty(d.Brand, d.Model))},
		{Label: l.serial, Value: orEmpty(d.Serial)},
		{Label: l.defects, Value: orEmpty(d.Defects)},
		{Label: l.diagnosis, Value: orEmpty(d.Diagnosis)},
	}
	if d.EstimatedDeadline != nil {
		device = append(device, Row{Label: l.deadline, Value: f.Date(*d.EstimatedDeadline)})
	}

	return Layout{
		Title: l.orderTitle,
		Info:  info,
		Sections: []Section{
			{Title: l.clientSection, Rows: partyRows(f, d.Client)},
			{Title: l.deviceSection, Rows: device},
			{Title: l.costSection, Rows: CostRows(f, d)},
		},
		TermsTitle: l.termsSection,
		Terms:      l.terms,
		SignTitle:  l.signatures,
		Signatures: []string{l.clientSignature, l.techSignature},
		Notes:      []string{l.pickupDate},
	}
}

// CostRows lists the cost table of an order. The subtotal and discount rows
// appear only when a discount applies.
func CostRows(f *Formatter, d OrderData) []Row {
	l := f.labels

	rows := make([]Row, 0, len(d.Parts)+5)
	for _, p := range d.Parts {
		rows = append(rows, Row{Label: p.Name, Value: f.Money(p.Cost), Amount: true})
	}
	rows = append(rows,
		Row{Label: l.partsSubtotal, Value: f.Money(d.PartsSubtotal), Amount: true},
		Row{Label: l.labor, Value: f.Money(d.LaborCost), Amount: true},
	)
	if d.DiscountPercent.IsPositive() {
		rows = append(rows,
			Row{Label: l.subtotal, Value: f.Money(d.Subtotal), Amount: true},
			Row{
				Label:  fmt.Sprintf("%s (%s)", l.discount, f.Percent(d.DiscountPercent)),
				Value:  f.Money(d.DiscountAmount.Neg()),
				Amount: true,
			},
		)
	}
	rows = append(rows, Row{Label: l.total, Value: f.Money(d.Total), Bold: true, Amount: true})
	return rows
}

// ReceiptLayout builds the content of a payment receipt.
func ReceiptLayout(f *Formatter, d ReceiptData) Layout {
	l := f.labels

	method := f.PaymentMethod(d.PaymentMethod)
	if d.Installments > 1 {
		method = fmt.Sprintf("%s (%dx)", method, d.Installments)
	}

	payment := []Row{
		{Label: l.orderTotal, Value: f.Money(d.OrderTotal), Amount: true},
		{Label: l.amountPaid, Value: f.Money(d.AmountPaid), Bold: true, Amount: true},
		{Label: l.method, Value: method, Amount: true},
	}
	if d.Installments > 1 {
		per := d.AmountPaid.Div(decimal.NewFromInt(int64(d.Installments)))
		payment = append(payment, Row{Label: l.perInstallment, Value: f.Money(per), Amount: true})
	}

	return Layout{
		Title: l.receiptTitle,
		Info: []Row{
			{Label: l.receiptNo, Value: strconv.FormatInt(d.ID, 10), Bold: true},
			{Label: l.date, Value: f.Date(d.IssuedAt)},
			{Label: l.orderNumber, Value: strconv.Itoa(d.OrderNumber)},
		},
		Sections: []Section{
			{Title: l.clientSection, Rows: partyRows(f, d.Client)},
			{Title: l.paymentSection, Rows: payment},
		},
		SignTitle:  l.signatures,
		Signatures: []string{l.clientSignature},
		Notes:      []string{l.paidConfirm},
	}
}

func partyRows(f *Formatter, p Party) []Row {
	l := f.labels
	return []Row{
		{Label: l.name, Value: orEmpty(p.Name)},
		{Label: l.email, Value: orEmpty(p.Email)},
		{Label: l.phone, Value: orEmpty(Phone(p.Phone))},
		{Label: l.taxID, Value: orEmpty(TaxID(p.Document))},
		{Label: l.address, Value: orEmpty(p.Address)},
	}
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
