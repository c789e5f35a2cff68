package document

import (
	"strings"
	"time"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var supported = []language.Tag{
	language.BrazilianPortuguese,
	language.English,
}

var matcher = language.NewMatcher(supported)

// Formatter renders values and labels for one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	labels  *labels
}

// NewFormatter returns a Formatter for locale. Unsupported locales fall back
// to Brazilian Portuguese; an unparsable tag is an error.
func NewFormatter(locale string) (*Formatter, error) {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		locale = "pt-BR"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", locale)
	}

	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		idx = 0
	}
	matched := supported[idx]

	l := &ptBR
	if matched == language.English {
		l = &en
	}
	return &Formatter{
		tag:     matched,
		printer: message.NewPrinter(matched),
		labels:  l,
	}, nil
}

// Tag returns the locale in use.
func (f *Formatter) Tag() language.Tag { return f.tag }

// Amount formats d with two decimals and locale grouping, without currency.
func (f *Formatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// Money formats d as a currency amount.
func (f *Formatter) Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "- " + f.labels.currency + " " + f.Amount(d.Neg())
	}
	return f.labels.currency + " " + f.Amount(d)
}

// Percent formats p with two decimals.
func (f *Formatter) Percent(p decimal.Decimal) string {
	return f.Amount(p) + "%"
}

// Date formats t as a calendar date.
func (f *Formatter) Date(t time.Time) string {
	return t.Format(f.labels.dateLayout)
}

// Status returns the printed label of an order status.
func (f *Formatter) Status(s string) string {
	if v, ok := f.labels.statuses[s]; ok {
		return v
	}
	return strings.ToUpper(strings.ReplaceAll(s, "_", " "))
}

// PaymentMethod returns the printed label of a payment method.
func (f *Formatter) PaymentMethod(m string) string {
	if v, ok := f.labels.methods[m]; ok {
		return v
	}
	return m
}

// Phone formats Brazilian phone numbers: 11 digits as (11) 98765-4321 and 10
// digits as (11) 3456-7890. Anything else is returned as given.
func Phone(raw string) string {
	d := digits(raw)
	switch len(d) {
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		return raw
	}
}

// TaxID formats an 11 digit individual tax id as 123.456.789-01. Anything
// else is returned as given.
func TaxID(raw string) string {
	d := digits(raw)
	if len(d) != 11 {
		return raw
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// orEmpty substitutes a dash for blank values.
func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
