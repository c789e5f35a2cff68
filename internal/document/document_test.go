package document

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/xenking/repairdesk/internal/domain/cost"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func mustFormatter(t *testing.T, locale string) *Formatter {
	t.Helper()
	f, err := NewFormatter(locale)
	require.NoError(t, err)
	return f
}

func sampleOrder() OrderData {
	return OrderData{
		Number:   482913,
		IssuedAt: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
		Status:   "in_progress",
		Client: Party{
			Name:     "Maria Silva",
			Email:    "maria@example.com",
			Phone:    "11987654321",
			Document: "12345678901",
			Address:  "Rua das Flores, 100",
		},
		Service:       "Troca de tela",
		DeviceType:    "smartphone",
		Brand:         "Samsung",
		Model:         "A52",
		Defects:       "Tela trincada",
		Parts:         []cost.PartCost{{Name: "Tela", Cost: d("150")}},
		LaborCost:     d("50"),
		PartsSubtotal: d("150"),
		Subtotal:      d("200"),
		Total:         d("200"),
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{locale: "", want: language.BrazilianPortuguese},
		{locale: "pt_BR", want: language.BrazilianPortuguese},
		{locale: "en-US", want: language.English},
		{locale: "ja", want: language.BrazilianPortuguese},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, mustFormatter(t, tt.locale).Tag())
		})
	}

	_, err := NewFormatter("not a locale!")
	require.Error(t, err)
}

func TestFormatter_Money(t *testing.T) {
	pt := mustFormatter(t, "pt-BR")
	assert.Equal(t, "R$ 12.345,60", pt.Money(d("12345.6")))
	assert.Equal(t, "R$ 180,00", pt.Money(d("180")))
	assert.Equal(t, "R$ 3,34", pt.Money(d("3.336333")))
	assert.Equal(t, "- R$ 20,00", pt.Money(d("-20")))

	en := mustFormatter(t, "en")
	assert.Equal(t, "R$ 12,345.60", en.Money(d("12345.6")))
}

func TestFormatter_Date(t *testing.T) {
	ts := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "10/03/2025", mustFormatter(t, "pt-BR").Date(ts))
	assert.Equal(t, "Mar 10, 2025", mustFormatter(t, "en").Date(ts))
}

func TestFormatter_Status(t *testing.T) {
	assert.Equal(t, "EM ANDAMENTO", mustFormatter(t, "pt-BR").Status("in_progress"))
	assert.Equal(t, "AWAITING PARTS", mustFormatter(t, "en").Status("awaiting_parts"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "(11) 98765-4321", Phone("11987654321"))
	assert.Equal(t, "(11) 3456-7890", Phone("(11) 3456-7890"))
	assert.Equal(t, "(11) 3456-7890", Phone("1134567890"))
	assert.Equal(t, "+44 20 7946", Phone("+44 20 7946"))
}

func TestTaxID(t *testing.T) {
	assert.Equal(t, "123.456.789-01", TaxID("12345678901"))
	assert.Equal(t, "123.456.789-01", TaxID("123.456.789-01"))
	assert.Equal(t, "999", TaxID("999"))
}

func TestCostRows(t *testing.T) {
	f := mustFormatter(t, "pt-BR")

	t.Run("without discount", func(t *testing.T) {
		rows := CostRows(f, sampleOrder())
		labels := make([]string, len(rows))
		for i, r := range rows {
			labels[i] = r.Label
		}
		assert.Equal(t, []string{"Tela", "Subtotal Peças", "Mão de Obra", "TOTAL"}, labels)
		assert.True(t, rows[len(rows)-1].Bold)
		assert.Equal(t, "R$ 200,00", rows[len(rows)-1].Value)
	})

	t.Run("with discount", func(t *testing.T) {
		o := sampleOrder()
		o.DiscountPercent = d("10")
		o.DiscountAmount = d("20")
		o.Total = d("180")

		rows := CostRows(f, o)
		require.Len(t, rows, 6)
		assert.Equal(t, "Subtotal", rows[3].Label)
		assert.Equal(t, "R$ 200,00", rows[3].Value)
		assert.Equal(t, "Desconto (10,00%)", rows[4].Label)
		assert.Equal(t, "- R$ 20,00", rows[4].Value)
		assert.Equal(t, "R$ 180,00", rows[5].Value)
	})
}

func TestOrderLayout(t *testing.T) {
	f := mustFormatter(t, "pt-BR")
	l := OrderLayout(f, sampleOrder())

	assert.Equal(t, "ORDEM DE SERVIÇO", l.Title)
	require.Len(t, l.Info, 3)
	assert.Equal(t, "482913", l.Info[0].Value)
	assert.Equal(t, "10/03/2025", l.Info[1].Value)
	assert.Equal(t, "EM ANDAMENTO", l.Info[2].Value)

	require.Len(t, l.Sections, 3)
	client := l.Sections[0].Rows
	assert.Equal(t, "(11) 98765-4321", client[2].Value)
	assert.Equal(t, "123.456.789-01", client[3].Value)

	device := l.Sections[1].Rows
	assert.Equal(t, "Samsung A52", device[2].Value)
	assert.Equal(t, "-", device[3].Value)

	assert.Len(t, l.Terms, 8)
	assert.Len(t, l.Signatures, 2)
}

func TestReceiptLayout(t *testing.T) {
	f := mustFormatter(t, "pt-BR")
	r := ReceiptData{
		ID:            12,
		IssuedAt:      time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		OrderNumber:   482913,
		Client:        Party{Name: "Maria Silva"},
		OrderTotal:    d("180"),
		AmountPaid:    d("180"),
		PaymentMethod: "credit_card",
		Installments:  3,
	}

	l := ReceiptLayout(f, r)
	require.Len(t, l.Sections, 2)
	payment := l.Sections[1].Rows
	require.Len(t, payment, 4)
	assert.Equal(t, "Cartão de crédito (3x)", payment[2].Value)
	assert.Equal(t, "R$ 60,00", payment[3].Value)

	r.PaymentMethod = "pix"
	r.Installments = 1
	l = ReceiptLayout(f, r)
	assert.Len(t, l.Sections[1].Rows, 3)
}

func TestRenderer(t *testing.T) {
	for _, locale := range []string{"pt-BR", "en"} {
		t.Run(locale, func(t *testing.T) {
			r, err := NewRenderer(Config{ShopName: "Oficina Tech", ShopTagline: "Assistência técnica", Locale: locale})
			require.NoError(t, err)

			var buf bytes.Buffer
			o := sampleOrder()
			o.DiscountPercent = d("10")
			o.DiscountAmount = d("20")
			o.Total = d("180")
			require.NoError(t, r.RenderOrder(&buf, o))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

			buf.Reset()
			require.NoError(t, r.RenderReceipt(&buf, ReceiptData{
				ID:            1,
				OrderNumber:   482913,
				OrderTotal:    d("180"),
				AmountPaid:    d("100"),
				PaymentMethod: "cash",
				Installments:  1,
			}))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		})
	}
}
