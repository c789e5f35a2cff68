// Package document lays out and renders service order and receipt PDFs.
package document

import (
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"
)

// Config controls document appearance.
type Config struct {
	ShopName    string
	ShopTagline string
	Locale      string
}

// Renderer draws layouts as A4 PDFs.
type Renderer struct {
	cfg Config
	fmt *Formatter
}

// NewRenderer creates a Renderer for cfg.Locale.
func NewRenderer(cfg Config) (*Renderer, error) {
	f, err := NewFormatter(cfg.Locale)
	if err != nil {
		return nil, err
	}
	return &Renderer{cfg: cfg, fmt: f}, nil
}

// Formatter returns the formatter used for values.
func (r *Renderer) Formatter() *Formatter { return r.fmt }

// RenderOrder writes the PDF of a service order to w.
func (r *Renderer) RenderOrder(w io.Writer, d OrderData) error {
	l := OrderLayout(r.fmt, d)
	return r.draw(w, l, "OS "+strconv.Itoa(d.Number))
}

// RenderReceipt writes the PDF of a payment receipt to w.
func (r *Renderer) RenderReceipt(w io.Writer, d ReceiptData) error {
	l := ReceiptLayout(r.fmt, d)
	return r.draw(w, l, l.Title+" "+strconv.FormatInt(d.ID, 10))
}

const (
	margin    = 15.0
	lineH     = 6.0
	labelW    = 45.0
	amountW   = 50.0
	fontFace  = "Helvetica"
	smallFont = 9.0
)

// brand blue, also used for rules under section titles.
var accent = [3]int{33, 95, 151}

func (r *Renderer) draw(w io.Writer, l Layout, title string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(title, true)
	pdf.SetCreator(r.cfg.ShopName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin + 3)
		pdf.SetFont(fontFace, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*margin

	// Shop header.
	pdf.SetTextColor(accent[0], accent[1], accent[2])
	pdf.SetFont(fontFace, "B", 18)
	pdf.CellFormat(0, 9, tr(r.cfg.ShopName), "", 1, "C", false, 0, "")
	if r.cfg.ShopTagline != "" {
		pdf.SetFont(fontFace, "", 10)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 5, tr(r.cfg.ShopTagline), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFace, "B", 14)
	pdf.CellFormat(0, 8, tr(l.Title), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// Info strip: one cell per entry across the page.
	if n := len(l.Info); n > 0 {
		cellW := contentW / float64(n)
		pdf.SetFillColor(240, 240, 240)
		for i, row := range l.Info {
			style := ""
			if row.Bold {
				style = "B"
			}
			pdf.SetFont(fontFace, style, 10)
			ln := 0
			if i == n-1 {
				ln = 1
			}
			pdf.CellFormat(cellW, 8, tr(row.Label+": "+row.Value), "1", ln, "C", true, 0, "")
		}
		pdf.Ln(4)
	}

	for _, s := range l.Sections {
		r.sectionTitle(pdf, tr, s.Title)
		for _, row := range s.Rows {
			if row.Amount {
				r.amountRow(pdf, tr, row, contentW)
				continue
			}
			pdf.SetFont(fontFace, "B", 10)
			pdf.CellFormat(labelW, lineH, tr(row.Label+":"), "", 0, "L", false, 0, "")
			pdf.SetFont(fontFace, "", 10)
			pdf.MultiCell(0, lineH, tr(row.Value), "", "L", false)
		}
		pdf.Ln(3)
	}

	if len(l.Terms) > 0 {
		r.sectionTitle(pdf, tr, l.TermsTitle)
		pdf.SetFont(fontFace, "", smallFont)
		for i, term := range l.Terms {
			pdf.MultiCell(0, 4.5, tr(strconv.Itoa(i+1)+". "+term), "", "L", false)
		}
		pdf.Ln(3)
	}

	if len(l.Signatures) > 0 {
		r.sectionTitle(pdf, tr, l.SignTitle)
		pdf.Ln(12)
		slotW := contentW / float64(len(l.Signatures))
		y := pdf.GetY()
		for i := range l.Signatures {
			x := margin + float64(i)*slotW
			pdf.Line(x+5, y, x+slotW-5, y)
		}
		pdf.Ln(1)
		pdf.SetFont(fontFace, "", smallFont)
		for i, s := range l.Signatures {
			ln := 0
			if i == len(l.Signatures)-1 {
				ln = 1
			}
			pdf.CellFormat(slotW, 5, tr(s), "", ln, "C", false, 0, "")
		}
	}

	if len(l.Notes) > 0 {
		pdf.Ln(4)
		pdf.SetFont(fontFace, "", smallFont)
		for _, n := range l.Notes {
			pdf.CellFormat(0, 5, tr(n), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}

func (r *Renderer) sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFillColor(accent[0], accent[1], accent[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFace, "B", 11)
	pdf.CellFormat(0, 7, tr(" "+title), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(1)
}

func (r *Renderer) amountRow(pdf *fpdf.Fpdf, tr func(string) string, row Row, contentW float64) {
	style := ""
	h := lineH + 1
	if row.Bold {
		style = "B"
		h += 2
		pdf.SetTextColor(accent[0], accent[1], accent[2])
	}
	pdf.SetDrawColor(160, 160, 160)
	pdf.SetFont(fontFace, style, 10)
	pdf.CellFormat(contentW-amountW, h, tr(row.Label), "1", 0, "L", false, 0, "")
	pdf.CellFormat(amountW, h, tr(row.Value), "1", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
