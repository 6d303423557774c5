package pipeline

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// QuoteTotals is the display-ready monetary header of a quote. All fields
// are formatted strings; DescontoFinanceiro is empty when no financial
// discount applies so the template can drop the row entirely.
type QuoteTotals struct {
	TotalBruto          string
	TotalDescontosItens string
	DescontoFinanceiro  string
	TotalLiquido        string
	ValorIVA            string
	TotalFinal          string
	TaxaIVA             string
}

// QuoteItem is one line inside a product group.
type QuoteItem struct {
	Nome     string
	Qty      float64
	Preco    string
	Desconto string
	Total    string
	FotoURL  string

	totalRaw float64
}

// QuoteGroup is a named section of line items. TotalDoGrupo is suppressed
// (empty) when the quote has a single group.
type QuoteGroup struct {
	Nome         string
	Itens        []QuoteItem
	TotalDoGrupo string
}

// quoteFactors carry the header-level scaling shared by the totals and the
// per-group subtotals so the two reconcile.
type quoteFactors struct {
	finFactor float64
	vatRate   float64
}

// VATRate normalizes a rate given either as a whole percentage (23) or a
// fraction (0.23). Values at or above 1 are treated as percentages;
// negatives count as zero.
func VATRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return v / 100
	}
	return v
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// DeriveQuoteTotals applies the quote cascade to the raw header: gross minus
// line discounts, minus the financial discount percentage, plus VAT.
// Displayed amounts never go negative.
func DeriveQuoteTotals(header gjson.Result) (QuoteTotals, quoteFactors) {
	gross := header.Get("totalBruto").Float()
	lineDiscounts := header.Get("totalDescontosItens").Float()
	finPct := clampZero(header.Get("descontoFinanceiroPercent").Float())
	vatRate := VATRate(header.Get("taxaIva").Float())

	base := clampZero(gross - lineDiscounts)
	finAmount := base * finPct / 100
	net := clampZero(base - finAmount)
	vat := net * vatRate
	final := net + vat

	totals := QuoteTotals{
		TotalBruto:          FormatEUR(clampZero(gross)),
		TotalDescontosItens: FormatEUR(clampZero(lineDiscounts)),
		TotalLiquido:        FormatEUR(net),
		ValorIVA:            FormatEUR(vat),
		TotalFinal:          FormatEUR(final),
		TaxaIVA:             strconv.FormatFloat(vatRate*100, 'f', 0, 64),
	}
	if finAmount > 0 {
		totals.DescontoFinanceiro = FormatEUR(finAmount)
	}

	return totals, quoteFactors{finFactor: 1 - finPct/100, vatRate: vatRate}
}

// BuildQuoteGroups shapes the raw product groups into display form. Group
// subtotals run through the same financial-discount and VAT scaling as the
// header so their sum reconciles with the final total; with a single group
// the subtotal is redundant and left empty.
func BuildQuoteGroups(produtos gjson.Result, f quoteFactors, productImageBaseURL string) []QuoteGroup {
	if !produtos.IsArray() {
		return []QuoteGroup{}
	}

	raw := produtos.Array()
	groups := make([]QuoteGroup, 0, len(raw))
	for _, g := range raw {
		group := QuoteGroup{Nome: g.Get("nome").String()}

		var sum float64
		for _, i := range g.Get("itens").Array() {
			item := QuoteItem{
				Nome:     itemName(i),
				Qty:      i.Get("qty").Float(),
				Preco:    FormatValue(i.Get("preco")),
				Total:    FormatValue(i.Get("total")),
				FotoURL:  productImageURL(productImageBaseURL, i.Get("prod_id").String()),
				totalRaw: i.Get("total").Float(),
			}
			if d := i.Get("desconto").Float(); d > 0 {
				item.Desconto = FormatEUR(d)
			}
			sum += item.totalRaw
			group.Itens = append(group.Itens, item)
		}

		if len(raw) > 1 {
			subtotal := clampZero(sum * f.finFactor)
			group.TotalDoGrupo = FormatEUR(subtotal * (1 + f.vatRate))
		}
		groups = append(groups, group)
	}
	return groups
}

func itemName(i gjson.Result) string {
	if n := i.Get("nome"); n.Exists() && n.String() != "" {
		return n.String()
	}
	return i.Get("descricao").String()
}

// productImageURL builds the product photo location from its identifier.
// Blank and "0" identifiers mean no photo exists for the product.
func productImageURL(base, id string) string {
	id = strings.TrimSpace(id)
	if id == "" || id == "0" || base == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + id + ".jpg"
}
