package analyzer

import (
	"sort"

	"nfe-analyzer-service/internal/domain"
)

// grandTotalCategory nomeia a linha de total geral do resumo.
const grandTotalCategory = "TOTAL GERAL"

// Summary groups the reconciled line items by classification label and
// appends the grand-total row. Canonical labels come first; residual raw
// labels follow in sorted order. Percentages are over the grand total, 0 when
// the total itself is 0.
func (s *service) Summary(sess *Session) []domain.SummaryRow {
	type group struct {
		count int
		total float64
	}
	groups := make(map[string]*group)
	var grandTotal float64

	for _, item := range sess.Items {
		g, ok := groups[item.Classification]
		if !ok {
			g = &group{}
			groups[item.Classification] = g
		}
		g.count++
		g.total += item.ApportionedValue
		grandTotal += item.ApportionedValue
	}

	canonical := []string{domain.ClassMonofasico, domain.ClassTributado, domain.ClassIndefinido}
	var residual []string
	for label := range groups {
		if label != domain.ClassMonofasico && label != domain.ClassTributado && label != domain.ClassIndefinido {
			residual = append(residual, label)
		}
	}
	sort.Strings(residual)

	var rows []domain.SummaryRow
	for _, label := range append(canonical, residual...) {
		g, ok := groups[label]
		if !ok {
			continue
		}
		var pct float64
		if grandTotal > 0 {
			pct = g.total / grandTotal * 100
		}
		rows = append(rows, domain.SummaryRow{
			Category:   label,
			Count:      g.count,
			TotalValue: g.total,
			Percentage: pct,
		})
	}

	totalPct := 0.0
	if grandTotal > 0 {
		totalPct = 100.0
	}
	rows = append(rows, domain.SummaryRow{
		Category:   grandTotalCategory,
		Count:      len(sess.Items),
		TotalValue: grandTotal,
		Percentage: totalPct,
	})
	return rows
}
