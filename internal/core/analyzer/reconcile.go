package analyzer

import (
	"sort"

	"nfe-analyzer-service/internal/domain"
)

// ProgressFunc is notified after each ledger record is processed. It is a
// side channel only: no backpressure, no effect on the result.
type ProgressFunc func(processed, total int)

// Reconcile joins the Authorized-Outbound bucket against the stored XML
// documents. For each matched document the SEFAZ amount is apportioned evenly
// across the extracted line items; keys without a document become unmatched
// entries. The pass is read-only over the input stores and deterministic:
// records are visited in sorted key order.
func (s *service) Reconcile(sess *Session, progress ProgressFunc) domain.ReconcileResult {
	authorized := sess.Buckets[domain.BucketAuthorizedOutbound]

	keys := make([]string, 0, len(authorized))
	for key := range authorized {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := domain.ReconcileResult{}
	for i, key := range keys {
		record := authorized[key]
		content, found := sess.Docs[key]
		if !found {
			result.Unmatched = append(result.Unmatched, domain.UnmatchedEntry{
				InvoiceKey: key,
				Amount:     record.Amount,
				Status:     record.Status,
				Reason:     "XML não encontrado",
			})
			reportProgress(progress, i+1, len(keys))
			continue
		}

		products := extractProducts(content, sess.NCM)
		if len(products) == 0 {
			// Nota autorizada cujo XML não rendeu produtos: o valor sai de
			// ambos os totais, registrado apenas como diagnóstico.
			result.Dropped++
			sess.addDiagnostic("reconcile", 0, "nenhum produto extraído para a chave "+key)
			reportProgress(progress, i+1, len(keys))
			continue
		}

		apportioned := record.Amount / float64(len(products))
		for _, product := range products {
			result.Items = append(result.Items, domain.ReconciledLineItem{
				ExtractedProduct: product,
				InvoiceKey:       key,
				LedgerAmount:     record.Amount,
				ApportionedValue: apportioned,
				StatusLabel:      domain.StatusAuthorizedOutbound,
			})
		}
		reportProgress(progress, i+1, len(keys))
	}

	result.Processed = len(keys)
	sess.Items = result.Items
	sess.Unmatched = result.Unmatched
	return result
}

func reportProgress(progress ProgressFunc, processed, total int) {
	if progress != nil {
		progress(processed, total)
	}
}
