// package domain/models.go
package domain

// BucketKind identifica em qual balde da SEFAZ uma nota foi classificada.
type BucketKind string

// Constants for the four SEFAZ status buckets.
const (
	BucketAuthorizedOutbound BucketKind = "autorizadas_saida"
	BucketCancelled          BucketKind = "canceladas"
	BucketDenied             BucketKind = "denegadas"
	BucketOtherInbound       BucketKind = "entradas"
)

// Canonical classification labels derived from the NCM table.
const (
	ClassMonofasico = "Monofásico"
	ClassTributado  = "Tributado"
	ClassIndefinido = "Indefinido"
)

// StatusAuthorizedOutbound is the status label stamped on every reconciled item.
const StatusAuthorizedOutbound = "Autorizada + Saída"

// LedgerRecord é uma linha do extrato da SEFAZ já normalizada.
// Imutável após a classificação em um balde.
type LedgerRecord struct {
	InvoiceKey string  `json:"chave"`
	Status     string  `json:"situacao"`
	Direction  string  `json:"tipo_operacao"`
	Amount     float64 `json:"valor"`
}

// ExtractedProduct is one line item pulled out of an invoice XML.
type ExtractedProduct struct {
	NCM            string  `json:"ncm"`
	Description    string  `json:"descricao"`
	Classification string  `json:"classificacao"`
	Quantity       float64 `json:"quantidade"`
	UnitValue      float64 `json:"valor_unitario"`
	DeclaredValue  float64 `json:"valor_produto_xml"`
	Unit           string  `json:"unidade"`
	CFOP           string  `json:"cfop"`
}

// ReconciledLineItem is an extracted product joined with its SEFAZ record.
// ApportionedValue is the ledger amount divided evenly across the document's
// line items, so the sum over one invoice key equals the ledger amount.
type ReconciledLineItem struct {
	ExtractedProduct
	InvoiceKey       string  `json:"chave_nfe"`
	LedgerAmount     float64 `json:"valor_nota_sefaz"`
	ApportionedValue float64 `json:"valor_produto_proporcional"`
	StatusLabel      string  `json:"status"`
}

// UnmatchedEntry registra uma nota autorizada sem XML correspondente.
type UnmatchedEntry struct {
	InvoiceKey string  `json:"chave"`
	Amount     float64 `json:"valor"`
	Status     string  `json:"situacao"`
	Reason     string  `json:"motivo"`
}

// Diagnostic is a row- or document-level skip made observable instead of
// silently swallowed. It never aborts a load.
type Diagnostic struct {
	Stage  string `json:"stage"`
	Row    int    `json:"row,omitempty"`
	Reason string `json:"reason"`
}

// NCMLoadResult resume o carregamento da tabela de classificação.
type NCMLoadResult struct {
	Entries    int `json:"entries"`
	Monofasico int `json:"monofasico"`
	Tributado  int `json:"tributado"`
	Skipped    int `json:"skipped"`
}

// BucketSummary holds per-bucket counters reported after a ledger load.
type BucketSummary struct {
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// LedgerLoadResult resume o carregamento do extrato da SEFAZ.
type LedgerLoadResult struct {
	Buckets map[BucketKind]BucketSummary `json:"buckets"`
	Skipped int                          `json:"skipped"`
}

// ReconcileResult is the output of one reconciliation pass.
type ReconcileResult struct {
	Items     []ReconciledLineItem `json:"items"`
	Unmatched []UnmatchedEntry     `json:"unmatched"`
	Processed int                  `json:"processed"`
	Dropped   int                  `json:"dropped"`
}

// SummaryRow is one aggregated classification group, plus the grand-total row.
type SummaryRow struct {
	Category   string  `json:"categoria"`
	Count      int     `json:"quantidade"`
	TotalValue float64 `json:"valor_total"`
	Percentage float64 `json:"percentual"`
}
