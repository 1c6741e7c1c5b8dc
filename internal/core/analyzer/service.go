// package analyzer/service.go
package analyzer

import (
	"io"

	"nfe-analyzer-service/internal/domain"
)

// Service defines the NFe analysis operations. Every operation takes the
// explicit Session that scopes all loaded state to one user interaction.
type Service interface {
	LoadNCMTable(sess *Session, file io.Reader, filename string) (domain.NCMLoadResult, error)
	LoadSefazLedger(sess *Session, file io.Reader) (domain.LedgerLoadResult, error)
	StoreInvoiceXMLs(sess *Session, files []io.Reader) int
	Reconcile(sess *Session, progress ProgressFunc) domain.ReconcileResult
	Summary(sess *Session) []domain.SummaryRow
	ExportExcel(sess *Session) ([]byte, error)
}

type service struct{}

// NewService creates a new analysis service.
func NewService() Service {
	return &service{}
}
