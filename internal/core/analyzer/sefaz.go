package analyzer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"nfe-analyzer-service/internal/domain"

	"golang.org/x/text/encoding/charmap"
)

// ledgerDelimiters, na ordem em que são tentados sobre o arquivo da SEFAZ.
var ledgerDelimiters = []rune{',', ';', '\t'}

// LoadSefazLedger parses the SEFAZ status ledger and classifies every record
// into one of the four buckets. Delimiter and encoding vary across uploads;
// the load sniffs both before resolving columns. Only missing essential
// columns abort the load — bad rows become diagnostics.
func (s *service) LoadSefazLedger(sess *Session, file io.Reader) (domain.LedgerLoadResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return domain.LedgerLoadResult{}, fmt.Errorf("falha ao ler o arquivo SEFAZ: %w", err)
	}

	records := sniffLedgerTable(data)
	if len(records) == 0 || len(records[0]) < 2 {
		// Possivelmente Latin-1: decodificar e tentar de novo.
		decoded, decErr := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data)))
		if decErr == nil {
			if retried := sniffLedgerTable(decoded); len(retried) > 0 {
				records = retried
			}
		}
	}
	if len(records) == 0 {
		return domain.LedgerLoadResult{}, fmt.Errorf("falha ao interpretar o arquivo SEFAZ: nenhum registro reconhecido")
	}

	header := records[0]
	idx := resolveDistinct(header, []columnResolver{
		{rules: []columnRule{{all: []string{"CHAVE", "ACESSO"}}}, fallback: -1},
		{rules: []columnRule{{all: []string{"SITUACAO"}}}, fallback: -1},
		{rules: []columnRule{{all: []string{"TIPO", "OPERACAO"}}}, fallback: -1},
		{rules: []columnRule{{all: []string{"VALOR"}}}, fallback: -1},
	})
	idxChave, idxSituacao, idxTipo, idxValor := idx[0], idx[1], idx[2], idx[3]

	var missing []string
	if idxChave < 0 {
		missing = append(missing, "Chave de Acesso")
	}
	if idxSituacao < 0 {
		missing = append(missing, "Situação")
	}
	if len(missing) > 0 {
		return domain.LedgerLoadResult{}, &domain.MissingColumnsError{File: "arquivo SEFAZ", Columns: missing}
	}

	result := domain.LedgerLoadResult{Buckets: map[domain.BucketKind]domain.BucketSummary{}}
	for i := 1; i < len(records); i++ {
		row := records[i]

		chave := strings.TrimSpace(cellAt(row, idxChave))
		situacao := strings.TrimSpace(cellAt(row, idxSituacao))
		tipo := "Saida"
		if idxTipo >= 0 {
			tipo = strings.TrimSpace(cellAt(row, idxTipo))
		}
		valor := parseLedgerAmount(cellAt(row, idxValor))

		key, ok := normalizeInvoiceKey(chave)
		if !ok {
			result.Skipped++
			sess.addDiagnostic("sefaz", i+1, "chave inválida")
			continue
		}

		bucket, ok := classifyLedgerRecord(situacao, tipo)
		if !ok {
			result.Skipped++
			sess.addDiagnostic("sefaz", i+1, fmt.Sprintf("situação não classificada: %q", situacao))
			continue
		}

		sess.Buckets[bucket][key] = domain.LedgerRecord{
			InvoiceKey: key,
			Status:     situacao,
			Direction:  tipo,
			Amount:     valor,
		}

		summary := result.Buckets[bucket]
		summary.Count++
		summary.TotalAmount += valor
		result.Buckets[bucket] = summary
	}

	return result, nil
}

// sniffLedgerTable tenta os delimitadores em ordem e aceita o primeiro que
// produz mais de 5 colunas; senão devolve o último parse bem-sucedido para o
// chamador decidir.
func sniffLedgerTable(data []byte) [][]string {
	// Bytes fora de UTF-8 em qualquer linha sinalizam Latin-1; rejeitar o
	// arquivo inteiro para o chamador reler decodificado. Checar só o
	// cabeçalho deixaria passar acentos corrompidos nas células de dados.
	if !utf8.Valid(data) {
		return nil
	}
	var lastGood [][]string
	for _, delim := range ledgerDelimiters {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}
		if len(records[0]) > 5 {
			return records
		}
		lastGood = records
	}
	return lastGood
}

// classifyLedgerRecord applies the bucket rules over the status and
// operation-direction text. Records matching none of the statuses carry no
// bucket.
func classifyLedgerRecord(situacao, tipo string) (domain.BucketKind, bool) {
	situacaoUpper := strings.ToUpper(situacao)
	tipoUpper := strings.ToUpper(tipo)
	switch {
	case strings.Contains(situacaoUpper, "AUTORIZADA"):
		if strings.Contains(tipoUpper, "SAIDA") || strings.Contains(tipoUpper, "SAÍDA") {
			return domain.BucketAuthorizedOutbound, true
		}
		return domain.BucketOtherInbound, true
	case strings.Contains(situacaoUpper, "CANCELADA"):
		return domain.BucketCancelled, true
	case strings.Contains(situacaoUpper, "DENEGADA"):
		return domain.BucketDenied, true
	default:
		return "", false
	}
}

// parseLedgerAmount normaliza um valor monetário em formato brasileiro:
// remove o símbolo de moeda e os pontos de milhar, troca a vírgula decimal
// por ponto. Falha de parse vale 0, nunca erro.
func parseLedgerAmount(raw string) float64 {
	s := strings.ReplaceAll(raw, "R$", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
