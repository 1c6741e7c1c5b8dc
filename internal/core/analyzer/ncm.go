package analyzer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"nfe-analyzer-service/internal/domain"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// NCMTable maps a normalized 8-digit NCM code to its raw classification
// label. Later entries overwrite earlier ones for the same code.
type NCMTable map[string]string

// ncmCodeLength is the fixed length of an NCM code.
const ncmCodeLength = 8

// minPlausibleRows: com o deslocamento de cabeçalho assumido, menos linhas do
// que isso indica que o cabeçalho estava na primeira linha.
const minPlausibleRows = 10

// Classify resolve um código NCM para sua classificação tributária.
// Códigos vazios ou ausentes da tabela são "Indefinido"; rótulos que não
// contêm nenhuma das palavras-chave são devolvidos como estão.
func (t NCMTable) Classify(ncm string) string {
	if strings.TrimSpace(ncm) == "" {
		return domain.ClassIndefinido
	}
	code := zeroPadNCM(stripNCMSeparators(ncm))
	label, ok := t[code]
	if !ok {
		return domain.ClassIndefinido
	}
	switch {
	case isMonofasico(label):
		return domain.ClassMonofasico
	case isTributado(label):
		return domain.ClassTributado
	default:
		return label
	}
}

// LoadNCMTable parses the classification reference table from the first
// sheet of an Excel workbook. The header row position and the column names
// vary across uploads, so the load first assumes the header sits on the
// second row and falls back to the first when too few data rows come out.
func (s *service) LoadNCMTable(sess *Session, file io.Reader, filename string) (domain.NCMLoadResult, error) {
	rows, err := loadWorkbookRows(file)
	if err != nil {
		return domain.NCMLoadResult{}, fmt.Errorf("falha ao abrir a planilha de NCMs: %w", err)
	}

	headerIdx := 1
	if len(rows) <= headerIdx || len(rows)-headerIdx-1 < minPlausibleRows {
		headerIdx = 0
	}
	if len(rows) <= headerIdx {
		return domain.NCMLoadResult{}, &domain.MissingColumnsError{File: filename, Columns: []string{"NCM", "classificação"}}
	}

	header := rows[headerIdx]
	idxNCM := columnResolver{rules: []columnRule{{all: []string{"NCM"}}}, fallback: -1}.resolve(header)
	idxClass := columnResolver{rules: []columnRule{{anyOf: []string{"MONOFASICO", "PIS", "COFINS"}}}, fallback: -1}.resolve(header)
	if idxNCM < 0 || idxClass < 0 {
		// Colunas não identificáveis pelo nome: posições fixas.
		idxNCM, idxClass = 0, 4
	}

	var result domain.NCMLoadResult
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		rawCode := cellAt(row, idxNCM)
		rawLabel := cellAt(row, idxClass)
		if strings.TrimSpace(rawCode) == "" || strings.TrimSpace(rawLabel) == "" {
			result.Skipped++
			sess.addDiagnostic("ncm", i+1, "linha sem código ou classificação")
			continue
		}

		code := zeroPadNCM(normalizeNCMCell(rawCode))
		label := strings.TrimSpace(rawLabel)
		sess.NCM[code] = label

		switch {
		case isMonofasico(label):
			result.Monofasico++
		case isTributado(label):
			result.Tributado++
		}
	}

	result.Entries = len(sess.NCM)
	return result, nil
}

// loadWorkbookRows lê a primeira planilha de um arquivo .xlsx (excelize) ou,
// em último caso, .xls legado (xlsReader).
func loadWorkbookRows(file io.Reader) ([][]string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	reader := bytes.NewReader(data)

	f, err := excelize.OpenReader(reader)
	if err == nil {
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("a planilha não contém abas")
		}
		return f.GetRows(sheets[0])
	}

	reader.Seek(0, io.SeekStart)
	workbook, err := xls.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("unsupported workbook file format")
	}
	if len(workbook.GetSheets()) == 0 {
		return nil, fmt.Errorf("o arquivo .xls não contém planilhas")
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter planilha do arquivo .xls: %w", err)
	}
	var allRows [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		allRows = append(allRows, cells)
	}
	return allRows, nil
}

func cellAt(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

// normalizeNCMCell handles numeric cells (possibly rendered with a decimal
// part) by coercing to an integer, and text cells by stripping separators.
func normalizeNCMCell(raw string) string {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return stripNCMSeparators(s)
}

func stripNCMSeparators(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.TrimSpace(s)
}

func zeroPadNCM(code string) string {
	if len(code) >= ncmCodeLength {
		return code
	}
	return strings.Repeat("0", ncmCodeLength-len(code)) + code
}

func isMonofasico(label string) bool {
	lower := strings.ToLower(label)
	return strings.Contains(lower, "monofasico") || strings.Contains(lower, "monofásico")
}

func isTributado(label string) bool {
	return strings.Contains(strings.ToLower(label), "tributado")
}
