package analyzer

import (
	"fmt"

	"nfe-analyzer-service/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	detailSheet  = "Análise Detalhada"
	summarySheet = "Resumo"
)

var detailHeader = []string{
	"Nome do Produto", "Valor Total", "NCM", "Classificação", "Quantidade",
	"Valor Unitário", "Nota Fiscal", "CFOP", "Unidade", "Observações",
}

// ExportExcel monta a planilha detalhada com a aba de resumo, no mesmo
// formato do relatório original: cabeçalho destacado, valores em R$ e
// larguras fixas por coluna.
func (s *service) ExportExcel(sess *Session) ([]byte, error) {
	if len(sess.Items) == 0 {
		return nil, fmt.Errorf("nenhum resultado de análise para exportar")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := buildDetailSheet(f, sess); err != nil {
		return nil, fmt.Errorf("falha ao montar a planilha detalhada: %w", err)
	}
	if err := buildSummarySheet(f, s.Summary(sess)); err != nil {
		return nil, fmt.Errorf("falha ao montar a planilha de resumo: %w", err)
	}

	// Planilha padrão criada pelo excelize não faz parte do relatório.
	f.DeleteSheet("Sheet1")
	index, err := f.GetSheetIndex(detailSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("falha ao gerar o arquivo Excel: %w", err)
	}
	return buffer.Bytes(), nil
}

func buildDetailSheet(f *excelize.File, sess *Session) error {
	if _, err := f.NewSheet(detailSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder(),
	})
	if err != nil {
		return err
	}
	moneyFormat := "R$ #,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat, Border: thinBorder()})
	if err != nil {
		return err
	}

	for col, title := range detailHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(detailSheet, cell, title); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(detailSheet, "A1", "J1", headerStyle); err != nil {
		return err
	}

	for i, item := range sess.Items {
		row := i + 2
		values := []interface{}{
			item.Description,
			item.ApportionedValue,
			item.NCM,
			item.Classification,
			item.Quantity,
			item.UnitValue,
			"NFe_" + item.InvoiceKey,
			item.CFOP,
			item.Unit,
			fmt.Sprintf("Encontrado na base oficial - %s", item.StatusLabel),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(detailSheet, cell, value); err != nil {
				return err
			}
		}
		moneyCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(detailSheet, moneyCell, moneyCell, moneyStyle); err != nil {
			return err
		}
	}

	widths := map[string]float64{
		"A": 50, "B": 15, "C": 10, "D": 15, "E": 12,
		"F": 15, "G": 45, "H": 8, "I": 10, "J": 40,
	}
	for col, width := range widths {
		if err := f.SetColWidth(detailSheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func buildSummarySheet(f *excelize.File, rows []domain.SummaryRow) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	header := []string{"Categoria", "Quantidade", "Valor Total", "Percentual"}
	for col, title := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(summarySheet, cell, title); err != nil {
			return err
		}
	}

	for i, row := range rows {
		values := []interface{}{row.Category, row.Count, row.TotalValue, row.Percentage}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func thinBorder() []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	borders := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		borders = append(borders, excelize.Border{Type: side, Style: 1, Color: "000000"})
	}
	return borders
}
