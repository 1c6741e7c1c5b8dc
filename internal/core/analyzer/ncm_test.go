package analyzer

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildNCMWorkbook monta um .xlsx em memória com as linhas dadas.
func buildNCMWorkbook(t *testing.T, rows [][]interface{}) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	buffer, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buffer.Bytes())
}

func TestLoadNCMTableHeaderOnFirstRow(t *testing.T) {
	// Poucas linhas com o deslocamento assumido: o loader deve reler a partir
	// da primeira linha.
	rows := [][]interface{}{
		{"NCM", "Descrição", "", "", "Classificação PIS/COFINS"},
		{"3004.90.99", "remédio", "", "", "Monofásico (Lei 10.147)"},
		{"99999999", "outro", "", "", "Tributado integral"},
	}

	sess := NewSession("t")
	svc := &service{}
	result, err := svc.LoadNCMTable(sess, buildNCMWorkbook(t, rows), "base.xlsx")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Entries)
	assert.Equal(t, 1, result.Monofasico)
	assert.Equal(t, 1, result.Tributado)
	assert.Equal(t, "Monofásico (Lei 10.147)", sess.NCM["30049099"])
	assert.Equal(t, "Tributado integral", sess.NCM["99999999"])
}

func TestLoadNCMTableHeaderOnSecondRow(t *testing.T) {
	rows := [][]interface{}{
		{"Relatório de classificação fiscal"},
		{"Código NCM", "", "", "", "Monofásico?"},
	}
	for i := 0; i < 12; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("0100%04d", i), "", "", "", "Tributado"})
	}

	sess := NewSession("t")
	svc := &service{}
	result, err := svc.LoadNCMTable(sess, buildNCMWorkbook(t, rows), "base.xlsx")
	require.NoError(t, err)

	assert.Equal(t, 12, result.Entries)
	assert.Equal(t, 12, result.Tributado)
	assert.Equal(t, "Tributado", sess.NCM["01000003"])
}

func TestLoadNCMTablePositionalFallback(t *testing.T) {
	// Nenhum cabeçalho reconhecível: primeira coluna é o código, quinta é a
	// classificação.
	rows := [][]interface{}{
		{"col_a", "col_b", "col_c", "col_d", "col_e"},
		{"30049099", "x", "y", "z", "Monofásico"},
		{"", "x", "y", "z", "Tributado"}, // sem código: pulada
		{"123", "x", "y", "z", ""},      // sem classificação: pulada
	}

	sess := NewSession("t")
	svc := &service{}
	result, err := svc.LoadNCMTable(sess, buildNCMWorkbook(t, rows), "base.xlsx")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Entries)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, "Monofásico", sess.NCM["30049099"])
}

func TestLoadNCMTableNumericCoercion(t *testing.T) {
	rows := [][]interface{}{
		{"NCM", "", "", "", "PIS/COFINS"},
		{30049099, "", "", "", "Monofásico"},
		{1234, "", "", "", "Tributado"},
	}

	sess := NewSession("t")
	svc := &service{}
	_, err := svc.LoadNCMTable(sess, buildNCMWorkbook(t, rows), "base.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "Monofásico", sess.NCM["30049099"])
	assert.Equal(t, "Tributado", sess.NCM["00001234"], "códigos curtos são completados com zeros")
}

func TestClassify(t *testing.T) {
	table := NCMTable{
		"30049099": "Monofásico (Lei 10.147)",
		"11223344": "tributado normal",
		"55667788": "Alíquota diferenciada",
	}

	tests := []struct {
		name string
		code string
		want string
	}{
		{"monofasico keyword", "30049099", "Monofásico"},
		{"punctuated code", "3004.90-99", "Monofásico"},
		{"tributado keyword case-insensitive", "11223344", "Tributado"},
		{"residual label returned verbatim", "55667788", "Alíquota diferenciada"},
		{"absent code", "99999999", "Indefinido"},
		{"empty code", "", "Indefinido"},
		{"short code zero padded to miss", "123", "Indefinido"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.code))
		})
	}
}
