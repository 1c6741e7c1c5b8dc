package domain

import (
	"fmt"
	"strings"
)

// MissingColumnsError indica que colunas essenciais não foram encontradas em
// um arquivo tabular. É a única falha estrutural que aborta um carregamento;
// erros de linha viram Diagnostics.
type MissingColumnsError struct {
	File    string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("colunas essenciais não encontradas em %s: %s", e.File, strings.Join(e.Columns, ", "))
}
