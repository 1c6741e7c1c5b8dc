package analyzer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreGetOrCreate(t *testing.T) {
	store := NewSessionStore()

	first := store.GetOrCreate("cliente-1")
	again := store.GetOrCreate("cliente-1")
	assert.Same(t, first, again)

	other := store.GetOrCreate("cliente-2")
	assert.NotSame(t, first, other)

	anonymous := store.GetOrCreate("")
	require.NotEmpty(t, anonymous.ID)
	assert.NotSame(t, first, anonymous)
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore()
	sess := store.GetOrCreate("efemera")
	sess.NCM["12345678"] = "Tributado"

	store.Delete("efemera")
	recreated := store.GetOrCreate("efemera")
	assert.Empty(t, recreated.NCM, "sessão descartada não preserva estado")
}

func TestStoreInvoiceXMLsLastWriteWins(t *testing.T) {
	key := strings.Repeat("6", 44)
	first := nfeDocument(key, detItem("11111111", "v1", "1", "1", "10.0", "UN", "5102"))
	second := nfeDocument(key, detItem("22222222", "v2", "1", "1", "20.0", "UN", "5102"))

	sess := NewSession("t")
	svc := &service{}
	stored := svc.StoreInvoiceXMLs(sess, []io.Reader{
		strings.NewReader(first),
		strings.NewReader(second),
	})

	assert.Equal(t, 2, stored)
	require.Len(t, sess.Docs, 1)
	assert.Contains(t, string(sess.Docs[key]), "22222222")
}
