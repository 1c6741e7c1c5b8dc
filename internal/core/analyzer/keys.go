package analyzer

import "strings"

// invoiceKeyLength is the fixed length of an NFe access key.
const invoiceKeyLength = 44

// digitsOnly strips everything that is not an ASCII digit.
func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeInvoiceKey removes formatting from an invoice-key-like string and
// validates its length. The same normalization is applied to keys coming from
// the SEFAZ ledger and from XML documents, so punctuation never prevents a
// match. A key that does not normalize to exactly 44 digits is unusable.
func normalizeInvoiceKey(s string) (string, bool) {
	key := digitsOnly(s)
	return key, len(key) == invoiceKeyLength
}
