package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizeHeader prepara um cabeçalho para comparação: maiúsculas, sem
// acentos e sem espaços.
func normalizeHeader(str string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	result, _, _ := transform.String(t, str)
	result = strings.ToUpper(result)
	return strings.ReplaceAll(result, " ", "")
}

// columnRule matches a header when it contains every term in all and, if
// anyOf is set, at least one of those terms. Terms are compared against the
// normalized header.
type columnRule struct {
	all   []string
	anyOf []string
}

func (r columnRule) matches(normalized string) bool {
	for _, term := range r.all {
		if !strings.Contains(normalized, term) {
			return false
		}
	}
	if len(r.anyOf) == 0 {
		return true
	}
	for _, term := range r.anyOf {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// columnResolver resolves a column index from a header row by trying its
// rules in order; the first header matching any rule wins. When no header
// matches, fallback is used (negative means "not found").
type columnResolver struct {
	rules    []columnRule
	fallback int
}

func (cr columnResolver) resolve(header []string) int {
	for i, h := range header {
		normalized := normalizeHeader(h)
		if normalized == "" {
			continue
		}
		for _, rule := range cr.rules {
			if rule.matches(normalized) {
				return i
			}
		}
	}
	return cr.fallback
}

// resolveDistinct resolves each resolver against the header, never assigning
// the same column to two roles; earlier resolvers have priority. The ledger
// header has overlapping keywords (e.g. "VALOR" inside other columns), so a
// column claimed by one role must not be reused.
func resolveDistinct(header []string, resolvers []columnResolver) []int {
	claimed := make(map[int]bool)
	out := make([]int, len(resolvers))
	for i := range out {
		out[i] = -1
	}
	for ri, cr := range resolvers {
		for hi, h := range header {
			if claimed[hi] {
				continue
			}
			normalized := normalizeHeader(h)
			if normalized == "" {
				continue
			}
			matched := false
			for _, rule := range cr.rules {
				if rule.matches(normalized) {
					matched = true
					break
				}
			}
			if matched {
				out[ri] = hi
				claimed[hi] = true
				break
			}
		}
		if out[ri] == -1 {
			out[ri] = cr.fallback
		}
	}
	return out
}
