package analyzer

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"nfe-analyzer-service/internal/domain"

	"golang.org/x/text/encoding/charmap"
)

// xmlNode is one element of a namespace-agnostic document tree. Matching is
// always by the unqualified local name, regardless of namespace prefix.
type xmlNode struct {
	local    string
	attrs    []xml.Attr
	text     string
	children []*xmlNode
}

// decodeXMLTree parses an XML document permissively: latin-1 declared
// encodings are decoded, invalid byte sequences are replaced on a retry, and
// any parse failure yields a nil tree instead of an error.
func decodeXMLTree(content []byte) *xmlNode {
	if root := parseXMLTokens(content); root != nil {
		return root
	}
	return parseXMLTokens(bytes.ToValidUTF8(content, nil))
}

func parseXMLTokens(content []byte) *xmlNode {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	}

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{local: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if len(stack) != 0 {
		return nil
	}
	return root
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// walk visits the tree in document order until fn returns true.
func (n *xmlNode) walk(fn func(*xmlNode) bool) bool {
	if fn(n) {
		return true
	}
	for _, child := range n.children {
		if child.walk(fn) {
			return true
		}
	}
	return false
}

// find returns the first node (self included) with the given local name.
func (n *xmlNode) find(local string) *xmlNode {
	var found *xmlNode
	n.walk(func(node *xmlNode) bool {
		if node.local == local {
			found = node
			return true
		}
		return false
	})
	return found
}

func (n *xmlNode) findText(local string) string {
	if node := n.find(local); node != nil {
		return strings.TrimSpace(node.text)
	}
	return ""
}

func (n *xmlNode) findFloat(local string) float64 {
	text := n.findText(local)
	if text == "" {
		return 0
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return f
}

// extractInvoiceKey localiza a chave de acesso de um documento NFe: primeiro
// o atributo Id do elemento infNFe (com ou sem o prefixo "NFe"), depois o
// texto do elemento chNFe. Documento malformado ou sem chave usável devolve
// ok=false.
func extractInvoiceKey(content []byte) (string, bool) {
	root := decodeXMLTree(content)
	if root == nil {
		return "", false
	}

	var key string
	root.walk(func(node *xmlNode) bool {
		if node.local != "infNFe" {
			return false
		}
		id := node.attr("Id")
		if strings.HasPrefix(id, "NFe") {
			key = digitsOnly(strings.TrimPrefix(id, "NFe"))
			return true
		}
		if len(id) == invoiceKeyLength {
			key = digitsOnly(id)
			return true
		}
		return false
	})
	if key == "" {
		if chNFe := root.find("chNFe"); chNFe != nil {
			key = digitsOnly(strings.TrimSpace(chNFe.text))
		}
	}
	return key, len(key) == invoiceKeyLength
}

// extractProducts pulls every retained line item out of an invoice document:
// one element per "det" that carries a "prod" subtree with an NCM code and a
// strictly positive declared value. Classification is resolved against the
// session's NCM table at extraction time.
func extractProducts(content []byte, table NCMTable) []domain.ExtractedProduct {
	root := decodeXMLTree(content)
	if root == nil {
		return nil
	}

	var products []domain.ExtractedProduct
	root.walk(func(node *xmlNode) bool {
		if node.local != "det" {
			return false
		}
		prod := node.find("prod")
		if prod == nil {
			return false
		}

		ncm := prod.findText("NCM")
		declaredValue := prod.findFloat("vProd")
		if ncm == "" || declaredValue <= 0 {
			return false
		}

		description := prod.findText("xProd")
		if description == "" {
			description = "Produto sem descrição"
		}
		unit := prod.findText("uCom")
		if unit == "" {
			unit = "UN"
		}

		products = append(products, domain.ExtractedProduct{
			NCM:            ncm,
			Description:    description,
			Classification: table.Classify(ncm),
			Quantity:       prod.findFloat("qCom"),
			UnitValue:      prod.findFloat("vUnCom"),
			DeclaredValue:  declaredValue,
			Unit:           unit,
			CFOP:           prod.findText("CFOP"),
		})
		return false
	})
	return products
}

// StoreInvoiceXMLs lê cada documento enviado, extrai sua chave e o armazena
// na sessão. Documentos sem chave usável são registrados como diagnóstico e
// descartados; a mesma chave enviada duas vezes fica com o último conteúdo.
func (s *service) StoreInvoiceXMLs(sess *Session, files []io.Reader) int {
	stored := 0
	for i, file := range files {
		content, err := io.ReadAll(file)
		if err != nil {
			sess.addDiagnostic("xml", i+1, "falha ao ler o arquivo")
			continue
		}
		key, ok := extractInvoiceKey(content)
		if !ok {
			sess.addDiagnostic("xml", i+1, "chave de acesso não encontrada no documento")
			continue
		}
		sess.Docs[key] = content
		stored++
	}
	return stored
}
