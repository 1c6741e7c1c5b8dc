package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"nfe-analyzer-service/internal/api/responses"
	"nfe-analyzer-service/internal/core/analyzer"
	"nfe-analyzer-service/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sessionHeader carrega o identificador da sessão de análise do cliente.
const sessionHeader = "X-Session-ID"

// progressLogInterval controla de quantos em quantos registros o progresso da
// reconciliação é logado.
const progressLogInterval = 500

// AnalyzerHandler lida com as requisições da API de análise de NFe.
type AnalyzerHandler struct {
	service  analyzer.Service
	sessions *analyzer.SessionStore
}

// NewAnalyzerHandler cria um novo handler de análise.
func NewAnalyzerHandler(service analyzer.Service, sessions *analyzer.SessionStore) *AnalyzerHandler {
	return &AnalyzerHandler{
		service:  service,
		sessions: sessions,
	}
}

// session resolve a sessão da requisição e ecoa o ID na resposta para que o
// cliente continue a mesma interação nas próximas chamadas.
func (h *AnalyzerHandler) session(c *gin.Context) *analyzer.Session {
	sess := h.sessions.GetOrCreate(c.GetHeader(sessionHeader))
	c.Header(sessionHeader, sess.ID)
	return sess
}

// HandleLoadNCM recebe a planilha da base NCM e carrega a tabela de
// classificação na sessão.
func (h *AnalyzerHandler) HandleLoadNCM(c *gin.Context) {
	fileHeader, err := c.FormFile("ncmFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo da base NCM (.xls, .xlsx) não encontrado ou inválido")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo da base NCM")
		return
	}
	defer file.Close()

	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	result, err := h.service.LoadNCMTable(sess, file, fileHeader.Filename)
	if err != nil {
		var missing *domain.MissingColumnsError
		if errors.As(err, &missing) {
			responses.Error(c, http.StatusUnprocessableEntity, "Erro ao carregar a base NCM", missing.Error())
			return
		}
		responses.Error(c, http.StatusInternalServerError, "Erro ao carregar a base NCM", err.Error())
		return
	}

	responses.Success(c, result, fmt.Sprintf("%d NCMs carregados", result.Entries))
}

// HandleLoadSefaz recebe o arquivo de notas da SEFAZ e classifica cada
// registro em seu balde.
func (h *AnalyzerHandler) HandleLoadSefaz(c *gin.Context) {
	fileHeader, err := c.FormFile("sefazFile")
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo SEFAZ (.csv) não encontrado ou inválido")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo SEFAZ")
		return
	}
	defer file.Close()

	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	result, err := h.service.LoadSefazLedger(sess, file)
	if err != nil {
		var missing *domain.MissingColumnsError
		if errors.As(err, &missing) {
			responses.Error(c, http.StatusUnprocessableEntity, "Colunas essenciais não encontradas no arquivo SEFAZ", missing.Error())
			return
		}
		responses.Error(c, http.StatusInternalServerError, "Erro ao carregar o arquivo SEFAZ", err.Error())
		return
	}

	authorized := result.Buckets[domain.BucketAuthorizedOutbound]
	responses.Success(c, result, fmt.Sprintf("%d notas autorizadas de saída carregadas", authorized.Count))
}

// HandleLoadXMLs recebe um ou mais XMLs de NFe e os armazena por chave de
// acesso.
func (h *AnalyzerHandler) HandleLoadXMLs(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Requisição multipart inválida")
		return
	}
	fileHeaders := form.File["xmlFiles"]
	if len(fileHeaders) == 0 {
		responses.Error(c, http.StatusBadRequest, "Nenhum arquivo XML foi enviado")
		return
	}

	var readers []io.Reader
	var closers []io.Closer
	defer func() {
		for _, closer := range closers {
			closer.Close()
		}
	}()
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir um dos arquivos XML")
			return
		}
		readers = append(readers, file)
		closers = append(closers, file)
	}

	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	stored := h.service.StoreInvoiceXMLs(sess, readers)
	responses.Success(c, gin.H{"stored": stored, "received": len(fileHeaders)}, fmt.Sprintf("%d XMLs processados", stored))
}

// HandleAnalyze executa a reconciliação sobre as três bases carregadas e
// devolve os itens reconciliados, as notas sem XML e o resumo por
// classificação.
func (h *AnalyzerHandler) HandleAnalyze(c *gin.Context) {
	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	switch {
	case len(sess.NCM) == 0:
		responses.Error(c, http.StatusBadRequest, "Carregue a base NCM primeiro")
		return
	case len(sess.Buckets[domain.BucketAuthorizedOutbound]) == 0:
		responses.Error(c, http.StatusBadRequest, "Carregue a base SEFAZ primeiro")
		return
	case len(sess.Docs) == 0:
		responses.Error(c, http.StatusBadRequest, "Carregue os XMLs primeiro")
		return
	}

	logger := responses.Logger()
	result := h.service.Reconcile(sess, func(processed, total int) {
		if processed%progressLogInterval == 0 || processed == total {
			logger.Info("reconciliação em andamento",
				zap.String("session", sess.ID),
				zap.Int("processed", processed),
				zap.Int("total", total))
		}
	})
	summary := h.service.Summary(sess)

	responses.Success(c, gin.H{
		"items":       result.Items,
		"unmatched":   result.Unmatched,
		"summary":     summary,
		"processed":   result.Processed,
		"dropped":     result.Dropped,
		"diagnostics": sess.Diagnostics,
	}, fmt.Sprintf("Análise concluída: %d produtos processados", len(result.Items)))
}

// HandleExportReport gera e devolve a planilha detalhada da última análise.
func (h *AnalyzerHandler) HandleExportReport(c *gin.Context) {
	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	output, err := h.service.ExportExcel(sess)
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Não há análise processada para exportar", err.Error())
		return
	}

	fileName := fmt.Sprintf("analise_detalhada_nfe_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", output)
}

// HandleEndSession descarta todo o estado da sessão.
func (h *AnalyzerHandler) HandleEndSession(c *gin.Context) {
	id := c.GetHeader(sessionHeader)
	if id == "" {
		responses.Error(c, http.StatusBadRequest, "Cabeçalho X-Session-ID ausente")
		return
	}
	h.sessions.Delete(id)
	responses.Success(c, nil, "Sessão encerrada")
}
