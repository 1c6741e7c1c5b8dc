package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nfe-analyzer-service/internal/core/analyzer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testKey = "11111111111111111111111111111111111111111111"

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAnalyzerHandler(analyzer.NewService(), analyzer.NewSessionStore())

	router := gin.New()
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/nfe/ncm", handler.HandleLoadNCM)
		apiV1.POST("/nfe/sefaz", handler.HandleLoadSefaz)
		apiV1.POST("/nfe/xmls", handler.HandleLoadXMLs)
		apiV1.POST("/nfe/analyze", handler.HandleAnalyze)
		apiV1.GET("/nfe/report", handler.HandleExportReport)
		apiV1.DELETE("/nfe/session", handler.HandleEndSession)
	}
	return router
}

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func ncmFixture(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"NCM", "", "", "", "Classificação PIS/COFINS"},
		{"30049099", "", "", "", "Monofásico (Lei 10.147)"},
	}
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	buffer, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buffer.Bytes()
}

func sefazFixture() []byte {
	return []byte(strings.Join([]string{
		"Chave de Acesso;Situação;Tipo Operação;Valor;Col5;Col6",
		testKey + ";Autorizada;Saída;100,00;x;y",
	}, "\n"))
}

func xmlFixture() []byte {
	return []byte(`<?xml version="1.0"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe><infNFe Id="NFe` + testKey + `">
<det><prod><NCM>30049099</NCM><xProd>Remédio</xProd><vProd>60.00</vProd></prod></det>
<det><prod><NCM>99999999</NCM><xProd>Outro</xProd><vProd>40.00</vProd></prod></det>
</infNFe></NFe></nfeProc>`)
}

func post(router *gin.Engine, path, sessionID string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestFullAnalysisFlow(t *testing.T) {
	router := setupRouter()

	body, contentType := multipartFile(t, "ncmFile", "base.xlsx", ncmFixture(t))
	resp := post(router, "/api/v1/nfe/ncm", "", body, contentType)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	sessionID := resp.Header().Get(sessionHeader)
	require.NotEmpty(t, sessionID)

	body, contentType = multipartFile(t, "sefazFile", "sefaz.csv", sefazFixture())
	resp = post(router, "/api/v1/nfe/sefaz", sessionID, body, contentType)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body, contentType = multipartFile(t, "xmlFiles", "nota.xml", xmlFixture())
	resp = post(router, "/api/v1/nfe/xmls", sessionID, body, contentType)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = post(router, "/api/v1/nfe/analyze", sessionID, bytes.NewBuffer(nil), "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var envelope struct {
		Status string `json:"status"`
		Data   struct {
			Items []struct {
				Classification   string  `json:"classificacao"`
				ApportionedValue float64 `json:"valor_produto_proporcional"`
			} `json:"items"`
			Summary []struct {
				Category   string  `json:"categoria"`
				Percentage float64 `json:"percentual"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "success", envelope.Status)
	require.Len(t, envelope.Data.Items, 2)
	for _, item := range envelope.Data.Items {
		assert.InDelta(t, 50.0, item.ApportionedValue, 1e-6)
	}
	assert.Equal(t, "Monofásico", envelope.Data.Items[0].Classification)
	assert.Equal(t, "Indefinido", envelope.Data.Items[1].Classification)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nfe/report", nil)
	req.Header.Set(sessionHeader, sessionID)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "analise_detalhada_nfe_")

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/nfe/session", nil)
	req.Header.Set(sessionHeader, sessionID)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestAnalyzeWithoutLoadedBases(t *testing.T) {
	router := setupRouter()
	resp := post(router, "/api/v1/nfe/analyze", "sessao-vazia", bytes.NewBuffer(nil), "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Carregue a base NCM")
}

func TestLoadSefazMissingFile(t *testing.T) {
	router := setupRouter()
	resp := post(router, "/api/v1/nfe/sefaz", "", bytes.NewBuffer(nil), "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLoadSefazStructuralError(t *testing.T) {
	router := setupRouter()
	broken := []byte("Chave de Acesso;A;B;C;D;E\n" + testKey + ";a;b;c;d;e")
	body, contentType := multipartFile(t, "sefazFile", "sefaz.csv", broken)
	resp := post(router, "/api/v1/nfe/sefaz", "", body, contentType)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "Situação")
}
