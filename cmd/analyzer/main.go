// cmd/analyzer/main.go
package main

import (
	"nfe-analyzer-service/internal/api/handlers"
	"nfe-analyzer-service/internal/api/responses"
	"nfe-analyzer-service/internal/config"
	"nfe-analyzer-service/internal/core/analyzer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	responses.InitLogger(cfg.LogLevel)
	logger := responses.Logger()

	gin.SetMode(cfg.GinMode)

	analyzerService := analyzer.NewService()
	sessions := analyzer.NewSessionStore()
	analyzerHandler := handlers.NewAnalyzerHandler(analyzerService, sessions)

	router := gin.Default()

	apiV1 := router.Group("/api/v1")
	{
		// Sem Middleware -- Gateway lida com isso
		apiV1.POST("/nfe/ncm", analyzerHandler.HandleLoadNCM)
		apiV1.POST("/nfe/sefaz", analyzerHandler.HandleLoadSefaz)
		apiV1.POST("/nfe/xmls", analyzerHandler.HandleLoadXMLs)
		apiV1.POST("/nfe/analyze", analyzerHandler.HandleAnalyze)
		apiV1.GET("/nfe/report", analyzerHandler.HandleExportReport)
		apiV1.DELETE("/nfe/session", analyzerHandler.HandleEndSession)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "service": "nfe-analyzer-service"})
	})

	logger.Info("NFe Analyzer Service iniciado", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("falha ao iniciar o servidor de análise", zap.Error(err))
	}
}
