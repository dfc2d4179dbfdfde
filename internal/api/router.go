package api

import (
	"net/http"

	"lender-exports-pipeline/internal/api/handler"
	"lender-exports-pipeline/pkg/router"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "lender-exports-pipeline/docs"
)

func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/exports", handler.CreateExport)
	r.GET("/api/v1/exports", handler.ListExports)
	// More specific routes first
	r.GET("/api/v1/exports/*/errors", handler.GetExportErrors)
	r.GET("/api/v1/exports/*/logs", handler.GetExportLogs)
	r.GET("/api/v1/exports/*/progress", handler.GetExportProgress)
	r.GET("/api/v1/exports/*/files", handler.GetExportFiles)
	r.POST("/api/v1/exports/*/merge", handler.MergeExport)
	// Generic export route last
	r.GET("/api/v1/exports/*", handler.GetExport)
	r.DELETE("/api/v1/exports/*", handler.DeleteExport)

	r.GET("/api/v1/lenders", handler.ListLenders)
	r.GET("/api/v1/download/*", handler.DownloadFile)

	r.GET("/swagger/*", func(w http.ResponseWriter, req *http.Request) {
		httpSwagger.WrapHandler(w, req)
	})
}
