package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(h *Handler, corsOrigin string, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = multipartMemory
	r.Use(gin.Recovery(), requestLogger(log), cors(corsOrigin))
	SetupRoutes(r, h)
	return r
}

func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)
	r.GET("/download/:jobId/:filename", h.Download)

	r.POST("/merge-pdf", h.Merge)
	r.POST("/split-pdf", h.Split)
	r.POST("/compress-pdf", h.Compress)
	r.POST("/pdf-to-word", h.PDFToWord)
	r.POST("/word-to-pdf", h.officeRoute("Word", ".docx", ".doc", ".odt", ".rtf"))
	r.POST("/pdf-to-pptx", h.PDFToPPTX)
	r.POST("/pptx-to-pdf", h.officeRoute("PowerPoint", ".pptx", ".ppt", ".odp"))
	r.POST("/pdf-to-excel", h.PDFToExcel)
	r.POST("/excel-to-pdf", h.officeRoute("Excel", ".xlsx", ".xls", ".ods"))
	r.POST("/jpg-to-pdf", h.JPGToPDF)
	r.POST("/pdf-to-jpg", h.PDFToJPG)
	r.POST("/rotate-pdf", h.Rotate)
	r.POST("/unlock-pdf", h.Unlock)
	r.POST("/protect-pdf", h.Protect)
	r.POST("/organize-pdf", h.Organize)
	r.POST("/watermark-pdf", h.Watermark)
	r.POST("/remove-pages", h.RemovePages)
}
