package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/cubecart/core/internal/apperr"
	"github.com/cubecart/core/internal/logger"
)

// respondError writes the failure kind and message with the status the
// kind maps to. Internal causes are logged, never returned to clients.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindProvider {
		log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{
		"error": string(kind),
		"msg":   apperr.Message(err),
	})
}
