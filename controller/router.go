package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with CORS, the health check and the API
// routes.
func NewRouter(legal *LegalController) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Legal RAG API",
			"version": "1.0.0",
		})
	})

	legal.Register(router)
	return router
}
