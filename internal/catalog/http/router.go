package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func RegisterRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/", routeIndex)
	router.GET("/health", handler.Health)
	router.GET("/db/health", handler.DBHealth)

	router.GET("/products", handler.ListProducts)
	router.GET("/products/with-users", handler.ListWithUsers)
	router.GET("/products/:id", handler.GetProduct)
	router.POST("/products", handler.CreateProducts)
	router.PUT("/products/:id", handler.UpdateProduct)
	router.DELETE("/products/:id", handler.DeleteProduct)
	router.PUT("/tables", handler.ResetCatalog)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// routeIndex mirrors the discovery payload the service has always served on
// its root path.
func routeIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"methods": gin.H{
			"GET": gin.H{
				"/health":              "service liveness",
				"/db/health":           "store health",
				"/products":            "list products",
				"/products/:id":        "get product by id",
				"/products/with-users": "list products with remote user count",
			},
			"POST":   gin.H{"/products": "create product(s)"},
			"PUT":    gin.H{"/products/:id": "update product", "/tables": "reset catalog"},
			"DELETE": gin.H{"/products/:id": "delete product"},
		},
	})
}
