package http

import (
	"strconv"

	"stock-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Router(ledger service.LedgerService, requests service.RequestService, jwtSecret, jwtIssuer string, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	balanceHandler := NewBalanceHandler(ledger, log)
	requestHandler := NewRequestHandler(requests, log)

	authorized := r.Group("/", AuthRequired(jwtSecret, jwtIssuer, log))
	{
		authorized.GET("/stock-balances", balanceHandler.List)
		authorized.POST("/stock-balances/move", balanceHandler.Move)
		authorized.PATCH("/stock-balances/min-stock", balanceHandler.SetMinStock)
		authorized.GET("/stock-movements", balanceHandler.Movements)

		authorized.POST("/requests", requestHandler.Create)
		authorized.GET("/requests", requestHandler.List)
		authorized.GET("/requests/:id", requestHandler.Get)
		authorized.PATCH("/requests/:id/status", requestHandler.UpdateStatus)
	}

	return r
}

func intQuery(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
