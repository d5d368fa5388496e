package api

import (
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/service/promo"
	"github.com/gin-gonic/gin"
)

type PromoHandler struct {
	service promo.PromoUseCase
}

type quoteQuery struct {
	Amount     int64 `form:"amount" binding:"gte=0"`
	Passengers int   `form:"passengers" binding:"gte=0"`
}

func NewPromoHandler(service promo.PromoUseCase) *PromoHandler {
	return &PromoHandler{service: service}
}

func (h *PromoHandler) Register(router *gin.RouterGroup) {
	router.GET("/:code/quote", h.quote)
}

func (h *PromoHandler) quote(c *gin.Context) {
	var q quoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Passengers == 0 {
		q.Passengers = 1
	}
	quote, err := h.service.Quote(c.Request.Context(), c.Param("code"), q.Amount, q.Passengers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
