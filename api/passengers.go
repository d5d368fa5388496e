package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/passengers"
	"github.com/gin-gonic/gin"
)

type PassengerHandler struct {
	service passengers.PassengerUseCase
}

type assignSeatRequest struct {
	SeatID int64 `json:"seat_id" binding:"required,gt=0"`
}

func NewPassengerHandler(service passengers.PassengerUseCase) *PassengerHandler {
	return &PassengerHandler{service: service}
}

func (h *PassengerHandler) Register(router *gin.RouterGroup) {
	router.PUT("/:id/seat", h.assignSeat)
	router.DELETE("/:id/seat", h.releaseSeat)
	router.POST("/:id/check-in", h.checkIn)
	router.POST("/:id/board", h.board)
}

func (h *PassengerHandler) assignSeat(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assignSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.AssignSeat(c.Request.Context(), id, req.SeatID)
	if errors.Is(err, domain.ErrSeatUnavailable) && p != nil {
		// The old seat is gone either way; tell the caller.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "passenger": p})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PassengerHandler) releaseSeat(c *gin.Context) {
	h.run(c, h.service.ReleaseSeat)
}

func (h *PassengerHandler) checkIn(c *gin.Context) {
	h.run(c, h.service.CheckIn)
}

func (h *PassengerHandler) board(c *gin.Context) {
	h.run(c, h.service.Board)
}

func (h *PassengerHandler) run(c *gin.Context, op func(ctx context.Context, passengerID int64) (*domain.PassengerRecord, error)) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := op(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
