package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/seats"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
	seats   seats.SeatUseCase
}

type provisionSeatsRequest struct {
	SeatNumbers []string `json:"seat_numbers" binding:"required,min=1,dive,required,max=8"`
}

func NewFlightHandler(service flights.FlightUseCase, seats seats.SeatUseCase) *FlightHandler {
	return &FlightHandler{service: service, seats: seats}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/classes/:classId/seats", h.listSeats)
	router.POST("/classes/:classId/seats", h.provisionSeats)
}

func (h *FlightHandler) list(c *gin.Context) {
	flights, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) listSeats(c *gin.Context) {
	classID, ok := idParam(c, "classId")
	if !ok {
		return
	}
	seatMap, err := h.seats.ListByClass(c.Request.Context(), classID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, seatMap)
}

func (h *FlightHandler) provisionSeats(c *gin.Context) {
	classID, ok := idParam(c, "classId")
	if !ok {
		return
	}
	var req provisionSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.seats.Provision(c.Request.Context(), classID, req.SeatNumbers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": created})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
