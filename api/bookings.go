package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// ActorHeader carries the id of the user acting on a booking.
const ActorHeader = "X-Actor-ID"

type BookingHandler struct {
	service booking.BookingUseCase
}

type passengerRequest struct {
	FirstName      string     `json:"first_name" binding:"required,max=100"`
	LastName       string     `json:"last_name" binding:"required,max=100"`
	Email          string     `json:"email" binding:"omitempty,email"`
	Phone          string     `json:"phone" binding:"max=32"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	PassengerType  string     `json:"passenger_type" binding:"required,passenger_type"`
	DocumentType   string     `json:"document_type"`
	DocumentNumber string     `json:"document_number"`
	Nationality    string     `json:"nationality" binding:"omitempty,len=2"`
	SeatID         *int64     `json:"seat_id" binding:"omitempty,gt=0"`
}

type createBookingRequest struct {
	FlightClassID int64              `json:"flight_class_id" binding:"required,gt=0"`
	ContactEmail  string             `json:"contact_email" binding:"required,email"`
	PromoCode     string             `json:"promo_code" binding:"max=50"`
	Passengers    []passengerRequest `json:"passengers" binding:"required,min=1,max=9,dive"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type paymentRequest struct {
	Status string `json:"status" binding:"required,oneof=paid failed"`
}

type bookingResponse struct {
	TransactionCode    string                   `json:"transaction_code"`
	BookingStatus      string                   `json:"booking_status"`
	PaymentStatus      string                   `json:"payment_status"`
	FlightID           int64                    `json:"flight_id"`
	FlightClassID      int64                    `json:"flight_class_id"`
	ContactEmail       string                   `json:"contact_email"`
	TotalAmount        int64                    `json:"total_amount"`
	DiscountAmount     int64                    `json:"discount_amount"`
	FinalAmount        int64                    `json:"final_amount"`
	CancellationReason string                   `json:"cancellation_reason,omitempty"`
	CancelledAt        string                   `json:"cancelled_at,omitempty"`
	CreatedAt          string                   `json:"created_at"`
	Passengers         []domain.PassengerRecord `json:"passengers"`
}

func newBookingResponse(b *domain.BookingTransaction) bookingResponse {
	resp := bookingResponse{
		TransactionCode:    b.TransactionCode,
		BookingStatus:      string(b.BookingStatus),
		PaymentStatus:      string(b.PaymentStatus),
		FlightID:           b.FlightID,
		FlightClassID:      b.FlightClassID,
		ContactEmail:       b.ContactEmail,
		TotalAmount:        b.TotalAmount,
		DiscountAmount:     b.DiscountAmount,
		FinalAmount:        b.FinalAmount,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		Passengers:         b.Passengers,
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.Format(time.RFC3339)
	}
	if resp.Passengers == nil {
		resp.Passengers = []domain.PassengerRecord{}
	}
	return resp
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	registerValidators()
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:code", h.get)
	router.POST("/:code/cancel", h.cancel)
	router.POST("/:code/payment", h.payment)
	router.POST("/:code/complete", h.complete)
	router.POST("/:code/refund", h.refund)
	router.DELETE("/:code", h.delete)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := booking.CreateBookingInput{
		FlightClassID: req.FlightClassID,
		ContactEmail:  req.ContactEmail,
		PromoCode:     req.PromoCode,
		Passengers:    make([]booking.PassengerInput, 0, len(req.Passengers)),
	}
	for _, p := range req.Passengers {
		input.Passengers = append(input.Passengers, booking.PassengerInput{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			Email:          p.Email,
			Phone:          p.Phone,
			DateOfBirth:    p.DateOfBirth,
			PassengerType:  domain.PassengerType(p.PassengerType),
			DocumentType:   p.DocumentType,
			DocumentNumber: p.DocumentNumber,
			Nationality:    p.Nationality,
			SeatID:         p.SeatID,
		})
	}

	b, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	actorID, err := strconv.ParseInt(c.GetHeader(ActorHeader), 10, 64)
	if err != nil || actorID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": ActorHeader + " header is required"})
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("code"), req.Reason, actorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) payment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.service.RecordPayment(c.Request.Context(), c.Param("code"), req.Status == "paid")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) complete(c *gin.Context) {
	b, err := h.service.CompleteBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) refund(c *gin.Context) {
	b, err := h.service.RefundBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) delete(c *gin.Context) {
	if err := h.service.DeleteBooking(c.Request.Context(), c.Param("code")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
