package rate

import (
	"context"
	"errors"
	"net/http"

	"github.com/1Crazymoney/ilp-backend-crypto/backend"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Backend describes the rate backend
// operations served over HTTP
type Backend interface {
	GetRate(ctx context.Context, sourceAccount, destinationAccount string) (float64, error)
	SubmitPayment(ctx context.Context, payment backend.Payment) error
}

type Response struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Rate        float64 `json:"rate"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaymentRequest struct {
	SourceAccount      string `json:"sourceAccount"`
	SourceAmount       string `json:"sourceAmount"`
	DestinationAccount string `json:"destinationAccount"`
	DestinationAmount  string `json:"destinationAmount"`
}

func New(b Backend) *Controller {
	return &Controller{backend: b}
}

type Controller struct {
	backend Backend
}

// Rate godoc
//
//	@Summary		Exchange rate between two accounts
//	@Description	rate between minimum units of the source and destination assets, net of spread
//	@Tags			rate
//	@Produce		json
//	@Param			source		query	string	true	"Source account"		example(alice)
//	@Param			destination	query	string	true	"Destination account"	example(bob)
//	@Success		200	{object}	Response
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/rate [get]
func (c *Controller) Rate(ctx *fiber.Ctx) error {
	source := ctx.Query("source")
	destination := ctx.Query("destination")

	if source == "" || destination == "" {
		return ctx.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: "source and destination are required"})
	}

	rate, err := c.backend.GetRate(ctx.UserContext(), source, destination)
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	log.Debug().Str("source", source).Str("destination", destination).Float64("rate", rate).Msg("served rate")

	return ctx.JSON(Response{
		Source:      source,
		Destination: destination,
		Rate:        rate,
	})
}

// Payment godoc
//
//	@Summary		Report a forwarded payment
//	@Tags			rate
//	@Accept			json
//	@Param			payment	body	PaymentRequest	true	"Payment"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Router			/payments [post]
func (c *Controller) Payment(ctx *fiber.Ctx) error {
	req := PaymentRequest{}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	err := c.backend.SubmitPayment(ctx.UserContext(), backend.Payment{
		SourceAccount:      req.SourceAccount,
		SourceAmount:       req.SourceAmount,
		DestinationAccount: req.DestinationAccount,
		DestinationAmount:  req.DestinationAmount,
	})
	if err != nil {
		log.Error().Err(err).Msg("unable to submit payment")
		return ctx.Status(http.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return ctx.SendStatus(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, backend.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrUnknownAccount):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
