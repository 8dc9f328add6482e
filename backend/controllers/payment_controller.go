package controllers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"coursegate/backend/config"
	"coursegate/backend/middleware"
	"coursegate/backend/models"
	"coursegate/backend/store"
	"coursegate/backend/utils"
)

// PaymentController records gateway outcomes. The gateway protocol itself
// lives outside this service; these endpoints only persist what it reports.
type PaymentController struct {
	Store  *store.Store
	Cfg    *config.Config
	Logger *log.Logger
}

func NewPaymentController(st *store.Store, cfg *config.Config, logger *log.Logger) *PaymentController {
	return &PaymentController{Store: st, Cfg: cfg, Logger: logger}
}

type PaymentInput struct {
	UserID   uint            `json:"user_id" validate:"required"`
	CourseID uint            `json:"course_id" validate:"required"`
	Amount   string          `json:"amount" validate:"required"`
	Currency string          `json:"currency" validate:"required,len=3"`
	Status   string          `json:"status" validate:"required,oneof=pending paid failed refunded"`
	Payload  json.RawMessage `json:"payload"`
}

// RecordPayment persists one gateway transaction (admin only). A fresh uuid
// reference identifies the transaction towards the gateway records.
func (pc *PaymentController) RecordPayment(c *fiber.Ctx) error {
	var input PaymentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}
	amount, ok := parsePrice(input.Amount)
	if !ok || amount.IsZero() {
		return utils.ValidationError(c, map[string]string{"amount": "must be a positive decimal"})
	}

	payment := models.Payment{
		UserID:         input.UserID,
		CourseID:       input.CourseID,
		Reference:      uuid.NewString(),
		Amount:         amount,
		Currency:       input.Currency,
		Status:         models.PaymentStatus(input.Status),
		GatewayPayload: datatypes.JSON(input.Payload),
	}
	if payment.Status == models.PaymentPaid {
		now := time.Now()
		payment.PaidAt = &now
	}
	if err := pc.Store.CreatePayment(&payment); err != nil {
		return serviceError(c, pc.Logger, err)
	}
	return utils.Created(c, payment)
}

type PaymentStatusInput struct {
	Status  string          `json:"status" validate:"required,oneof=pending paid failed refunded"`
	Payload json.RawMessage `json:"payload"`
}

// UpdatePaymentStatus applies a later gateway notification to an existing
// payment, addressed by its reference.
func (pc *PaymentController) UpdatePaymentStatus(c *fiber.Ctx) error {
	var input PaymentStatusInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	payment, err := pc.Store.PaymentByReference(c.Params("reference"))
	if err != nil {
		return serviceError(c, pc.Logger, err)
	}

	payment.Status = models.PaymentStatus(input.Status)
	if len(input.Payload) > 0 {
		payment.GatewayPayload = datatypes.JSON(input.Payload)
	}
	if payment.Status == models.PaymentPaid && payment.PaidAt == nil {
		now := time.Now()
		payment.PaidAt = &now
	}
	if err := pc.Store.SavePayment(payment); err != nil {
		return serviceError(c, pc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, payment)
}

// ListMine lists the requesting user's payments.
func (pc *PaymentController) ListMine(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	payments, err := pc.Store.PaymentsForUser(user.ID)
	if err != nil {
		return serviceError(c, pc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, payments)
}
