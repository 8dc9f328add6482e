package controllers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"coursegate/backend/config"
	"coursegate/backend/middleware"
	"coursegate/backend/models"
	"coursegate/backend/services"
	"coursegate/backend/store"
	"coursegate/backend/utils"
)

type SubscriptionController struct {
	Store         *store.Store
	Subscriptions *services.SubscriptionService
	Progress      *services.ProgressService
	Cfg           *config.Config
	Logger        *log.Logger
}

func NewSubscriptionController(st *store.Store, subs *services.SubscriptionService, progress *services.ProgressService, cfg *config.Config, logger *log.Logger) *SubscriptionController {
	return &SubscriptionController{Store: st, Subscriptions: subs, Progress: progress, Cfg: cfg, Logger: logger}
}

func subscriptionView(sub *models.Subscription) fiber.Map {
	return fiber.Map{
		"id":         sub.ID,
		"course_id":  sub.CourseID,
		"student_id": sub.StudentID,
		"status":     sub.Status,
		"start_date": sub.StartDate,
		"end_date":   sub.EndDate,
		"progress":   sub.Progress,
		"completed":  sub.Completed,
	}
}

// Subscribe enrolls the requesting student in a course.
func (sc *SubscriptionController) Subscribe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	sub, err := sc.Subscriptions.Subscribe(user.ID, uint(courseID))
	if err != nil {
		return serviceError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, subscriptionView(sub))
}

// Cancel cancels the student's own subscription. Admins may cancel any.
func (sc *SubscriptionController) Cancel(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid subscription ID")
	}

	sub, err := sc.Store.SubscriptionByID(uint(id))
	if err != nil {
		return serviceError(c, sc.Logger, err)
	}
	if sub.StudentID != user.ID && user.Role != models.RoleAdmin {
		return utils.Forbidden(c, "Not your subscription")
	}

	sub, err = sc.Subscriptions.Cancel(sub.ID)
	if err != nil {
		return serviceError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, subscriptionView(sub))
}

// ListMine lists the requesting student's subscriptions.
func (sc *SubscriptionController) ListMine(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	subs, err := sc.Subscriptions.ForStudent(user.ID)
	if err != nil {
		return serviceError(c, sc.Logger, err)
	}

	items := make([]fiber.Map, 0, len(subs))
	for i := range subs {
		view := subscriptionView(&subs[i])
		view["course_title"] = subs[i].Course.Title
		items = append(items, view)
	}
	return utils.Success(c, fiber.StatusOK, items)
}

type ProgressInput struct {
	Progress *int `json:"progress" validate:"required"`
}

// RecordProgress updates completion progress on the student's subscription.
func (sc *SubscriptionController) RecordProgress(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid subscription ID")
	}

	var input ProgressInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	sub, err := sc.Store.SubscriptionByID(uint(id))
	if err != nil {
		return serviceError(c, sc.Logger, err)
	}
	if sub.StudentID != user.ID && user.Role != models.RoleAdmin {
		return utils.Forbidden(c, "Not your subscription")
	}

	sub, err = sc.Progress.RecordProgress(sub.ID, *input.Progress)
	if err != nil {
		return serviceError(c, sc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, subscriptionView(sub))
}
