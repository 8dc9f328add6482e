package controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"coursegate/backend/config"
	"coursegate/backend/middleware"
	"coursegate/backend/models"
	"coursegate/backend/store"
	"coursegate/backend/utils"
)

// ReviewController manages the student reviews backing the derived course
// rating.
type ReviewController struct {
	Store  *store.Store
	Cfg    *config.Config
	Logger *log.Logger
}

func NewReviewController(st *store.Store, cfg *config.Config, logger *log.Logger) *ReviewController {
	return &ReviewController{Store: st, Cfg: cfg, Logger: logger}
}

type ReviewInput struct {
	Rating *int   `json:"rating" validate:"required,gte=0,lte=5"`
	Text   string `json:"text" validate:"max=2000"`
}

// AddReview lets a student with a current or completed subscription rate a
// course once.
func (rc *ReviewController) AddReview(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	var input ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	sub, err := rc.Store.SubscriptionForPair(user.ID, uint(courseID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Forbidden(c, "Only subscribers can review a course")
		}
		return serviceError(c, rc.Logger, err)
	}
	if sub.EffectiveStatus(time.Now()) != models.SubscriptionActive && !sub.Completed {
		return utils.Forbidden(c, "Only subscribers can review a course")
	}

	review := models.CourseReview{
		CourseID:  uint(courseID),
		StudentID: user.ID,
		Rating:    *input.Rating,
		Text:      input.Text,
	}
	if err := rc.Store.CreateReview(&review); err != nil {
		if store.Duplicate(err) {
			return utils.Conflict(c, "Course already reviewed")
		}
		return serviceError(c, rc.Logger, err)
	}
	return utils.Created(c, review)
}

// ListReviews lists a course's reviews with the derived average rating.
func (rc *ReviewController) ListReviews(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}
	if _, err := rc.Store.CourseByID(uint(courseID)); err != nil {
		return serviceError(c, rc.Logger, err)
	}

	reviews, err := rc.Store.ReviewsForCourse(uint(courseID))
	if err != nil {
		return serviceError(c, rc.Logger, err)
	}
	rating, err := rc.Store.CourseRating(uint(courseID))
	if err != nil {
		return serviceError(c, rc.Logger, err)
	}

	items := make([]fiber.Map, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, fiber.Map{
			"id":       review.ID,
			"rating":   review.Rating,
			"text":     review.Text,
			"username": review.Student.Username,
		})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"rating":  rating,
		"reviews": items,
	})
}
