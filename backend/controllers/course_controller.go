package controllers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"coursegate/backend/config"
	"coursegate/backend/middleware"
	"coursegate/backend/models"
	"coursegate/backend/store"
	"coursegate/backend/utils"
)

type CourseController struct {
	Store  *store.Store
	Cfg    *config.Config
	Logger *log.Logger
}

func NewCourseController(st *store.Store, cfg *config.Config, logger *log.Logger) *CourseController {
	return &CourseController{Store: st, Cfg: cfg, Logger: logger}
}

type CourseInput struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"max=64"`
	Level       string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Duration    int    `json:"duration" validate:"gte=0"`
	Price       string `json:"price" validate:"omitempty"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

func parsePrice(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero, true
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || price.IsNegative() {
		return decimal.Zero, false
	}
	return price, true
}

// CreateCourse creates a draft course owned by the requesting teacher.
func (cc *CourseController) CreateCourse(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var input CourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}
	price, ok := parsePrice(input.Price)
	if !ok {
		return utils.ValidationError(c, map[string]string{"price": "must be a non-negative decimal"})
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	course := models.Course{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Level:       input.Level,
		Duration:    input.Duration,
		Price:       price,
		Currency:    currency,
		Status:      models.CourseDraft,
		TeacherID:   user.ID,
	}
	if err := cc.Store.CreateCourse(&course); err != nil {
		return serviceError(c, cc.Logger, err)
	}

	return utils.Created(c, course)
}

// UpdateCourse edits metadata of an owned course.
func (cc *CourseController) UpdateCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return err
	}

	var input CourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}
	price, ok := parsePrice(input.Price)
	if !ok {
		return utils.ValidationError(c, map[string]string{"price": "must be a non-negative decimal"})
	}

	course.Title = input.Title
	course.Description = input.Description
	course.Category = input.Category
	course.Level = input.Level
	course.Duration = input.Duration
	course.Price = price
	if input.Currency != "" {
		course.Currency = input.Currency
	}
	if err := cc.Store.SaveCourse(course); err != nil {
		return serviceError(c, cc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, course)
}

// Publish moves a draft course into the catalog.
func (cc *CourseController) Publish(c *fiber.Ctx) error {
	return cc.transition(c, models.CoursePublish, false)
}

// Archive retires a published course. Archival is the only way to remove a
// course with subscription history; rows are kept.
func (cc *CourseController) Archive(c *fiber.Ctx) error {
	return cc.transition(c, models.CourseArchive, false)
}

// Republish is the admin override returning an archived course to the
// catalog.
func (cc *CourseController) Republish(c *fiber.Ctx) error {
	return cc.transition(c, models.CourseRepublish, true)
}

func (cc *CourseController) transition(c *fiber.Ctx, event models.CourseEvent, adminOnly bool) error {
	user := middleware.CurrentUser(c)

	var course *models.Course
	var err error
	if adminOnly {
		if user.Role != models.RoleAdmin {
			return utils.Forbidden(c, "Admin access required")
		}
		course, err = cc.courseFromParam(c)
		if err != nil {
			return err
		}
	} else {
		course, err = cc.ownedCourse(c)
		if err != nil {
			return err
		}
	}

	next, err := models.NextCourseStatus(course.Status, event)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	course.Status = next
	if err := cc.Store.SaveCourse(course); err != nil {
		return serviceError(c, cc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":     course.ID,
		"status": course.Status,
	})
}

// ListPublished is the catalog: published courses with optional category and
// level filters.
func (cc *CourseController) ListPublished(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("pageSize", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	courses, total, err := cc.Store.PublishedCourses(c.Query("category"), c.Query("level"), page, pageSize)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}

	items := make([]fiber.Map, 0, len(courses))
	for i := range courses {
		items = append(items, cc.summary(&courses[i]))
	}
	return utils.Paginate(c, items, total, page, pageSize)
}

// ListMine lists the requesting teacher's own courses, drafts included.
func (cc *CourseController) ListMine(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	courses, err := cc.Store.CoursesByTeacher(user.ID)
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

// GetCourse returns course details with contents and the derived student
// count and rating. Drafts and archived courses are only visible to the
// owner and admins.
func (cc *CourseController) GetCourse(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid course ID")
	}

	course, err := cc.Store.CourseWithContents(uint(id))
	if err != nil {
		return serviceError(c, cc.Logger, err)
	}
	if !course.VisibleTo(user) {
		return utils.NotFound(c, "Course not found")
	}

	detail := cc.summary(course)
	contents := make([]fiber.Map, 0, len(course.Contents))
	for i := range course.Contents {
		content := &course.Contents[i]
		contents = append(contents, fiber.Map{
			"id":       content.ID,
			"title":    content.Title,
			"type":     content.Type,
			"duration": content.Duration,
			"order":    content.SortOrder,
			"is_free":  content.IsFree,
		})
	}
	detail["description"] = course.Description
	detail["contents"] = contents
	return utils.Success(c, fiber.StatusOK, detail)
}

// DeleteCourse hard-deletes a course without subscription history. Courses
// with subscribers must be archived instead; the conflict is surfaced so the
// caller can switch to the archive operation.
func (cc *CourseController) DeleteCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return err
	}
	if err := cc.Store.DeleteCourse(course.ID); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			return utils.Conflict(c, "Course has subscriptions, archive it instead")
		}
		return serviceError(c, cc.Logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (cc *CourseController) summary(course *models.Course) fiber.Map {
	students, err := cc.Store.CountActiveStudents(course.ID)
	if err != nil {
		cc.Logger.Printf("count students for course %d: %v", course.ID, err)
	}
	rating, err := cc.Store.CourseRating(course.ID)
	if err != nil {
		cc.Logger.Printf("rating for course %d: %v", course.ID, err)
	}
	return fiber.Map{
		"id":             course.ID,
		"title":          course.Title,
		"category":       course.Category,
		"level":          course.Level,
		"duration":       course.Duration,
		"price":          course.Price,
		"currency":       course.Currency,
		"status":         course.Status,
		"teacher_id":     course.TeacherID,
		"total_students": students,
		"rating":         rating,
	}
}

func (cc *CourseController) courseFromParam(c *fiber.Ctx) (*models.Course, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, utils.BadRequest(c, "Invalid course ID")
	}
	course, err := cc.Store.CourseByID(uint(id))
	if err != nil {
		return nil, serviceError(c, cc.Logger, err)
	}
	return course, nil
}

// ownedCourse resolves :id and checks the requester owns it (or is admin).
func (cc *CourseController) ownedCourse(c *fiber.Ctx) (*models.Course, error) {
	user := middleware.CurrentUser(c)
	course, err := cc.courseFromParam(c)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != user.ID && user.Role != models.RoleAdmin {
		return nil, utils.Forbidden(c, "Not the course owner")
	}
	return course, nil
}
