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

type ContentController struct {
	Store  *store.Store
	Access *services.AccessService
	Cfg    *config.Config
	Logger *log.Logger
}

func NewContentController(st *store.Store, access *services.AccessService, cfg *config.Config, logger *log.Logger) *ContentController {
	return &ContentController{Store: st, Access: access, Cfg: cfg, Logger: logger}
}

type ContentInput struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"required,oneof=video document assignment quiz text"`
	FileURL     string `json:"file_url" validate:"omitempty,url"`
	FileSize    int64  `json:"file_size" validate:"gte=0"`
	Duration    int    `json:"duration" validate:"gte=0"`
	Order       int    `json:"order" validate:"gte=0"`
	IsFree      bool   `json:"is_free"`
}

// AddContent appends a content item to an owned course. Order defaults to
// the end of the course; explicit orders must be unique within it.
func (cn *ContentController) AddContent(c *fiber.Ctx) error {
	course, err := cn.ownedCourse(c)
	if err != nil {
		return err
	}

	var input ContentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	content := models.CourseContent{
		CourseID:    course.ID,
		Title:       input.Title,
		Description: input.Description,
		Type:        models.ContentType(input.Type),
		FileURL:     input.FileURL,
		FileSize:    input.FileSize,
		Duration:    input.Duration,
		SortOrder:   input.Order,
		IsFree:      input.IsFree,
	}
	if err := cn.Store.CreateContent(&content); err != nil {
		if store.Duplicate(err) {
			return utils.Conflict(c, "Content order already used in this course")
		}
		return serviceError(c, cn.Logger, err)
	}
	return utils.Created(c, content)
}

// UpdateContent edits a content item of an owned course.
func (cn *ContentController) UpdateContent(c *fiber.Ctx) error {
	content, err := cn.ownedContent(c)
	if err != nil {
		return err
	}

	var input ContentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	content.Title = input.Title
	content.Description = input.Description
	content.Type = models.ContentType(input.Type)
	content.FileURL = input.FileURL
	content.FileSize = input.FileSize
	content.Duration = input.Duration
	if input.Order > 0 {
		content.SortOrder = input.Order
	}
	content.IsFree = input.IsFree
	if err := cn.Store.SaveContent(content); err != nil {
		if store.Duplicate(err) {
			return utils.Conflict(c, "Content order already used in this course")
		}
		return serviceError(c, cn.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, content)
}

// DeleteContent removes a content item; owning teacher or admin only.
func (cn *ContentController) DeleteContent(c *fiber.Ctx) error {
	content, err := cn.ownedContent(c)
	if err != nil {
		return err
	}
	if err := cn.Store.DeleteContent(content.ID); err != nil {
		return serviceError(c, cn.Logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetContent serves one content item through the access resolver. A denial
// carries the reason so the frontend can prompt for a subscription.
func (cn *ContentController) GetContent(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid content ID")
	}

	decision, err := cn.Access.CanAccess(user.ID, uint(id))
	if err != nil {
		return serviceError(c, cn.Logger, err)
	}
	if !decision.Allowed {
		return utils.Error(c, fiber.StatusForbidden,
			fiber.NewError(fiber.StatusForbidden, "Access denied"), decision)
	}

	content, err := cn.Store.ContentByID(uint(id))
	if err != nil {
		return serviceError(c, cn.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":          content.ID,
		"course_id":   content.CourseID,
		"title":       content.Title,
		"description": content.Description,
		"type":        content.Type,
		"file_url":    content.FileURL,
		"file_size":   content.FileSize,
		"duration":    content.Duration,
		"order":       content.SortOrder,
		"is_free":     content.IsFree,
		"access":      decision,
	})
}

// ownedContent resolves :id and checks the requester owns the parent course
// (or is admin).
func (cn *ContentController) ownedContent(c *fiber.Ctx) (*models.CourseContent, error) {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, utils.BadRequest(c, "Invalid content ID")
	}
	content, err := cn.Store.ContentByID(uint(id))
	if err != nil {
		return nil, serviceError(c, cn.Logger, err)
	}
	if content.Course.TeacherID != user.ID && user.Role != models.RoleAdmin {
		return nil, utils.Forbidden(c, "Not the course owner")
	}
	return content, nil
}

// ownedCourse resolves :courseId for content creation.
func (cn *ContentController) ownedCourse(c *fiber.Ctx) (*models.Course, error) {
	user := middleware.CurrentUser(c)

	id, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return nil, utils.BadRequest(c, "Invalid course ID")
	}
	course, err := cn.Store.CourseByID(uint(id))
	if err != nil {
		return nil, serviceError(c, cn.Logger, err)
	}
	if course.TeacherID != user.ID && user.Role != models.RoleAdmin {
		return nil, utils.Forbidden(c, "Not the course owner")
	}
	return course, nil
}
