package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"coursegate/backend/config"
	"coursegate/backend/models"
	"coursegate/backend/store"
	"coursegate/backend/utils"
)

type AuthController struct {
	Store  *store.Store
	Cfg    *config.Config
	Logger *log.Logger
}

func NewAuthController(st *store.Store, cfg *config.Config, logger *log.Logger) *AuthController {
	return &AuthController{Store: st, Cfg: cfg, Logger: logger}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher"`
}

// Register creates a student or teacher account. Admin accounts are only
// created by promotion, never through registration.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	role := models.Role(input.Role)
	if role == "" {
		role = models.RoleStudent
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := ac.Store.CreateUser(&user); err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			return utils.Conflict(c, "Username or email already taken")
		}
		return serviceError(c, ac.Logger, err)
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationError(c, validationDetails(err))
	}

	user, err := ac.Store.UserByUsername(input.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return serviceError(c, ac.Logger, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}
