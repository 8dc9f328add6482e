package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coursegate/backend/config"
	"coursegate/backend/controllers"
	"coursegate/backend/middleware"
	"coursegate/backend/models"
	"coursegate/backend/services"
	"coursegate/backend/store"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	st := store.New(db)
	subscriptions := services.NewSubscriptionService(st, cfg, logger)
	access := services.NewAccessService(st)
	progress := services.NewProgressService(st)

	// Auth routes
	authController := controllers.NewAuthController(st, cfg, logger)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(db, cfg)
	teacherOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Courses
	courseController := controllers.NewCourseController(st, cfg, logger)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", courseController.ListPublished)
	courses.Get("/mine", teacherOnly, courseController.ListMine)
	courses.Get("/:id", courseController.GetCourse)
	courses.Post("/", teacherOnly, courseController.CreateCourse)
	courses.Put("/:id", teacherOnly, courseController.UpdateCourse)
	courses.Delete("/:id", teacherOnly, courseController.DeleteCourse)
	courses.Post("/:id/publish", teacherOnly, courseController.Publish)
	courses.Post("/:id/archive", teacherOnly, courseController.Archive)
	courses.Post("/:id/republish", adminOnly, courseController.Republish)

	// Course contents
	contentController := controllers.NewContentController(st, access, cfg, logger)
	courses.Post("/:courseId/contents", teacherOnly, contentController.AddContent)
	contents := app.Group("/api/contents", authMiddleware)
	contents.Get("/:id", contentController.GetContent)
	contents.Put("/:id", teacherOnly, contentController.UpdateContent)
	contents.Delete("/:id", teacherOnly, contentController.DeleteContent)

	// Subscriptions and progress
	subscriptionController := controllers.NewSubscriptionController(st, subscriptions, progress, cfg, logger)
	courses.Post("/:id/subscribe", subscriptionController.Subscribe)
	subs := app.Group("/api/subscriptions", authMiddleware)
	subs.Get("/", subscriptionController.ListMine)
	subs.Post("/:id/cancel", subscriptionController.Cancel)
	subs.Post("/:id/progress", subscriptionController.RecordProgress)

	// Reviews
	reviewController := controllers.NewReviewController(st, cfg, logger)
	courses.Get("/:id/reviews", reviewController.ListReviews)
	courses.Post("/:id/reviews", reviewController.AddReview)

	// Payments
	paymentController := controllers.NewPaymentController(st, cfg, logger)
	payments := app.Group("/api/payments", authMiddleware)
	payments.Get("/", paymentController.ListMine)
	payments.Post("/", adminOnly, paymentController.RecordPayment)
	payments.Put("/:reference/status", adminOnly, paymentController.UpdatePaymentStatus)
}
