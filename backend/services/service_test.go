package services

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"coursegate/backend/config"
	"coursegate/backend/models"
	"coursegate/backend/store"
	"coursegate/backend/utils"
)

var (
	testDB  *gorm.DB
	testCfg *config.Config
	nameSeq atomic.Uint64
)

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() {
	testCfg = &config.Config{
		DBHost:           getenv("TEST_DB_HOST", "localhost"),
		DBPort:           getenv("TEST_DB_PORT", "5432"),
		DBUser:           getenv("TEST_DB_USER", "postgres"),
		DBPassword:       getenv("TEST_DB_PASSWORD", "postgres"),
		DBName:           getenv("TEST_DB_NAME", "coursegate_services_test"),
		JWTSecret:        "testsecret",
		SubscriptionDays: 30,
	}

	var err error
	testDB, err = utils.InitDB(testCfg)
	if err != nil {
		panic(err)
	}

	if err := testDB.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseContent{},
		&models.Subscription{},
		&models.Payment{},
		&models.CourseReview{},
	); err != nil {
		panic(err)
	}
}

func teardown() {
	testDB.Migrator().DropTable(
		&models.CourseReview{},
		&models.Payment{},
		&models.Subscription{},
		&models.CourseContent{},
		&models.Course{},
		&models.User{},
	)
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func newServices() (*SubscriptionService, *AccessService, *ProgressService) {
	st := store.New(testDB)
	logger := utils.InitLogger()
	return NewSubscriptionService(st, testCfg, logger), NewAccessService(st), NewProgressService(st)
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, nameSeq.Add(1))
}

func newUser(t *testing.T, role models.Role) *models.User {
	t.Helper()
	name := uniqueName(string(role))
	user := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	if err := testDB.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func newCourse(t *testing.T, teacher *models.User, price string, status models.CourseStatus) *models.Course {
	t.Helper()
	course := &models.Course{
		Title:     uniqueName("course"),
		Category:  "philosophy",
		Level:     "beginner",
		Price:     decimal.RequireFromString(price),
		Currency:  "USD",
		Status:    status,
		TeacherID: teacher.ID,
	}
	if err := testDB.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

func newContent(t *testing.T, course *models.Course, isFree bool) *models.CourseContent {
	t.Helper()
	content := &models.CourseContent{
		CourseID:  course.ID,
		Title:     uniqueName("content"),
		Type:      models.ContentText,
		SortOrder: int(nameSeq.Add(1)),
		IsFree:    isFree,
	}
	if err := testDB.Create(content).Error; err != nil {
		t.Fatalf("create content: %v", err)
	}
	return content
}

func recordPaidPayment(t *testing.T, student *models.User, course *models.Course) {
	t.Helper()
	now := time.Now()
	payment := &models.Payment{
		UserID:    student.ID,
		CourseID:  course.ID,
		Reference: uniqueName("pay"),
		Amount:    course.Price,
		Currency:  course.Currency,
		Status:    models.PaymentPaid,
		PaidAt:    &now,
	}
	if err := testDB.Create(payment).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
}

func reloadSubscription(t *testing.T, id uint) *models.Subscription {
	t.Helper()
	var sub models.Subscription
	if err := testDB.First(&sub, id).Error; err != nil {
		t.Fatalf("reload subscription %d: %v", id, err)
	}
	return &sub
}
