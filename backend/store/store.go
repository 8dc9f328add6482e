package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coursegate/backend/models"
)

// Store wraps the database and enforces referential integrity for the five
// core entities. All methods translate gorm errors into the store's typed
// errors so callers can match with errors.Is.
type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// WithTx returns a Store bound to an open transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{DB: tx}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	default:
		return err
	}
}

// Duplicate reports whether an error came from a uniqueness conflict, as
// opposed to a broken foreign key.
func Duplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// ---- users ----

func (s *Store) CreateUser(u *models.User) error {
	return translate(s.DB.Create(u).Error)
}

func (s *Store) UserByID(id uint) (*models.User, error) {
	var u models.User
	if err := s.DB.First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByUsername(username string) (*models.User, error) {
	var u models.User
	if err := s.DB.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) SaveUser(u *models.User) error {
	return translate(s.DB.Save(u).Error)
}

// ---- courses ----

// CreateCourse requires TeacherID to reference a teacher-role user.
func (s *Store) CreateCourse(course *models.Course) error {
	owner, err := s.UserByID(course.TeacherID)
	if err != nil {
		return err
	}
	if owner.Role != models.RoleTeacher {
		return fmt.Errorf("%w: user %d is not a teacher", ErrConstraintViolation, owner.ID)
	}
	return translate(s.DB.Create(course).Error)
}

func (s *Store) CourseByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := s.DB.First(&course, id).Error; err != nil {
		return nil, translate(err)
	}
	return &course, nil
}

func (s *Store) CourseWithContents(id uint) (*models.Course, error) {
	var course models.Course
	if err := s.DB.Preload("Contents", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).First(&course, id).Error; err != nil {
		return nil, translate(err)
	}
	return &course, nil
}

func (s *Store) SaveCourse(course *models.Course) error {
	return translate(s.DB.Save(course).Error)
}

func (s *Store) CoursesByTeacher(teacherID uint) ([]models.Course, error) {
	var courses []models.Course
	err := s.DB.Where("teacher_id = ?", teacherID).Order("id").Find(&courses).Error
	return courses, translate(err)
}

// PublishedCourses lists catalog courses with optional category/level
// filters, newest first.
func (s *Store) PublishedCourses(category, level string, page, pageSize int) ([]models.Course, int64, error) {
	query := s.DB.Model(&models.Course{}).Where("status = ?", models.CoursePublished)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var courses []models.Course
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&courses).Error
	return courses, total, translate(err)
}

// DeleteCourse hard-deletes a course only when no subscription references
// it. Courses with subscription history must be archived instead.
func (s *Store) DeleteCourse(id uint) error {
	var subs int64
	if err := s.DB.Model(&models.Subscription{}).Where("course_id = ?", id).Count(&subs).Error; err != nil {
		return translate(err)
	}
	if subs > 0 {
		return fmt.Errorf("%w: course %d has %d subscriptions, archive it instead", ErrConstraintViolation, id, subs)
	}
	result := s.DB.Delete(&models.Course{}, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: course %d", ErrNotFound, id)
	}
	return nil
}

// CountActiveStudents is the derived totalStudents value: a live count of
// active subscriptions rather than a stored counter.
func (s *Store) CountActiveStudents(courseID uint) (int64, error) {
	var n int64
	err := s.DB.Model(&models.Subscription{}).
		Where("course_id = ? AND status = ?", courseID, models.SubscriptionActive).
		Count(&n).Error
	return n, translate(err)
}

// CourseRating is the derived aggregate rating, averaged over reviews on
// read. Returns 0 when the course has no reviews.
func (s *Store) CourseRating(courseID uint) (float64, error) {
	var rating *float64
	err := s.DB.Model(&models.CourseReview{}).
		Where("course_id = ?", courseID).
		Select("AVG(rating)").
		Scan(&rating).Error
	if err != nil {
		return 0, translate(err)
	}
	if rating == nil {
		return 0, nil
	}
	return *rating, nil
}

// ---- course contents ----

// CreateContent requires an existing parent course. A zero SortOrder is
// assigned the next free position at the end of the course.
func (s *Store) CreateContent(content *models.CourseContent) error {
	if _, err := s.CourseByID(content.CourseID); err != nil {
		return err
	}
	if content.SortOrder == 0 {
		var maxOrder int
		if err := s.DB.Model(&models.CourseContent{}).
			Where("course_id = ?", content.CourseID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return translate(err)
		}
		content.SortOrder = maxOrder + 1
	}
	return translate(s.DB.Create(content).Error)
}

func (s *Store) ContentByID(id uint) (*models.CourseContent, error) {
	var content models.CourseContent
	if err := s.DB.Preload("Course").First(&content, id).Error; err != nil {
		return nil, translate(err)
	}
	return &content, nil
}

func (s *Store) SaveContent(content *models.CourseContent) error {
	return translate(s.DB.Save(content).Error)
}

func (s *Store) DeleteContent(id uint) error {
	result := s.DB.Delete(&models.CourseContent{}, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: content %d", ErrNotFound, id)
	}
	return nil
}

// ---- subscriptions ----

func (s *Store) CreateSubscription(sub *models.Subscription) error {
	return translate(s.DB.Create(sub).Error)
}

func (s *Store) SubscriptionByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.DB.First(&sub, id).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// SubscriptionForPair returns the single row for (student, course).
func (s *Store) SubscriptionForPair(studentID, courseID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.DB.Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// SubscriptionForPairLocked takes a row lock so concurrent subscribe calls
// serialize on the pair. Only meaningful inside a transaction.
func (s *Store) SubscriptionForPairLocked(studentID, courseID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *Store) SubscriptionByIDLocked(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sub, id).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (s *Store) SaveSubscription(sub *models.Subscription) error {
	return translate(s.DB.Save(sub).Error)
}

func (s *Store) SubscriptionsForStudent(studentID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.DB.Preload("Course").
		Where("student_id = ?", studentID).
		Order("id").
		Find(&subs).Error
	return subs, translate(err)
}

// ---- payments ----

// CreatePayment requires existing user and course rows.
func (s *Store) CreatePayment(p *models.Payment) error {
	if _, err := s.UserByID(p.UserID); err != nil {
		return err
	}
	if _, err := s.CourseByID(p.CourseID); err != nil {
		return err
	}
	return translate(s.DB.Create(p).Error)
}

func (s *Store) PaymentByReference(reference string) (*models.Payment, error) {
	var p models.Payment
	if err := s.DB.Where("reference = ?", reference).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) SavePayment(p *models.Payment) error {
	return translate(s.DB.Save(p).Error)
}

func (s *Store) PaymentsForUser(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.DB.Where("user_id = ?", userID).Order("id").Find(&payments).Error
	return payments, translate(err)
}

// HasSuccessfulPayment answers the one question subscribe asks of the
// payment records: has this student paid for this course.
func (s *Store) HasSuccessfulPayment(userID, courseID uint) (bool, error) {
	var n int64
	err := s.DB.Model(&models.Payment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.PaymentPaid).
		Count(&n).Error
	return n > 0, translate(err)
}

// ---- reviews ----

func (s *Store) CreateReview(r *models.CourseReview) error {
	return translate(s.DB.Create(r).Error)
}

func (s *Store) ReviewsForCourse(courseID uint) ([]models.CourseReview, error) {
	var reviews []models.CourseReview
	err := s.DB.Preload("Student").
		Where("course_id = ?", courseID).
		Order("id DESC").
		Find(&reviews).Error
	return reviews, translate(err)
}
