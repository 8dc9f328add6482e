package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"coursegate/backend/config"
	"coursegate/backend/models"
	"coursegate/backend/store"
)

// SubscriptionService owns every subscription state change. The at-most-one
// row per (student, course) invariant is held by the unique index plus a row
// lock inside the subscribe transaction; renewals reuse the existing row.
type SubscriptionService struct {
	Store  *store.Store
	Cfg    *config.Config
	Logger *log.Logger

	now func() time.Time
}

func NewSubscriptionService(st *store.Store, cfg *config.Config, logger *log.Logger) *SubscriptionService {
	return &SubscriptionService{Store: st, Cfg: cfg, Logger: logger, now: time.Now}
}

// endDate computes the end of a new cycle. Free courses have no fixed end;
// paid courses run for the configured period.
func (s *SubscriptionService) endDate(course *models.Course, start time.Time) *time.Time {
	if course.Free() || s.Cfg.SubscriptionDays <= 0 {
		return nil
	}
	end := start.AddDate(0, 0, s.Cfg.SubscriptionDays)
	return &end
}

// Subscribe creates or renews the subscription of a student to a published
// course. Calling it on an already active subscription is idempotent and
// returns the row unchanged; on an expired or cancelled row it starts a new
// cycle in place. Paid courses require a successful payment on record.
func (s *SubscriptionService) Subscribe(studentID, courseID uint) (*models.Subscription, error) {
	sub, err := s.subscribe(studentID, courseID)
	if store.Duplicate(err) {
		// Lost the race against a concurrent subscribe; the row now exists,
		// so a second attempt resolves it through the locked read.
		sub, err = s.subscribe(studentID, courseID)
	}
	if err != nil && errors.Is(err, store.ErrConstraintViolation) {
		s.Logger.Printf("subscribe(%d, %d): unexpected constraint violation: %v", studentID, courseID, err)
	}
	return sub, err
}

func (s *SubscriptionService) subscribe(studentID, courseID uint) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.Store.DB.Transaction(func(tx *gorm.DB) error {
		st := s.Store.WithTx(tx)

		student, err := st.UserByID(studentID)
		if err != nil {
			return err
		}
		if student.Role != models.RoleStudent {
			return fmt.Errorf("%w: user %d is not a student", store.ErrConstraintViolation, studentID)
		}

		course, err := st.CourseByID(courseID)
		if err != nil {
			return err
		}
		if !course.Subscribable() {
			return ErrCourseNotPublished
		}

		now := s.now()
		sub, err := st.SubscriptionForPairLocked(studentID, courseID)
		switch {
		case err == nil:
			if sub.EffectiveStatus(now) == models.SubscriptionActive {
				result = sub // idempotent, no duplicate charge
				return nil
			}
			if err := s.requirePayment(st, student.ID, course); err != nil {
				return err
			}
			if sub.Lapsed(now) {
				sub.Status = models.SubscriptionExpired
			}
			next, terr := models.NextSubscriptionStatus(sub.Status, models.SubscriptionRenew)
			if terr != nil {
				return terr
			}
			sub.Status = next
			sub.StartDate = now
			sub.EndDate = s.endDate(course, now)
			sub.Progress = 0
			sub.Completed = false
			if err := st.SaveSubscription(sub); err != nil {
				return err
			}
			result = sub
			return nil

		case errors.Is(err, store.ErrNotFound):
			if err := s.requirePayment(st, student.ID, course); err != nil {
				return err
			}
			sub = &models.Subscription{
				StudentID: studentID,
				CourseID:  courseID,
				Status:    models.SubscriptionActive,
				StartDate: now,
				EndDate:   s.endDate(course, now),
			}
			if err := st.CreateSubscription(sub); err != nil {
				return err
			}
			result = sub
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SubscriptionService) requirePayment(st *store.Store, studentID uint, course *models.Course) error {
	if course.Free() {
		return nil
	}
	paid, err := st.HasSuccessfulPayment(studentID, course.ID)
	if err != nil {
		return err
	}
	if !paid {
		return ErrPaymentRequired
	}
	return nil
}

// Cancel moves an active subscription to cancelled. Cancelling an already
// cancelled or expired subscription is a no-op returning the current state.
func (s *SubscriptionService) Cancel(subscriptionID uint) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.Store.DB.Transaction(func(tx *gorm.DB) error {
		st := s.Store.WithTx(tx)
		sub, err := st.SubscriptionByIDLocked(subscriptionID)
		if err != nil {
			return err
		}
		if changed, err := s.normalize(st, sub); err != nil {
			return err
		} else if changed || sub.Status != models.SubscriptionActive {
			result = sub
			return nil
		}
		next, err := models.NextSubscriptionStatus(sub.Status, models.SubscriptionCancel)
		if err != nil {
			return err
		}
		sub.Status = next
		if err := st.SaveSubscription(sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Expire applies the time-based transition to one subscription. It is a
// no-op unless the row is active and past its end date, so running it from
// a sweep alongside subscribe or cancel is safe.
func (s *SubscriptionService) Expire(subscriptionID uint) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.Store.DB.Transaction(func(tx *gorm.DB) error {
		st := s.Store.WithTx(tx)
		sub, err := st.SubscriptionByIDLocked(subscriptionID)
		if err != nil {
			return err
		}
		if _, err := s.normalize(st, sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// normalize performs the lazy expiry check: an active row past its end date
// is flipped to expired before any decision is taken on it.
func (s *SubscriptionService) normalize(st *store.Store, sub *models.Subscription) (bool, error) {
	if !sub.Lapsed(s.now()) {
		return false, nil
	}
	next, err := models.NextSubscriptionStatus(sub.Status, models.SubscriptionExpire)
	if err != nil {
		return false, err
	}
	sub.Status = next
	if err := st.SaveSubscription(sub); err != nil {
		return false, err
	}
	return true, nil
}

// ForStudent lists a student's subscriptions with lazy expiry applied, so
// callers observe the same state the sweep would produce.
func (s *SubscriptionService) ForStudent(studentID uint) ([]models.Subscription, error) {
	subs, err := s.Store.SubscriptionsForStudent(studentID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].Lapsed(s.now()) {
			if _, err := s.Expire(subs[i].ID); err != nil {
				return nil, err
			}
			subs[i].Status = models.SubscriptionExpired
		}
	}
	return subs, nil
}

// ExpireDue is the periodic sweep: every active subscription past its end
// date is flipped to expired in one statement.
func (s *SubscriptionService) ExpireDue() (int64, error) {
	result := s.Store.DB.Model(&models.Subscription{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.SubscriptionActive, s.now()).
		Update("status", models.SubscriptionExpired)
	return result.RowsAffected, result.Error
}

// StartExpirySweep runs ExpireDue on a ticker until stop is closed.
func (s *SubscriptionService) StartExpirySweep(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.ExpireDue()
				if err != nil {
					s.Logger.Printf("expiry sweep failed: %v", err)
					continue
				}
				if n > 0 {
					s.Logger.Printf("expiry sweep: %d subscriptions expired", n)
				}
			case <-stop:
				return
			}
		}
	}()
}
