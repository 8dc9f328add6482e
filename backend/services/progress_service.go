package services

import (
	"time"

	"gorm.io/gorm"

	"coursegate/backend/models"
	"coursegate/backend/store"
)

// ProgressService records completion progress against a subscription.
// Progress is monotonically non-decreasing: a learner cannot un-complete
// course material, so regressions are rejected.
type ProgressService struct {
	Store *store.Store

	now func() time.Time
}

func NewProgressService(st *store.Store) *ProgressService {
	return &ProgressService{Store: st, now: time.Now}
}

// RecordProgress sets the progress of an active subscription to newProgress
// in [0,100]. Completed is true exactly when progress reaches 100. The row
// is left unchanged on any rejection.
func (p *ProgressService) RecordProgress(subscriptionID uint, newProgress int) (*models.Subscription, error) {
	if newProgress < 0 || newProgress > 100 {
		return nil, ErrInvalidProgress
	}

	var result *models.Subscription
	var notActive bool
	err := p.Store.DB.Transaction(func(tx *gorm.DB) error {
		st := p.Store.WithTx(tx)
		sub, err := st.SubscriptionByIDLocked(subscriptionID)
		if err != nil {
			return err
		}
		if sub.Lapsed(p.now()) {
			next, terr := models.NextSubscriptionStatus(sub.Status, models.SubscriptionExpire)
			if terr != nil {
				return terr
			}
			sub.Status = next
			if err := st.SaveSubscription(sub); err != nil {
				return err
			}
		}
		if sub.Status != models.SubscriptionActive {
			// Commit so the lazy expiry above sticks.
			notActive = true
			return nil
		}
		if newProgress < sub.Progress {
			return ErrProgressRegression
		}
		sub.Progress = newProgress
		sub.Completed = newProgress == 100
		if err := st.SaveSubscription(sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notActive {
		return nil, ErrSubscriptionNotActive
	}
	return result, nil
}
