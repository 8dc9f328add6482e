package services

import (
	"errors"
	"time"

	"coursegate/backend/models"
	"coursegate/backend/store"
)

// AccessReason explains an access decision to the caller.
type AccessReason string

const (
	ReasonOwner                AccessReason = "Owner"
	ReasonAdmin                AccessReason = "Admin"
	ReasonFreePreview          AccessReason = "FreePreview"
	ReasonSubscriptionActive   AccessReason = "SubscriptionActive"
	ReasonNoActiveSubscription AccessReason = "NoActiveSubscription"
)

type AccessDecision struct {
	Allowed bool         `json:"allowed"`
	Reason  AccessReason `json:"reason"`
}

// AccessService decides whether a user may view a content item. It is a
// pure read-side check: it never writes, so it is safe to call concurrently
// and repeatedly. Lapsed subscriptions are judged by their effective status
// rather than swept here.
type AccessService struct {
	Store *store.Store

	now func() time.Time
}

func NewAccessService(st *store.Store) *AccessService {
	return &AccessService{Store: st, now: time.Now}
}

// CanAccess applies the gating policy in order: course owner, admin, free
// preview on a published course, then active subscription.
func (s *AccessService) CanAccess(userID, contentID uint) (AccessDecision, error) {
	content, err := s.Store.ContentByID(contentID)
	if err != nil {
		return AccessDecision{}, err
	}
	user, err := s.Store.UserByID(userID)
	if err != nil {
		return AccessDecision{}, err
	}

	if content.Course.TeacherID == userID {
		return AccessDecision{Allowed: true, Reason: ReasonOwner}, nil
	}
	if user.Role == models.RoleAdmin {
		return AccessDecision{Allowed: true, Reason: ReasonAdmin}, nil
	}
	if content.IsFree && content.Course.Subscribable() {
		return AccessDecision{Allowed: true, Reason: ReasonFreePreview}, nil
	}

	sub, err := s.Store.SubscriptionForPair(userID, content.CourseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AccessDecision{Allowed: false, Reason: ReasonNoActiveSubscription}, nil
		}
		return AccessDecision{}, err
	}
	if sub.EffectiveStatus(s.now()) != models.SubscriptionActive {
		return AccessDecision{Allowed: false, Reason: ReasonNoActiveSubscription}, nil
	}
	return AccessDecision{Allowed: true, Reason: ReasonSubscriptionActive}, nil
}
