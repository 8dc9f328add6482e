package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidTransition is returned by the status transition tables when a
// (state, event) pair is not legal.
var ErrInvalidTransition = errors.New("invalid status transition")

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type SubscriptionEvent string

const (
	// SubscriptionExpire fires when now() has passed the end date.
	SubscriptionExpire SubscriptionEvent = "expire"
	// SubscriptionCancel is the explicit student/admin cancellation.
	SubscriptionCancel SubscriptionEvent = "cancel"
	// SubscriptionRenew starts a new cycle on the same row.
	SubscriptionRenew SubscriptionEvent = "renew"
)

type subscriptionTransition struct {
	Status SubscriptionStatus
	Event  SubscriptionEvent
}

var subscriptionTransitions = map[subscriptionTransition]SubscriptionStatus{
	{SubscriptionActive, SubscriptionExpire}:   SubscriptionExpired,
	{SubscriptionActive, SubscriptionCancel}:   SubscriptionCancelled,
	{SubscriptionExpired, SubscriptionRenew}:   SubscriptionActive,
	{SubscriptionCancelled, SubscriptionRenew}: SubscriptionActive,
}

// NextSubscriptionStatus returns the status a subscription moves to on the
// given event, or ErrInvalidTransition when the pair is not legal.
func NextSubscriptionStatus(current SubscriptionStatus, event SubscriptionEvent) (SubscriptionStatus, error) {
	next, ok := subscriptionTransitions[subscriptionTransition{current, event}]
	if !ok {
		return current, fmt.Errorf("%w: subscription %s on %s", ErrInvalidTransition, current, event)
	}
	return next, nil
}

// Subscription links one student to one course. At most one row exists per
// (student, course) pair; renewals reuse the row instead of inserting.
type Subscription struct {
	gorm.Model
	StudentID uint               `gorm:"not null;uniqueIndex:idx_sub_student_course"`
	CourseID  uint               `gorm:"not null;uniqueIndex:idx_sub_student_course"`
	Status    SubscriptionStatus `gorm:"type:varchar(16);default:active;index"`
	StartDate time.Time
	EndDate   *time.Time // nil means no fixed end
	Progress  int        `gorm:"default:0;check:progress >= 0 AND progress <= 100"`
	Completed bool       `gorm:"default:false"`

	Student User   `gorm:"foreignKey:StudentID"`
	Course  Course `gorm:"foreignKey:CourseID"`
}

// Lapsed reports whether an active subscription has passed its end date and
// should be treated as expired, whether or not the row has been swept yet.
func (s *Subscription) Lapsed(now time.Time) bool {
	return s.Status == SubscriptionActive && s.EndDate != nil && now.After(*s.EndDate)
}

// EffectiveStatus is the status after lazy expiry, without mutating the row.
func (s *Subscription) EffectiveStatus(now time.Time) SubscriptionStatus {
	if s.Lapsed(now) {
		return SubscriptionExpired
	}
	return s.Status
}
