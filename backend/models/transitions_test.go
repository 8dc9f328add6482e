package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCourseTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current CourseStatus
		event   CourseEvent
		want    CourseStatus
		wantErr bool
	}{
		{"publish draft", CourseDraft, CoursePublish, CoursePublished, false},
		{"archive published", CoursePublished, CourseArchive, CourseArchived, false},
		{"republish archived", CourseArchived, CourseRepublish, CoursePublished, false},
		{"publish published", CoursePublished, CoursePublish, CoursePublished, true},
		{"archive draft", CourseDraft, CourseArchive, CourseDraft, true},
		{"publish archived", CourseArchived, CoursePublish, CourseArchived, true},
		{"republish draft", CourseDraft, CourseRepublish, CourseDraft, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := NextCourseStatus(tc.current, tc.event)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tc.current, next)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, next)
		})
	}
}

func TestSubscriptionTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current SubscriptionStatus
		event   SubscriptionEvent
		want    SubscriptionStatus
		wantErr bool
	}{
		{"expire active", SubscriptionActive, SubscriptionExpire, SubscriptionExpired, false},
		{"cancel active", SubscriptionActive, SubscriptionCancel, SubscriptionCancelled, false},
		{"renew expired", SubscriptionExpired, SubscriptionRenew, SubscriptionActive, false},
		{"renew cancelled", SubscriptionCancelled, SubscriptionRenew, SubscriptionActive, false},
		{"renew active", SubscriptionActive, SubscriptionRenew, SubscriptionActive, true},
		{"cancel expired", SubscriptionExpired, SubscriptionCancel, SubscriptionExpired, true},
		{"cancel cancelled", SubscriptionCancelled, SubscriptionCancel, SubscriptionCancelled, true},
		{"expire cancelled", SubscriptionCancelled, SubscriptionExpire, SubscriptionCancelled, true},
		{"expire expired", SubscriptionExpired, SubscriptionExpire, SubscriptionExpired, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := NextSubscriptionStatus(tc.current, tc.event)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tc.current, next)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, next)
		})
	}
}

func TestSubscriptionLapsed(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	active := Subscription{Status: SubscriptionActive, EndDate: &past}
	assert.True(t, active.Lapsed(now))
	assert.Equal(t, SubscriptionExpired, active.EffectiveStatus(now))

	running := Subscription{Status: SubscriptionActive, EndDate: &future}
	assert.False(t, running.Lapsed(now))
	assert.Equal(t, SubscriptionActive, running.EffectiveStatus(now))

	lifetime := Subscription{Status: SubscriptionActive}
	assert.False(t, lifetime.Lapsed(now))

	cancelled := Subscription{Status: SubscriptionCancelled, EndDate: &past}
	assert.False(t, cancelled.Lapsed(now))
	assert.Equal(t, SubscriptionCancelled, cancelled.EffectiveStatus(now))
}
