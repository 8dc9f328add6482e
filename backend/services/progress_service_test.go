package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegate/backend/models"
	"coursegate/backend/store"
)

func activeSubscription(t *testing.T, subs *SubscriptionService) *models.Subscription {
	t.Helper()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "0", models.CoursePublished)
	sub, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)
	return sub
}

func TestRecordProgressRange(t *testing.T) {
	subs, _, progress := newServices()
	sub := activeSubscription(t, subs)

	_, err := progress.RecordProgress(sub.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidProgress)

	_, err = progress.RecordProgress(sub.ID, 101)
	assert.ErrorIs(t, err, ErrInvalidProgress)

	assert.Equal(t, 0, reloadSubscription(t, sub.ID).Progress, "rejection leaves the row unchanged")
}

func TestRecordProgressCompletion(t *testing.T) {
	subs, _, progress := newServices()
	sub := activeSubscription(t, subs)

	updated, err := progress.RecordProgress(sub.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, updated.Progress)
	assert.False(t, updated.Completed)

	updated, err = progress.RecordProgress(sub.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, updated.Progress)
	assert.True(t, updated.Completed, "completed is true exactly at 100")
}

func TestRecordProgressMonotonic(t *testing.T) {
	subs, _, progress := newServices()
	sub := activeSubscription(t, subs)

	_, err := progress.RecordProgress(sub.ID, 100)
	require.NoError(t, err)

	_, err = progress.RecordProgress(sub.ID, 99)
	assert.ErrorIs(t, err, ErrProgressRegression)

	row := reloadSubscription(t, sub.ID)
	assert.Equal(t, 100, row.Progress)
	assert.True(t, row.Completed)
}

func TestRecordProgressSameValueOK(t *testing.T) {
	subs, _, progress := newServices()
	sub := activeSubscription(t, subs)

	_, err := progress.RecordProgress(sub.ID, 30)
	require.NoError(t, err)
	updated, err := progress.RecordProgress(sub.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, updated.Progress)
}

func TestRecordProgressRequiresActive(t *testing.T) {
	subs, _, progress := newServices()
	sub := activeSubscription(t, subs)

	_, err := subs.Cancel(sub.ID)
	require.NoError(t, err)

	_, err = progress.RecordProgress(sub.ID, 10)
	assert.ErrorIs(t, err, ErrSubscriptionNotActive)
	assert.Equal(t, 0, reloadSubscription(t, sub.ID).Progress)
}

func TestRecordProgressLapsedSubscription(t *testing.T) {
	subs, _, progress := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "10.00", models.CoursePublished)
	recordPaidPayment(t, student, course)
	sub, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	testDB.Model(&models.Subscription{}).Where("id = ?", sub.ID).Update("end_date", past)

	_, err = progress.RecordProgress(sub.ID, 10)
	assert.ErrorIs(t, err, ErrSubscriptionNotActive)
	// The lazy expiry inside the mutating path flipped the row.
	assert.Equal(t, models.SubscriptionExpired, reloadSubscription(t, sub.ID).Status)
}

func TestRecordProgressUnknownSubscription(t *testing.T) {
	_, _, progress := newServices()
	_, err := progress.RecordProgress(999999, 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
