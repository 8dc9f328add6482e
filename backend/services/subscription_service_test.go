package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegate/backend/models"
	"coursegate/backend/store"
)

func TestSubscribeFreeCourse(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "0", models.CoursePublished)

	sub, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, 0, sub.Progress)
	assert.False(t, sub.Completed)
	assert.Nil(t, sub.EndDate, "free courses have no fixed end")
}

func TestSubscribeIdempotent(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "0", models.CoursePublished)

	first, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)
	second, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.SubscriptionActive, second.Status)

	var count int64
	testDB.Model(&models.Subscription{}).
		Where("student_id = ? AND course_id = ?", student.ID, course.ID).
		Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSubscribeConcurrentSingleRow(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "0", models.CoursePublished)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = subs.Subscribe(student.ID, course.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	var count int64
	testDB.Model(&models.Subscription{}).
		Where("student_id = ? AND course_id = ?", student.ID, course.ID).
		Count(&count)
	assert.EqualValues(t, 1, count, "concurrent subscribes must not duplicate the row")
}

func TestSubscribeUnpublishedCourse(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)

	draft := newCourse(t, teacher, "0", models.CourseDraft)
	_, err := subs.Subscribe(student.ID, draft.ID)
	assert.ErrorIs(t, err, ErrCourseNotPublished)

	archived := newCourse(t, teacher, "0", models.CourseArchived)
	_, err = subs.Subscribe(student.ID, archived.ID)
	assert.ErrorIs(t, err, ErrCourseNotPublished)
}

func TestSubscribePaidCourseRequiresPayment(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "49.90", models.CoursePublished)

	_, err := subs.Subscribe(student.ID, course.ID)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	recordPaidPayment(t, student, course)
	sub, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.EndDate, "paid courses run for the configured period")
	assert.WithinDuration(t, time.Now().AddDate(0, 0, testCfg.SubscriptionDays), *sub.EndDate, time.Minute)
}

func TestSubscribeUnknownIDs(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "0", models.CoursePublished)

	_, err := subs.Subscribe(student.ID, 999999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = subs.Subscribe(999999, course.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubscribeRejectsNonStudent(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	other := newUser(t, models.RoleTeacher)
	course := newCourse(t, teacher, "0", models.CoursePublished)

	_, err := subs.Subscribe(other.ID, course.ID)
	assert.ErrorIs(t, err, store.ErrConstraintViolation)
}

func TestResubscribeReusesRow(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "0", models.CoursePublished)

	first, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)

	_, err = subs.Cancel(first.ID)
	require.NoError(t, err)

	testDB.Model(&models.Subscription{}).Where("id = ?", first.ID).
		Updates(map[string]interface{}{"progress": 40})

	again, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "resubscribe must reuse the row")
	assert.Equal(t, models.SubscriptionActive, again.Status)
	assert.Equal(t, 0, again.Progress, "new cycle starts from zero")
	assert.False(t, again.Completed)
}

func TestCancelIdempotent(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "0", models.CoursePublished)

	sub, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)

	cancelled, err := subs.Cancel(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, cancelled.Status)

	again, err := subs.Cancel(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, again.Status)
}

func TestCancelLapsedIsNoop(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "10.00", models.CoursePublished)
	recordPaidPayment(t, student, course)

	sub, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)

	subs.now = func() time.Time { return time.Now().AddDate(0, 0, testCfg.SubscriptionDays+1) }

	result, err := subs.Cancel(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, result.Status,
		"cancel on a lapsed subscription normalizes to expired, not cancelled")
}

func TestExpireLazyAndSweepAgree(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	course := newCourse(t, teacher, "10.00", models.CoursePublished)

	lazy := newUser(t, models.RoleStudent)
	swept := newUser(t, models.RoleStudent)
	recordPaidPayment(t, lazy, course)
	recordPaidPayment(t, swept, course)

	lazySub, err := subs.Subscribe(lazy.ID, course.ID)
	require.NoError(t, err)
	sweptSub, err := subs.Subscribe(swept.ID, course.ID)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	testDB.Model(&models.Subscription{}).
		Where("id IN ?", []uint{lazySub.ID, sweptSub.ID}).
		Update("end_date", past)

	// Lazy path
	result, err := subs.Expire(lazySub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, result.Status)

	// Sweep path
	n, err := subs.ExpireDue()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
	assert.Equal(t, models.SubscriptionExpired, reloadSubscription(t, sweptSub.ID).Status)

	// Both paths end in the same observable state
	assert.Equal(t, reloadSubscription(t, lazySub.ID).Status, reloadSubscription(t, sweptSub.ID).Status)
}

func TestResubscribeAfterExpiry(t *testing.T) {
	subs, _, _ := newServices()
	teacher := newUser(t, models.RoleTeacher)
	student := newUser(t, models.RoleStudent)
	course := newCourse(t, teacher, "10.00", models.CoursePublished)
	recordPaidPayment(t, student, course)

	sub, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	testDB.Model(&models.Subscription{}).Where("id = ?", sub.ID).Update("end_date", past)

	renewed, err := subs.Subscribe(student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, renewed.ID)
	assert.Equal(t, models.SubscriptionActive, renewed.Status)
	require.NotNil(t, renewed.EndDate)
	assert.True(t, renewed.EndDate.After(time.Now()))
}
