package services

import "errors"

var (
	// ErrCourseNotPublished rejects subscribing to draft or archived courses.
	ErrCourseNotPublished = errors.New("course is not published")

	// ErrPaymentRequired rejects subscribing to a paid course without a
	// successful payment on record.
	ErrPaymentRequired = errors.New("payment required")

	// ErrSubscriptionNotActive rejects progress updates on expired or
	// cancelled subscriptions.
	ErrSubscriptionNotActive = errors.New("subscription is not active")

	// ErrInvalidProgress rejects progress values outside [0,100].
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")

	// ErrProgressRegression rejects progress values below the recorded one.
	ErrProgressRegression = errors.New("progress cannot decrease")
)
