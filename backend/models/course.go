package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type CourseEvent string

const (
	// CoursePublish makes a draft course visible and subscribable.
	CoursePublish CourseEvent = "publish"
	// CourseArchive retires a published course. Archived is terminal for
	// teachers; only CourseRepublish (admin override) leaves it.
	CourseArchive CourseEvent = "archive"
	// CourseRepublish is the admin-only override returning an archived
	// course to the catalog.
	CourseRepublish CourseEvent = "republish"
)

type courseTransition struct {
	Status CourseStatus
	Event  CourseEvent
}

var courseTransitions = map[courseTransition]CourseStatus{
	{CourseDraft, CoursePublish}:      CoursePublished,
	{CoursePublished, CourseArchive}:  CourseArchived,
	{CourseArchived, CourseRepublish}: CoursePublished,
}

// NextCourseStatus returns the status a course moves to on the given event,
// or ErrInvalidTransition when the pair is not in the transition table.
func NextCourseStatus(current CourseStatus, event CourseEvent) (CourseStatus, error) {
	next, ok := courseTransitions[courseTransition{current, event}]
	if !ok {
		return current, fmt.Errorf("%w: course %s on %s", ErrInvalidTransition, current, event)
	}
	return next, nil
}

type Course struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	Category    string `gorm:"index"`
	Level       string // beginner, intermediate, advanced
	Duration    int    // total length in hours
	Price       decimal.Decimal `gorm:"type:numeric(10,2);default:0"`
	Currency    string          `gorm:"type:varchar(3);default:USD"`
	Status      CourseStatus    `gorm:"type:varchar(16);default:draft;index"`
	TeacherID   uint            `gorm:"index;not null"`

	Teacher  User            `gorm:"foreignKey:TeacherID"`
	Contents []CourseContent `gorm:"constraint:OnDelete:CASCADE"`
}

// Subscribable reports whether students may subscribe to the course.
func (c *Course) Subscribable() bool {
	return c.Status == CoursePublished
}

// Free reports whether the course requires no payment.
func (c *Course) Free() bool {
	return !c.Price.IsPositive()
}

// VisibleTo reports whether a user may see the course at all. Draft and
// archived courses are visible only to the owning teacher and admins.
func (c *Course) VisibleTo(u *User) bool {
	if c.Status == CoursePublished {
		return true
	}
	return u != nil && (u.ID == c.TeacherID || u.Role == RoleAdmin)
}
