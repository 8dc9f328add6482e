package models

import "gorm.io/gorm"

// CourseReview backs the derived course rating. One review per student per
// course; requires a current or completed subscription.
type CourseReview struct {
	gorm.Model
	CourseID  uint `gorm:"not null;uniqueIndex:idx_review_student_course"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_review_student_course"`
	Rating    int  `gorm:"check:rating >= 0 AND rating <= 5"`
	Text      string

	Course  Course `gorm:"foreignKey:CourseID"`
	Student User   `gorm:"foreignKey:StudentID"`
}
