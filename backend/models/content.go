package models

import "gorm.io/gorm"

type ContentType string

const (
	ContentVideo      ContentType = "video"
	ContentDocument   ContentType = "document"
	ContentAssignment ContentType = "assignment"
	ContentQuiz       ContentType = "quiz"
	ContentText       ContentType = "text"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentVideo, ContentDocument, ContentAssignment, ContentQuiz, ContentText:
		return true
	}
	return false
}

type CourseContent struct {
	gorm.Model
	CourseID    uint   `gorm:"index;not null;uniqueIndex:idx_content_course_order"`
	Title       string `gorm:"not null"`
	Description string
	Type        ContentType `gorm:"type:varchar(16);default:text"`
	FileURL     string
	FileSize    int64
	Duration    int // minutes, for video
	SortOrder   int `gorm:"uniqueIndex:idx_content_course_order"`
	IsFree      bool `gorm:"default:false"` // preview material, no subscription needed

	Course Course `gorm:"foreignKey:CourseID"`
}
