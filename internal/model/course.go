package model

import "time"

// Course represents a course in the registry, keyed by its code.
type Course struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCourseRequest is the payload for registering a course.
type CreateCourseRequest struct {
	Code string `json:"code" binding:"required,min=1,max=32"`
	Name string `json:"name" binding:"required,min=1,max=100"`
}
