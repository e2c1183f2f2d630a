package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CurrentSessionKey returns the cache key for a course's currently live
// QR session (value is the resolved session + QR string, TTL = time to expiry).
func (r *CacheKeyStruct) CurrentSessionKey(courseCode string) string {
	return fmt.Sprintf("course:%s:current_session", courseCode)
}

// AttendanceFeedChannel returns the Redis PubSub channel carrying live
// attendance marks for a course.
func (r *CacheKeyStruct) AttendanceFeedChannel(courseCode string) string {
	return fmt.Sprintf("course:%s:attendance_feed", courseCode)
}

var CacheKey = NewCacheKeyStruct()
