package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// AssessmentQuestionsKey returns the cache key for an assessment's
// learner-facing (answer-stripped) question payload.
func (r *CacheKeyStruct) AssessmentQuestionsKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:questions", assessmentID)
}

// EvaluationResponseKey returns the cache key for a cached LLM evaluation
// response, keyed by a content hash of the prompt.
func (r *CacheKeyStruct) EvaluationResponseKey(hash string) string {
	return fmt.Sprintf("llm:eval:%s", hash)
}

// AssessmentMonitorChannel returns the Redis PubSub channel name carrying
// live session events for an assessment.
func (r *CacheKeyStruct) AssessmentMonitorChannel(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:monitor", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
