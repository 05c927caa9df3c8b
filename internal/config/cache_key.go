package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TutorExplanationKey returns the hot-cache key for one explanation,
// keyed on the same composite as the durable tutor_explanations table.
func (r *CacheKeyStruct) TutorExplanationKey(attemptID, questionID string) string {
	return fmt.Sprintf("tutor:attempt:%s:question:%s", attemptID, questionID)
}

var CacheKey = NewCacheKeyStruct()
