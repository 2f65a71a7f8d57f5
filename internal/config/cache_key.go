package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the active JTI of a user.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// BankSnapshotKey returns the cache key of the normalized question bank.
func (r *CacheKeyStruct) BankSnapshotKey() string {
	return "bank:snapshot"
}

// PracticeProgressKey returns the cache key of a user's practice progress in one category.
func (r *CacheKeyStruct) PracticeProgressKey(userID, categoryKey string) string {
	return fmt.Sprintf("user:%s:practice:%s", userID, categoryKey)
}

// ActiveExamKey returns the cache key of a user's running mock exam.
func (r *CacheKeyStruct) ActiveExamKey(userID string) string {
	return fmt.Sprintf("user:%s:active_exam", userID)
}

var CacheKey = NewCacheKeyStruct()
