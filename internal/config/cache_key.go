package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionDraftsKey returns the cache key holding a session's unsent answers
func (r *CacheKeyStruct) SessionDraftsKey(sessionID string) string {
	return fmt.Sprintf("candidate:session:%s:drafts", sessionID)
}

var CacheKey = NewCacheKeyStruct()
