package redis

import (
	"fmt"

	"github.com/google/uuid"
)

// accountKey returns the Redis key for an Account
func (s *Storage) accountKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:account:%s", s.cfg.KeyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> account uuid index
func (s *Storage) usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", s.cfg.KeyPrefix, username)
}

// tokenKey returns the Redis key for an auth token
func (s *Storage) tokenKey(token string) string {
	return fmt.Sprintf("%s:token:%s", s.cfg.KeyPrefix, token)
}
