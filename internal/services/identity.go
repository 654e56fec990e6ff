package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/thereayou/chatflow/pkg/auth"
)

var ErrAuthFailure = errors.New("authentication failed")

const blacklistPrefix = "blacklist:"

// IdentityVerifier проверяет токен и возвращает ID пользователя
type IdentityVerifier interface {
	VerifyCredential(ctx context.Context, token string) (uuid.UUID, error)
}

// Blacklist хранит отозванные токены до их истечения
type Blacklist interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

type RedisBlacklist struct {
	rdb *redis.Client
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb}
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistPrefix+token, 1, ttl).Err()
}

// TokenVerifier проверяет подпись JWT и черный список
type TokenVerifier struct {
	jwt       *auth.JWTManager
	blacklist Blacklist
}

func NewTokenVerifier(jwtMgr *auth.JWTManager, blacklist Blacklist) *TokenVerifier {
	return &TokenVerifier{jwt: jwtMgr, blacklist: blacklist}
}

func (v *TokenVerifier) VerifyCredential(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrAuthFailure, auth.ErrMissingToken)
	}

	// Если черный список недоступен, токен не принимаем
	if v.blacklist != nil {
		revoked, err := v.blacklist.IsRevoked(ctx, token)
		if err != nil || revoked {
			return uuid.Nil, fmt.Errorf("%w: token revoked", ErrAuthFailure)
		}
	}

	userID, err := v.jwt.UserID(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	return userID, nil
}

// Revoke добавляет токен в черный список до конца его жизни
func (v *TokenVerifier) Revoke(ctx context.Context, token string) error {
	exp, err := v.jwt.Expiry(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	if v.blacklist == nil {
		return nil
	}
	return v.blacklist.Revoke(ctx, token, time.Until(exp))
}
