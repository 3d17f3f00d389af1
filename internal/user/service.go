// Package user はユーザー参照のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/gatekeeper/internal/model"
	"github.com/hitoshi/gatekeeper/internal/repository"
)

// ページネーションの既定値と上限。
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Service はユーザー参照のサービス層。
type Service struct {
	users repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// List はユーザー一覧をページ単位で返す。
// pageは1始まり、limitは1〜MaxLimit。範囲外はエラーを返す。
func (s *Service) List(ctx context.Context, page, limit int) ([]model.User, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be 1 or greater, got %d", page)
	}
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, limit)
	}

	offset := (page - 1) * limit

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}
