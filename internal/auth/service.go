// Package auth は登録・ログインのビジネスロジックを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/gatekeeper/internal/model"
	"github.com/hitoshi/gatekeeper/internal/password"
	"github.com/hitoshi/gatekeeper/internal/repository"
	"github.com/hitoshi/gatekeeper/internal/token"
)

// Metrics は認証イベントのメトリクス記録インターフェース。
type Metrics interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	JWTSecret []byte        // トークン署名シークレット
	TokenTTL  time.Duration // 発行するトークンの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
// 可変状態を持たず、並行リクエストから安全に共有できる。
type Service struct {
	users   repository.UserRepository
	config  ServiceConfig
	metrics Metrics // nilの場合は記録しない
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, config ServiceConfig, metrics Metrics) *Service {
	return &Service{
		users:   users,
		config:  config,
		metrics: metrics,
	}
}

// Register は新規ユーザーを登録する。
// パスワードはargon2idでハッシュ化して保存し、平文は保持しない。
// emailが登録済みの場合はmodel.ErrEmailExistsを返す。
func (s *Service) Register(ctx context.Context, name, email, plainPassword string) (*model.User, error) {
	hashed, err := password.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, hashed)
	if err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, model.ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	slog.Info("new user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login はemailとパスワードを検証し、署名付きトークンを発行する。
// 未知のemailとパスワード不一致はどちらもmodel.ErrWrongCredentialsとして
// 返し、呼び出し側にアカウントの存在有無を区別させない。
func (s *Service) Login(ctx context.Context, email, plainPassword string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		s.recordLoginFailure("unknown_email")
		return "", model.ErrWrongCredentials
	}

	ok, err := password.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		// 保存済みハッシュの破損はサーバー側の障害であり、認証失敗とは区別する
		return "", fmt.Errorf("failed to verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		s.recordLoginFailure("wrong_password")
		return "", model.ErrWrongCredentials
	}

	issued, err := token.Issue(user.ID.String(), s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	slog.Info("user logged in",
		slog.String("user_id", user.ID.String()),
	)

	return issued, nil
}

func (s *Service) recordLoginFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure(reason)
	}
}
