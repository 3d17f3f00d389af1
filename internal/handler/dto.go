// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"time"

	"github.com/hitoshi/gatekeeper/internal/model"
)

// UserResponse はクライアントに返すユーザー表現。
// パスワードハッシュなどの内部フィールドは含めない。
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// filterUser はmodel.Userを外部公開用のUserResponseに変換する。
func filterUser(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// userData はユーザー1件のデータ部。
type userData struct {
	User UserResponse `json:"user"`
}

// UserEnvelope はユーザー1件を返すレスポンス。
type UserEnvelope struct {
	Status string   `json:"status"`
	Data   userData `json:"data"`
}

// UserListEnvelope はユーザー一覧を返すレスポンス。
type UserListEnvelope struct {
	Status  string         `json:"status"`
	Results int            `json:"results"`
	Data    []UserResponse `json:"data"`
}

// TokenEnvelope はログイン成功時のレスポンス。
type TokenEnvelope struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// StatusEnvelope は追加データのない成功・通知レスポンス。
type StatusEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func newUserEnvelope(u *model.User) UserEnvelope {
	return UserEnvelope{
		Status: "success",
		Data:   userData{User: filterUser(u)},
	}
}
