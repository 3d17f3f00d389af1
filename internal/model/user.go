// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserRole はユーザーの役割を表す閉じた列挙型。
// 役割間に順序や継承関係はなく、認可は純粋な集合メンバーシップで判定する。
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
	RoleUser      UserRole = "user"
)

// ParseUserRole は文字列をUserRoleに変換する。
// 未知の値はエラーを返す（DBのenum値が壊れている場合のフェイルクローズ）。
func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case RoleAdmin, RoleModerator, RoleUser:
		return UserRole(s), nil
	}
	return "", fmt.Errorf("unknown user role: %q", s)
}

// String はロールのDB表現を返す。
func (r UserRole) String() string {
	return string(r)
}

// User はサービス利用ユーザーを表す。
// 認証パイプラインはこのレコードを読み取るのみで、変更は行わない。
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Role         UserRole
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
