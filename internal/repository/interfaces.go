// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hitoshi/gatekeeper/internal/model"
)

// ErrDuplicateEmail はemailの一意制約違反を表す。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザーデータの永続化インターフェース。
// 認証パイプラインはFindByIDのみを消費する（読み取り専用）。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、DB側で採番・付与されたカラムを反映して返す。
	// emailが重複している場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, name, email, passwordHash string) (*model.User, error)

	// List はユーザーを作成日時の降順でlimit件、offset件スキップして返す。
	List(ctx context.Context, limit, offset int) ([]model.User, error)
}
