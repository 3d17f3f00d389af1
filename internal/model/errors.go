// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"net/http"
)

// MaxPasswordLength はパスワードの最大長（バイト）。
const MaxPasswordLength = 64

// クライアントに返すメッセージを持つセンチネルエラー。
// 認証の内部判定を漏らさないよう、メッセージはカテゴリ単位で固定する
// （例: InvalidTokenは署名不一致・期限切れ・構造不正を区別しない）。
var (
	ErrEmptyPassword     = errors.New("Password cannot be empty")
	ErrPasswordTooLong   = fmt.Errorf("Password cannot exceed %d characters", MaxPasswordLength)
	ErrHashingFailed     = errors.New("Error hashing password")
	ErrInvalidHashFormat = errors.New("Invalid hash format")
	ErrInvalidSubject    = errors.New("Invalid token subject")
	ErrInvalidToken      = errors.New("Invalid token")
	ErrWrongCredentials  = errors.New("Email or password is incorrect")
	ErrEmailExists       = errors.New("Email already exist")
	ErrUserNoLongerExist = errors.New("User no longer exist")
	ErrTokenNotProvided  = errors.New("Token not provided")
	ErrPermissionDenied  = errors.New("Permission denied")
	ErrServerError       = errors.New("Server error, Please try again later")
)

// HTTPError はHTTPステータスコードとクライアント向けメッセージの組。
// 内部エラーの詳細はここに載せない（ログにのみ記録する）。
type HTTPError struct {
	Status  int
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HttpError: message %s, status %d", e.Message, e.Status)
}

// NewBadRequest は400エラーを生成する。
func NewBadRequest(message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Message: message}
}

// NewUnauthorized は401エラーを生成する。
func NewUnauthorized(message string) *HTTPError {
	return &HTTPError{Status: http.StatusUnauthorized, Message: message}
}

// NewForbidden は403エラーを生成する。
func NewForbidden(message string) *HTTPError {
	return &HTTPError{Status: http.StatusForbidden, Message: message}
}

// NewConflict は409エラーを生成する。
func NewConflict(message string) *HTTPError {
	return &HTTPError{Status: http.StatusConflict, Message: message}
}

// NewServerError は500エラーを生成する。
// 呼び出し元の具体的なエラー内容は受け取らない。詳細はログへ。
func NewServerError() *HTTPError {
	return &HTTPError{Status: http.StatusInternalServerError, Message: ErrServerError.Error()}
}
