// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/gatekeeper/internal/model"
	"github.com/hitoshi/gatekeeper/internal/token"
)

// tokenCookieName はベアラートークンを運ぶCookie名。
const tokenCookieName = "token"

// bearerPrefix はAuthorizationヘッダーの接頭辞（大文字小文字を区別する）。
const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("auth_user")

// UserFinder は認証パイプラインが必要とするユーザー検索インターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// AuthRejectionRecorder は認可拒否のメトリクス記録インターフェース。
type AuthRejectionRecorder interface {
	RecordAuthRejected(reason string)
}

// AuthDeps は認証ミドルウェアの依存関係。
// 署名シークレットと許可ロール集合は構築時に固定し、以後変更しない。
type AuthDeps struct {
	Users  UserFinder
	Secret []byte
	// Metrics は省略可能。nilの場合は記録しない。
	Metrics AuthRejectionRecorder
}

// NewAuthMiddleware はリクエストごとの認証・認可パイプラインを返す。
//
// 処理は次の順で行い、最初に失敗した段階で打ち切る（フェイルクローズ）:
//
//  1. 資格情報の抽出: Cookie「token」、なければAuthorizationヘッダーの
//     「Bearer 」接頭辞。どちらも無ければ401（Token not provided）。
//     接頭辞が不正なヘッダーも資格情報なしとして扱い、プロセスを落とさない。
//  2. トークン検証: 署名・有効期限を検証しsubjectを取り出す。失敗は401。
//     subjectがUUIDとして解析できない場合はサーバー側の整合性異常として
//     ログに記録した上で、同じく401（Invalid token）で当該リクエストのみ拒否する。
//  3. ユーザー解決: ディレクトリから現在のユーザーレコードを取得する。
//     検索自体の失敗は詳細を伏せた500、レコード消失は401（User no longer exist）。
//  4. 認可: ユーザーのロールが許可集合に含まれるか判定する。含まれなければ
//     403（Permission denied）。通過したらユーザーをリクエストコンテキストに
//     添付して後続ハンドラーへ進む。
//
// ミドルウェア自体は可変状態を持たず、任意の並行リクエストに対して安全。
func NewAuthMiddleware(deps AuthDeps, allowedRoles ...model.UserRole) func(next http.Handler) http.Handler {
	allowed := make(map[model.UserRole]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. 資格情報の抽出
			credential := extractCredential(r)
			if credential == "" {
				deps.recordRejection("token_not_provided")
				WriteError(w, model.NewUnauthorized(model.ErrTokenNotProvided.Error()))
				return
			}

			// 2. トークン検証
			subject, err := token.Verify(credential, deps.Secret)
			if err != nil {
				deps.recordRejection("invalid_token")
				WriteError(w, model.NewUnauthorized(err.Error()))
				return
			}

			userID, err := uuid.Parse(subject)
			if err != nil {
				// 発行側しかsubjectを作れないため、ここに来るのは鍵漏洩か発行側の不具合。
				slog.Error("token subject is not a valid user ID",
					slog.String("subject", subject),
					slog.String("error", err.Error()),
				)
				deps.recordRejection("invalid_subject")
				WriteError(w, model.NewUnauthorized(model.ErrInvalidToken.Error()))
				return
			}

			// 3. ユーザー解決
			user, err := deps.Users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to resolve user for token subject",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()),
				)
				deps.recordRejection("resolver_error")
				WriteError(w, model.NewServerError())
				return
			}
			if user == nil {
				deps.recordRejection("user_gone")
				WriteError(w, model.NewUnauthorized(model.ErrUserNoLongerExist.Error()))
				return
			}

			// 4. 認可（ロール集合のメンバーシップ判定）
			if _, ok := allowed[user.Role]; !ok {
				deps.recordRejection("permission_denied")
				WriteError(w, model.NewForbidden(model.ErrPermissionDenied.Error()))
				return
			}

			recordUserForLog(r.Context(), user)

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractCredential はCookieまたはAuthorizationヘッダーからトークン文字列を取り出す。
// どちらからも取れない場合は空文字を返す。
func extractCredential(r *http.Request) string {
	if cookie, err := r.Cookie(tokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return header[len(bearerPrefix):]
	}

	return ""
}

func (d AuthDeps) recordRejection(reason string) {
	if d.Metrics != nil {
		d.Metrics.RecordAuthRejected(reason)
	}
}

// CurrentUser はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。それ以外での呼び出しは
// ルーティングの配線ミスを示すため、エラーを返す。
func CurrentUser(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("authenticated user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
