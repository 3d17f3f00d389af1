package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/gatekeeper/internal/model"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// logUserHolder は認証ミドルウェアが確定させたユーザーを外側の
// ロギングミドルウェアに伝えるためのリクエスト単位の可変コンテナ。
// ロギングはチェーンの先頭、認証はルートグループ内で走るため、
// 内側でr.WithContextに載せた値は外側のコンテキストには現れない。
// 同一リクエストのゴルーチン内でのみ読み書きする。
type logUserHolder struct {
	user *model.User
}

// logUserHolderKey はロギングミドルウェアが設置するコンテナのキー。
var logUserHolderKey = contextKey("log_user_holder")

// recordUserForLog はコンテキスト内のコンテナに認証済みユーザーを記録する。
// コンテナが無い場合（ロギングミドルウェア未使用）は何もしない。
func recordUserForLog(ctx context.Context, user *model.User) {
	if holder, ok := ctx.Value(logUserHolderKey).(*logUserHolder); ok {
		holder.user = user
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id・role（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			holder := &logUserHolder{}
			r = r.WithContext(context.WithValue(r.Context(), logUserHolderKey, holder))

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			// 認証ミドルウェアがコンテナに記録したユーザーのIDとロールを追加。
			// コンテナが空でも外側コンテキストに直接注入されていれば拾う。
			user := holder.user
			if user == nil {
				if u, err := CurrentUser(r.Context()); err == nil {
					user = u
				}
			}
			if user != nil {
				attrs = append(attrs,
					slog.String("user_id", user.ID.String()),
					slog.String("role", user.Role.String()),
				)
			}

			// slogのログレベルをステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			// slog.Attr をany スライスに変換
			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
