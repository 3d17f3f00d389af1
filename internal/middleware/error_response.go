package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gatekeeper/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// statusは原則「fail」。想定外のステータスコードのみ「error」になる。
type ErrorResponseBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WriteError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// 対応するステータスコードは400/401/403/409/500のみ。それ以外が渡された
// 場合は配線ミスとして警告ログを出し、一般的な500に落とす。
func WriteError(w http.ResponseWriter, httpErr *model.HTTPError) {
	switch httpErr.Status {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusConflict,
		http.StatusInternalServerError:
		writeJSONError(w, httpErr.Status, ErrorResponseBody{
			Status:  "fail",
			Message: httpErr.Message,
		})
	default:
		slog.Warn("unmapped error status code, converting to 500",
			slog.Int("status", httpErr.Status),
		)
		writeJSONError(w, http.StatusInternalServerError, ErrorResponseBody{
			Status:  "error",
			Message: model.ErrServerError.Error(),
		})
	}
}

// WriteServerError は詳細を伏せた500レスポンスを書き込む。
// 内部エラーの内容はログのみに記録し、クライアントには渡さない。
func WriteServerError(w http.ResponseWriter) {
	WriteError(w, model.NewServerError())
}

func writeJSONError(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
