package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/gatekeeper/internal/middleware"
	"github.com/hitoshi/gatekeeper/internal/model"
	"github.com/hitoshi/gatekeeper/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, page, limit int) ([]model.User, error)
}

// UserHandler はユーザー参照のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// Me は現在の認証済みユーザー情報を返す。
// 認証ミドルウェアの後段に配置される前提。コンテキストにユーザーがいない
// 場合は配線ミスなので500を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	current, err := middleware.CurrentUser(r.Context())
	if err != nil {
		slog.Error("authenticated route reached without identity in context",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, newUserEnvelope(current))
}

// ListUsers はユーザー一覧をページ単位で返す。Admin専用ルート。
// GET /api/users?page=1&limit=10
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", user.DefaultPage)
	if err != nil || page < 1 {
		middleware.WriteError(w, model.NewBadRequest("page must be a positive integer"))
		return
	}

	limit, err := queryInt(r, "limit", user.DefaultLimit)
	if err != nil || limit < 1 || limit > user.MaxLimit {
		middleware.WriteError(w, model.NewBadRequest(
			fmt.Sprintf("limit must be an integer between 1 and %d", user.MaxLimit)))
		return
	}

	users, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		slog.Error("failed to list users", slog.String("error", err.Error()))
		middleware.WriteServerError(w)
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, filterUser(&users[i]))
	}

	writeJSON(w, http.StatusOK, UserListEnvelope{
		Status:  "success",
		Results: len(responses),
		Data:    responses,
	})
}

// queryInt はクエリパラメータを整数として読み取る。未指定ならデフォルト値を返す。
func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}
