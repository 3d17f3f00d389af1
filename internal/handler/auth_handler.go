package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/hitoshi/gatekeeper/internal/middleware"
	"github.com/hitoshi/gatekeeper/internal/model"
)

// tokenCookieName はベアラートークンを運ぶCookie名。
const tokenCookieName = "token"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, plainPassword string) (*model.User, error)
	Login(ctx context.Context, email, plainPassword string) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
	TokenMaxAge  int // トークンCookieの有効期間（秒）
}

// AuthHandler は登録・ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// RegisterRequest はユーザー登録リクエストのボディ。
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// validate はボディのバリデーションを行い、最初に見つかった問題を返す。
func (req *RegisterRequest) validate() error {
	if req.Name == "" {
		return errors.New("Name is required")
	}
	if req.Email == "" {
		return errors.New("Email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.New("Invalid email")
	}
	if req.Password == "" {
		return errors.New("Password is required")
	}
	if len(req.Password) < 6 {
		return errors.New("Password must be at least 6 characters")
	}
	if req.ConfirmPassword != req.Password {
		return errors.New("Passwords do not match")
	}
	return nil
}

// Register は新規ユーザーを登録する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewBadRequest("Invalid request body"))
		return
	}

	// バリデーション失敗はそのままクライアントに返す（握りつぶさない）
	if err := req.validate(); err != nil {
		middleware.WriteError(w, model.NewBadRequest(err.Error()))
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrEmailExists) {
			middleware.WriteError(w, model.NewConflict(model.ErrEmailExists.Error()))
			return
		}
		if errors.Is(err, model.ErrPasswordTooLong) {
			middleware.WriteError(w, model.NewBadRequest(model.ErrPasswordTooLong.Error()))
			return
		}
		slog.Error("failed to register user", slog.String("error", err.Error()))
		middleware.WriteServerError(w)
		return
	}

	writeJSON(w, http.StatusCreated, newUserEnvelope(user))
}

// LoginRequest はログインリクエストのボディ。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validate はボディのバリデーションを行う。
func (req *LoginRequest) validate() error {
	if req.Email == "" {
		return errors.New("Email is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.New("Invalid email")
	}
	if req.Password == "" {
		return errors.New("Password is required")
	}
	return nil
}

// Login は資格情報を検証し、トークンを発行してCookieにも設定する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewBadRequest("Invalid request body"))
		return
	}

	if err := req.validate(); err != nil {
		middleware.WriteError(w, model.NewBadRequest(err.Error()))
		return
	}

	issued, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrWrongCredentials) {
			middleware.WriteError(w, model.NewUnauthorized(model.ErrWrongCredentials.Error()))
			return
		}
		if errors.Is(err, model.ErrPasswordTooLong) {
			middleware.WriteError(w, model.NewBadRequest(model.ErrPasswordTooLong.Error()))
			return
		}
		slog.Error("failed to login user", slog.String("error", err.Error()))
		middleware.WriteServerError(w)
		return
	}

	// トークンCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    issued,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.TokenMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, TokenEnvelope{
		Status: "success",
		Token:  issued,
	})
}

// Logout はトークンCookieをクリアする。
// トークン自体はステートレスなため、サーバー側で無効化する状態は持たない。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, StatusEnvelope{Status: "success"})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
