package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/gatekeeper/internal/metrics"
	"github.com/hitoshi/gatekeeper/internal/middleware"
	"github.com/hitoshi/gatekeeper/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証パイプライン
	UserFinder  middleware.UserFinder
	JWTSecret   []byte
	AuthMetrics middleware.AuthRejectionRecorder

	// ハンドラー
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	UserService UserServiceInterface

	// ミドルウェア
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// Prometheusスクレイプ用。nilの場合は/metricsを公開しない。
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging →
//	  （認証不要ルート）AuthRateLimit
//	  （保護ルート）Auth(ロール集合) → GeneralRateLimit
//
// 保護ルートの許可ロール集合はルート登録時に固定され、以後変更されない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)

	authDeps := middleware.AuthDeps{
		Users:   deps.UserFinder,
		Secret:  deps.JWTSecret,
		Metrics: deps.AuthMetrics,
	}

	// --- 認証不要のルート ---

	r.Get("/api/healthchecker", HealthCheck)

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.AuthMiddleware())
		}
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// --- 認証が必要なルート（全ロール） ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(authDeps,
			model.RoleAdmin, model.RoleModerator, model.RoleUser))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/users/me", userHandler.Me)
	})

	// --- Admin専用ルート ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(authDeps, model.RoleAdmin))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/api/users", userHandler.ListUsers)
	})

	// --- 運用エンドポイント ---

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	return r
}

// HealthCheck はサービスの死活確認レスポンスを返す。
// GET /api/healthchecker
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusEnvelope{
		Status:  "success",
		Message: "Authentication service is healthy",
	})
}
