package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/takeshi/shiftman/internal/metrics"
	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TokenParser       middleware.TokenParser
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	LatencyObserver   middleware.LatencyObserver
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService        AuthServiceInterface
	TokenIssuer        TokenIssuerInterface
	InvitationVerifier InvitationVerifier
	InvitationMetrics  InvitationMetrics
	AuthConfig         AuthHandlerConfig

	// シフト・マスタデータ
	ShiftService         ShiftServiceInterface
	DepartmentService    DepartmentServiceInterface
	ShiftTypeService     ShiftTypeServiceInterface
	InstructorService    InstructorServiceInterface
	CertificationService CertificationServiceInterface

	// ADMIN専用
	InvitationService InvitationServiceInterface
	UserService       UserServiceInterface

	// ヘルスチェック
	DB *sql.DB
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging
//	  認証ルート: RateLimit(Login)
//	  APIルート: Auth → RateLimit(General) → CSRF → (RequireRole)
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.LatencyObserver))

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenIssuer, deps.UserService, deps.InvitationVerifier, deps.InvitationMetrics, deps.AuthConfig)
	shiftHandler := NewShiftHandler(deps.ShiftService)
	deptHandler := NewDepartmentHandler(deps.DepartmentService, deps.ShiftTypeService)
	insHandler := NewInstructorHandler(deps.InstructorService, deps.CertificationService)
	invHandler := NewInvitationHandler(deps.InvitationService)
	userHandler := NewUserHandler(deps.UserService)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（LINEログインフロー）: 認証前に到達するためIP単位のレート制限を適用
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.LoginMiddleware())

		r.Get("/line/login", authHandler.Login)
		r.Get("/line/callback", authHandler.Callback)
		r.Get("/invitations/{token}/verify", authHandler.VerifyInvitation)
		r.Post("/logout", authHandler.Logout)
		r.Post("/refresh", authHandler.Refresh)

		// /me は認証が必要
		r.With(middleware.NewAuthMiddleware(deps.TokenParser)).Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenParser))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		requireManager := middleware.RequireRole(model.RoleManager)

		// シフト管理: 閲覧は全ロール、編集はMANAGER以上
		r.Route("/api/shifts", func(r chi.Router) {
			r.Get("/", shiftHandler.List)
			r.With(requireManager).Post("/", shiftHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", shiftHandler.Get)
				r.With(requireManager).Put("/", shiftHandler.Update)
				r.With(requireManager).Delete("/", shiftHandler.Delete)
			})
		})

		// 部門マスタ
		r.Route("/api/departments", func(r chi.Router) {
			r.Get("/", deptHandler.ListDepartments)
			r.With(requireManager).Post("/", deptHandler.CreateDepartment)
			r.With(requireManager).Put("/{id}", deptHandler.UpdateDepartment)
			r.With(requireManager).Delete("/{id}", deptHandler.DeactivateDepartment)
		})

		// シフト区分マスタ
		r.Route("/api/shift-types", func(r chi.Router) {
			r.Get("/", deptHandler.ListShiftTypes)
			r.With(requireManager).Post("/", deptHandler.CreateShiftType)
			r.With(requireManager).Put("/{id}", deptHandler.UpdateShiftType)
			r.With(requireManager).Delete("/{id}", deptHandler.DeactivateShiftType)
		})

		// インストラクターマスタ
		r.Route("/api/instructors", func(r chi.Router) {
			r.Get("/", insHandler.ListInstructors)
			r.With(requireManager).Post("/", insHandler.CreateInstructor)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", insHandler.GetInstructor)
				r.With(requireManager).Put("/", insHandler.UpdateInstructor)
				r.With(requireManager).Delete("/", insHandler.DeactivateInstructor)
			})
		})

		// 資格マスタ
		r.Route("/api/certifications", func(r chi.Router) {
			r.Get("/", insHandler.ListCertifications)
			r.With(requireManager).Post("/", insHandler.CreateCertification)
			r.With(requireManager).Put("/{id}", insHandler.UpdateCertification)
			r.With(requireManager).Delete("/{id}", insHandler.DeleteCertification)
		})

		// プロフィール画像: 全ロールが閲覧できる
		r.Get("/api/users/{id}/avatar", userHandler.Avatar)

		// ADMIN専用: 招待トークン・ユーザー管理
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", invHandler.List)
				r.Post("/", invHandler.Create)
				r.Patch("/{token}", invHandler.SetActive)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Patch("/{id}/role", userHandler.UpdateRole)
				r.Delete("/{id}", userHandler.Deactivate)
			})
		})
	})

	return r
}
