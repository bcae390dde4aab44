// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/takeshi/shiftman/internal/auth"
	"github.com/takeshi/shiftman/internal/config"
	"github.com/takeshi/shiftman/internal/database"
	"github.com/takeshi/shiftman/internal/department"
	"github.com/takeshi/shiftman/internal/handler"
	"github.com/takeshi/shiftman/internal/instructor"
	"github.com/takeshi/shiftman/internal/invitation"
	"github.com/takeshi/shiftman/internal/logger"
	"github.com/takeshi/shiftman/internal/metrics"
	"github.com/takeshi/shiftman/internal/middleware"
	"github.com/takeshi/shiftman/internal/repository"
	"github.com/takeshi/shiftman/internal/security"
	"github.com/takeshi/shiftman/internal/shift"
	"github.com/takeshi/shiftman/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	invRepo := repository.NewPostgresInvitationRepo(db)
	deptRepo := repository.NewPostgresDepartmentRepo(db)
	shiftTypeRepo := repository.NewPostgresShiftTypeRepo(db)
	certRepo := repository.NewPostgresCertificationRepo(db)
	insRepo := repository.NewPostgresInstructorRepo(db)
	shiftRepo := repository.NewPostgresShiftRepo(db)

	// 3. セキュリティ・メトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	oauthProvider := auth.NewLineOAuthProvider(auth.LineOAuthConfig{
		ChannelID:     cfg.LineChannelID,
		ChannelSecret: cfg.LineChannelSecret,
		RedirectURL:   cfg.LineRedirectURL,
	})
	avatarFetcher := user.NewAvatarFetcher(ssrfGuard, cfg.AvatarFetchTimeout, cfg.AvatarMaxSize)
	sessionCodec := auth.NewSessionCodec(cfg.SessionSecret)
	tokenIssuer := auth.NewTokenIssuer(cfg.SessionSecret, cfg.AuthTokenTTL, cfg.RefreshTokenTTL)
	invValidator := invitation.NewValidator(invRepo)
	authService := auth.NewService(oauthProvider, userRepo, invValidator, avatarFetcher, sessionCodec, collector)

	invService := invitation.NewService(invRepo, sanitizer)
	deptService := department.NewService(deptRepo, sanitizer)
	shiftTypeService := department.NewShiftTypeService(shiftTypeRepo, sanitizer)
	certService := instructor.NewCertificationService(certRepo, sanitizer)
	insService := instructor.NewService(insRepo, certRepo, sanitizer)
	shiftService := shift.NewService(shiftRepo, deptRepo, shiftTypeRepo, insRepo, sanitizer, collector)
	userService := user.NewService(userRepo)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		TokenParser:       tokenIssuer,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:          slog.Default(),
		LatencyObserver: collector,
		Gatherer:        registry,

		AuthService:        authService,
		TokenIssuer:        tokenIssuer,
		InvitationVerifier: invValidator,
		InvitationMetrics:  collector,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:         cfg.BaseURL,
			CookieDomain:    cfg.CookieDomain,
			CookieSecure:    cfg.CookieSecure,
			LoginSessionTTL: cfg.LoginSessionTTL,
		},

		ShiftService:         shiftService,
		DepartmentService:    deptService,
		ShiftTypeService:     shiftTypeService,
		InstructorService:    insService,
		CertificationService: certService,

		InvitationService: invService,
		UserService:       userService,

		DB: db,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
