package cmd

import (
	"database/sql"
	"fmt"
	"net"

	"github.com/vibast-solutions/ms-go-identity/app/controller"
	"github.com/vibast-solutions/ms-go-identity/app/mailer"
	"github.com/vibast-solutions/ms-go-identity/app/middleware"
	"github.com/vibast-solutions/ms-go-identity/app/repository"
	"github.com/vibast-solutions/ms-go-identity/app/service"
	"github.com/vibast-solutions/ms-go-identity/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the identity service.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	codec, err := service.NewTokenCodec(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build token codec")
	}

	authService := service.NewAuthService(
		repository.NewUserRepository(db),
		service.NewIdentityCache(rdb, cfg.IdentityCacheTTL),
		codec,
		newSender(cfg),
		cfg,
	)

	startHTTPServer(cfg, authService, db)
}

// newSender picks Postmark when a server token is configured, otherwise the
// log-only sender for local development.
func newSender(cfg *config.Config) mailer.Sender {
	if cfg.PostmarkServerToken != "" {
		logrus.Info("Using Postmark email sender")
		return mailer.NewPostmarkSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.MailFrom, cfg.MailFromName)
	}
	logrus.Warn("POSTMARK_SERVER_TOKEN not set, emails will only be logged")
	return mailer.NewLogSender()
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	return nil
}

func startHTTPServer(cfg *config.Config, authService *service.AuthService, db *sql.DB) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	authController := controller.NewAuthController(authService)
	usersController := controller.NewUsersController(authService, db)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	auth := e.Group("/auth")
	auth.POST("/signup", authController.Signup)
	auth.POST("/login", authController.Login)
	auth.GET("/refresh_token", authController.RefreshToken)
	auth.GET("/confirmed_email/:token", authController.ConfirmEmail)
	auth.POST("/request_email", authController.RequestEmail)
	auth.POST("/forgot_password", authController.ForgotPassword)
	auth.POST("/reset_password", authController.ResetPassword)

	authProtected := auth.Group("")
	authProtected.Use(authMiddleware.RequireAuth)
	authProtected.POST("/logout", authController.Logout)

	users := e.Group("/users")
	users.Use(authMiddleware.RequireAuth)
	users.GET("/me", usersController.Me)
	users.PATCH("/avatar", usersController.UpdateAvatar)

	e.GET("/api/healthchecker", usersController.Healthcheck)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
