package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelviera/shoplane-backend/api/routes"
	"github.com/angelviera/shoplane-backend/internal/auth"
	"github.com/angelviera/shoplane-backend/internal/blogs"
	"github.com/angelviera/shoplane-backend/internal/cart"
	"github.com/angelviera/shoplane-backend/internal/categories"
	"github.com/angelviera/shoplane-backend/internal/comments"
	"github.com/angelviera/shoplane-backend/internal/orders"
	"github.com/angelviera/shoplane-backend/internal/products"
	"github.com/angelviera/shoplane-backend/internal/sellers"
	"github.com/angelviera/shoplane-backend/internal/users"
	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"github.com/angelviera/shoplane-backend/pkg/mail"
	"github.com/angelviera/shoplane-backend/pkg/metrics"
	"github.com/angelviera/shoplane-backend/pkg/migrate"
	"github.com/angelviera/shoplane-backend/pkg/redis"
	"github.com/angelviera/shoplane-backend/pkg/storage/local"
	"github.com/joho/godotenv"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	minter, err := pkgauth.NewMinter(cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create token minter", err)
		os.Exit(1)
	}

	mailer := mail.New(cfg.Mail, logg)

	fileStore, err := local.New(cfg.Uploads, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare upload storage", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	addressRepo := users.NewAddressRepository(conn)
	refreshRepo := auth.NewRefreshTokenRepository(conn)
	codeRepo := auth.NewVerificationCodeRepository(conn)
	sellerRepo := sellers.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	verificationService, err := auth.NewVerificationService(auth.VerificationServiceParams{
		UserRepo: userRepo,
		CodeRepo: codeRepo,
		TxRunner: dbClient,
		Mailer:   mailer,
		Config:   cfg.Verification,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		UserRepo:         userRepo,
		RefreshTokenRepo: refreshRepo,
		TxRunner:         dbClient,
		Codes:            verificationService,
		Minter:           minter,
		RefreshTTL:       cfg.JWT.RefreshTTL(),
		PasswordConfig:   cfg.Password,
		Logger:           logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:         userRepo,
		RefreshTokenRepo: refreshRepo,
		TxRunner:         dbClient,
		Minter:           minter,
		RefreshTTL:       cfg.JWT.RefreshTTL(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	passwordResetService, err := auth.NewPasswordResetService(auth.PasswordResetServiceParams{
		UserRepo:         userRepo,
		RefreshTokenRepo: refreshRepo,
		TxRunner:         dbClient,
		Minter:           minter,
		PasswordConfig:   cfg.Password,
		Mailer:           mailer,
		Logger:           logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create password reset service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		UserRepo:       userRepo,
		AddressRepo:    addressRepo,
		TxRunner:       dbClient,
		Files:          fileStore,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	sellersService, err := sellers.NewService(sellers.ServiceParams{
		SellerRepo: sellerRepo,
		UserRepo:   userRepo,
		TxRunner:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sellers service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(products.ServiceParams{
		ProductRepo: productRepo,
		SellerRepo:  sellerRepo,
		TxRunner:    dbClient,
		Files:       fileStore,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	categoriesService, err := categories.NewService(categories.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create categories service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		CartRepo:    cartRepo,
		ProductRepo: productRepo,
		TxRunner:    dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		OrderRepo:   orderRepo,
		CartRepo:    cartRepo,
		AddressRepo: addressRepo,
		SellerRepo:  sellerRepo,
		TxRunner:    dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	blogsService, err := blogs.NewService(blogs.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create blogs service", err)
		os.Exit(1)
	}

	commentsService, err := comments.NewService(comments.NewRepository(conn), comments.DefaultRegistry(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create comments service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics()

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, httpMetrics, minter, userRepo, routes.Services{
		Auth:          authService,
		Register:      registerService,
		Verification:  verificationService,
		PasswordReset: passwordResetService,
		Users:         usersService,
		Sellers:       sellersService,
		Products:      productsService,
		Categories:    categoriesService,
		Cart:          cartService,
		Orders:        ordersService,
		Blogs:         blogsService,
		Comments:      commentsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithFields(ctx, map[string]any{"signal": sig.String()}), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
