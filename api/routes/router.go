package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authcontrollers "github.com/angelviera/shoplane-backend/api/controllers/auth"
	blogcontrollers "github.com/angelviera/shoplane-backend/api/controllers/blogs"
	cartcontrollers "github.com/angelviera/shoplane-backend/api/controllers/cart"
	categorycontrollers "github.com/angelviera/shoplane-backend/api/controllers/categories"
	commentcontrollers "github.com/angelviera/shoplane-backend/api/controllers/comments"
	healthcontrollers "github.com/angelviera/shoplane-backend/api/controllers/health"
	ordercontrollers "github.com/angelviera/shoplane-backend/api/controllers/orders"
	productcontrollers "github.com/angelviera/shoplane-backend/api/controllers/products"
	sellercontrollers "github.com/angelviera/shoplane-backend/api/controllers/sellers"
	usercontrollers "github.com/angelviera/shoplane-backend/api/controllers/users"
	"github.com/angelviera/shoplane-backend/api/middleware"
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
	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"github.com/angelviera/shoplane-backend/pkg/metrics"
	"github.com/angelviera/shoplane-backend/pkg/redis"
)

// Services bundles the domain services mounted by the router.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	Verification  auth.VerificationService
	PasswordReset auth.PasswordResetService
	Users         users.Service
	Sellers       sellers.Service
	Products      products.Service
	Categories    categories.Service
	Cart          cart.Service
	Orders        orders.Service
	Blogs         blogs.Service
	Comments      comments.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	minter *pkgauth.Minter,
	userRepo *users.Repository,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	// Guard against a typed nil ending up inside the interfaces.
	var limiter middleware.RateLimiterStore
	var cache db.Pinger
	if redisClient != nil {
		limiter = redisClient
		cache = redisClient
	}

	authed := middleware.Auth(minter, userRepo, logg)
	sellerOnly := middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleAdmin)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", healthcontrollers.Live())
		r.Get("/ready", healthcontrollers.Ready(database, cache, logg))
	})
	if httpMetrics != nil {
		r.Handle("/metrics", httpMetrics.Handler())
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).
			Post("/register", authcontrollers.Register(svcs.Register, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).
			Post("/login", authcontrollers.Login(svcs.Auth, logg))
		r.Post("/refresh-token", authcontrollers.Refresh(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).
			Post("/forgot-password", authcontrollers.ForgotPassword(svcs.PasswordReset, logg))
		r.Post("/reset-password", authcontrollers.ResetPassword(svcs.PasswordReset, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).
				Post("/verify-email/request", authcontrollers.RequestVerificationCode(svcs.Verification, logg))
			r.Post("/verify-email", authcontrollers.VerifyEmail(svcs.Verification, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(authed)
		r.Get("/me", usercontrollers.Me(svcs.Users, logg))
		r.Put("/me", usercontrollers.UpdateProfile(svcs.Users, logg))
		r.Put("/me/password", usercontrollers.ChangePassword(svcs.Users, logg))
		r.Post("/me/photo", usercontrollers.UploadPhoto(svcs.Users, cfg.Uploads, logg))
		r.Delete("/me/photo", usercontrollers.DeletePhoto(svcs.Users, logg))

		r.Route("/me/addresses", func(r chi.Router) {
			r.Get("/", usercontrollers.ListAddresses(svcs.Users, logg))
			r.Post("/", usercontrollers.CreateAddress(svcs.Users, logg))
			r.Put("/{addressID}", usercontrollers.UpdateAddress(svcs.Users, logg))
			r.Delete("/{addressID}", usercontrollers.DeleteAddress(svcs.Users, logg))
			r.Post("/{addressID}/default", usercontrollers.SetDefaultAddress(svcs.Users, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", productcontrollers.List(svcs.Products, logg))
		r.Get("/{productID}", productcontrollers.Get(svcs.Products, logg))
		r.Get("/{productID}/comments", productcontrollers.ListComments(svcs.Comments, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed, sellerOnly)
			r.Post("/", productcontrollers.Create(svcs.Products, logg))
			r.Put("/{productID}", productcontrollers.Update(svcs.Products, logg))
			r.Delete("/{productID}", productcontrollers.Delete(svcs.Products, logg))
			r.Post("/{productID}/features", productcontrollers.AddFeature(svcs.Products, logg))
			r.Delete("/{productID}/features/{featureID}", productcontrollers.DeleteFeature(svcs.Products, logg))
			r.Post("/{productID}/images", productcontrollers.AddImage(svcs.Products, cfg.Uploads, logg))
			r.Put("/{productID}/images/{imageID}/main", productcontrollers.SetMainImage(svcs.Products, logg))
			r.Delete("/{productID}/images/{imageID}", productcontrollers.DeleteImage(svcs.Products, logg))
		})
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", categorycontrollers.List(svcs.Categories, logg))
		r.Get("/{categoryID}", categorycontrollers.Get(svcs.Categories, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed, adminOnly)
			r.Post("/", categorycontrollers.Create(svcs.Categories, logg))
			r.Put("/{categoryID}", categorycontrollers.Update(svcs.Categories, logg))
			r.Delete("/{categoryID}", categorycontrollers.Delete(svcs.Categories, logg))
		})
	})

	r.Route("/api/v1/sellers", func(r chi.Router) {
		r.Use(authed)
		r.Post("/register", sellercontrollers.Register(svcs.Sellers, logg))

		r.Group(func(r chi.Router) {
			r.Use(sellerOnly)
			r.Get("/me", sellercontrollers.Me(svcs.Sellers, logg))
			r.Put("/me", sellercontrollers.UpdateProfile(svcs.Sellers, logg))
			r.Get("/me/products", sellercontrollers.MyProducts(svcs.Products, logg))
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(authed)
		r.Get("/", cartcontrollers.Get(svcs.Cart, logg))
		r.Delete("/", cartcontrollers.Clear(svcs.Cart, logg))
		r.Post("/items", cartcontrollers.AddItem(svcs.Cart, logg))
		r.Put("/items/{itemID}", cartcontrollers.UpdateItem(svcs.Cart, logg))
		r.Delete("/items/{itemID}", cartcontrollers.RemoveItem(svcs.Cart, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", ordercontrollers.Create(svcs.Orders, logg))
		r.Get("/", ordercontrollers.ListMine(svcs.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(sellerOnly)
			r.Get("/seller", ordercontrollers.ListForSeller(svcs.Orders, logg))
			r.Put("/{orderID}/status", ordercontrollers.UpdateStatus(svcs.Orders, logg))
		})

		r.Get("/{orderID}", ordercontrollers.Get(svcs.Orders, logg))
	})

	r.Route("/api/v1/blogs", func(r chi.Router) {
		r.Get("/", blogcontrollers.List(svcs.Blogs, logg))
		r.Get("/{blogID}", blogcontrollers.Get(svcs.Blogs, logg))
		r.Get("/{blogID}/comments", blogcontrollers.ListComments(svcs.Comments, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed, adminOnly)
			r.Post("/", blogcontrollers.Create(svcs.Blogs, logg))
			r.Put("/{blogID}", blogcontrollers.Update(svcs.Blogs, logg))
			r.Delete("/{blogID}", blogcontrollers.Delete(svcs.Blogs, logg))
		})
	})

	r.Route("/api/v1/comments", func(r chi.Router) {
		r.Use(authed)
		r.Post("/", commentcontrollers.Create(svcs.Comments, logg))

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/pending", commentcontrollers.ListPending(svcs.Comments, logg))
			r.Put("/{commentID}/status", commentcontrollers.Moderate(svcs.Comments, logg))
		})
	})

	return r
}
