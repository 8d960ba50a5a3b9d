package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"aizeeno/internal/config"
	"aizeeno/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	billingHandler *handler.BillingHandler,
	chatHandler *handler.ChatHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// The provider calls this directly; it authenticates with its signature
	// header, not a JWT, and lives outside the /api group.
	e.POST("/webhook", billingHandler.Webhook)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/google", authHandler.GoogleLogin)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/oauth-config", authHandler.OAuthConfig)

	// Billing routes. The payment-status poll is public: the checkout return
	// page calls it before the user holds a token.
	api.POST("/payment-status", billingHandler.PaymentStatus)
	api.GET("/billing/config", billingHandler.Config)

	// Chat routes
	api.POST("/chat", chatHandler.Chat)
	api.POST("/chat/init", chatHandler.Init)
	api.GET("/conversations", chatHandler.List)
	api.POST("/conversations", chatHandler.Append)
	api.POST("/conversations/new", chatHandler.Init)
	api.GET("/conversations/:id", chatHandler.Get)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
	}))

	secured.GET("/me", authHandler.Me)
	secured.POST("/auth/change_password", authHandler.ChangePassword)
	secured.POST("/auth/update", authHandler.Update)
	secured.GET("/user-subscription/:username", billingHandler.UserSubscription)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
