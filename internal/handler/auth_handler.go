package handler

import (
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
	"aizeeno/internal/service"
)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	authService    service.AuthService
	googleClientID string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, googleClientID string) *AuthHandler {
	return &AuthHandler{authService: authService, googleClientID: googleClientID}
}

// SignupRequest represents a signup request.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginRequest carries a federated identity token.
type GoogleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// ChangePasswordRequest represents a password change request.
type ChangePasswordRequest struct {
	Username string `json:"username" validate:"required"`
	Current  string `json:"current" validate:"required"`
	New      string `json:"new" validate:"required,min=6"`
}

// UpdateRequest carries a partial field update. Unrecognized keys in updates
// are ignored, not errors.
type UpdateRequest struct {
	Username string                 `json:"username" validate:"required"`
	Updates  map[string]interface{} `json:"updates"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse represents a successful authentication.
type LoginResponse struct {
	Success      bool           `json:"success"`
	User         model.UserView `json:"user"`
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
}

// Signup registers a new user.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.Signup(c.Request().Context(), req.Username, req.Password, req.Name, req.Email); err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Login authenticates a user and returns tokens and the sanitized view.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	accessToken, refreshToken, user, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, LoginResponse{
		Success:      true,
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// GoogleLogin verifies a Google ID token and logs the user in, creating the
// account on first sight.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.authService.GoogleLogin(c.Request().Context(), req.Token)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// ChangePassword replaces the caller's credentials.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ChangePassword(c.Request().Context(), req.Username, req.Current, req.New); err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Update merges whitelisted profile and subscription fields.
func (h *AuthHandler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.UpdateProfile(c.Request().Context(), req.Username, whitelistUpdates(req.Updates)); err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	accessToken, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "access_token": accessToken})
}

// Logout invalidates a refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// OAuthConfig exposes the OAuth client id the sign-in frontend needs.
func (h *AuthHandler) OAuthConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"client_id": h.googleClientID})
}

// Me returns the claims of the presented access token.
func (h *AuthHandler) Me(c echo.Context) error {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, _ := token.Claims.(jwt.MapClaims)
	return c.JSON(http.StatusOK, echo.Map{"token_claims": claims})
}

// whitelistUpdates maps the request's update keys onto the whitelisted
// record fields. Anything else is dropped silently.
func whitelistUpdates(raw map[string]interface{}) model.FieldUpdates {
	var updates model.FieldUpdates
	if v, ok := raw["name"].(string); ok {
		updates.Name = &v
	}
	if v, ok := raw["email"].(string); ok {
		updates.Email = &v
	}
	if v, ok := raw["subscription"].(string); ok {
		plan := model.Plan(v)
		updates.SubscriptionPlan = &plan
	}
	if v, ok := raw["payment"].(bool); ok {
		updates.PaymentActive = &v
	}
	if v, ok := raw["stripe_customer_id"].(string); ok {
		updates.ProviderCustomerID = &v
	}
	if v, ok := raw["stripe_subscription_id"].(string); ok {
		updates.ProviderSubscriptionID = &v
	}
	return updates
}

// failJSON renders a domain error in the original boundary shape:
// {"success": false, "error": ...} with the mapped status code.
func failJSON(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return c.JSON(httpErr.StatusCode, echo.Map{"success": false, "error": httpErr.Message, "code": httpErr.Code})
}
