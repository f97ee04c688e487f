package handlers

import (
	"errors"

	"etalase/internal/metrics"
	"etalase/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validate,
	}
}

// RegisterRoutes registers the authentication routes on router.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	// bcrypt only reads the first 72 bytes.
	Password string `json:"password" validate:"required,max=72"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	logger := zerolog.Ctx(c.UserContext())

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		metrics.AuthAttempts.WithLabelValues("register", metrics.ResultRefused).Inc()
		return respondValidation(c, err)
	}

	result, err := h.authService.RegisterUser(req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateUser) {
			metrics.AuthAttempts.WithLabelValues("register", metrics.ResultRefused).Inc()
			return respondMessage(c, fiber.StatusBadRequest, "User already exists")
		}
		metrics.AuthAttempts.WithLabelValues("register", metrics.ResultFailed).Inc()
		logger.Error().Err(err).Str("email", req.Email).Msg("registration failed")
		return respondError(c, fiber.StatusInternalServerError, "Server error", err)
	}

	metrics.AuthAttempts.WithLabelValues("register", metrics.ResultOK).Inc()
	logger.Info().Str("user_id", result.User.ID).Msg("user registered")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   result.Token,
	})
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	logger := zerolog.Ctx(c.UserContext())

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		metrics.AuthAttempts.WithLabelValues("login", metrics.ResultRefused).Inc()
		return respondValidation(c, err)
	}

	result, err := h.authService.LoginUser(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			metrics.AuthAttempts.WithLabelValues("login", metrics.ResultRefused).Inc()
			return respondMessage(c, fiber.StatusBadRequest, "Invalid credentials")
		}
		metrics.AuthAttempts.WithLabelValues("login", metrics.ResultFailed).Inc()
		logger.Error().Err(err).Msg("login failed")
		return respondError(c, fiber.StatusInternalServerError, "Server error", err)
	}

	metrics.AuthAttempts.WithLabelValues("login", metrics.ResultOK).Inc()
	return c.JSON(fiber.Map{
		"message":  "Login successful",
		"token":    result.Token,
		"username": result.User.Username,
	})
}
