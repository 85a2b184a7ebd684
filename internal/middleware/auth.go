// Package middleware provides authentication, authorization, logging and
// rate-limit middleware for the application.
package middleware

import (
	"strconv"
	"strings"

	"quill/internal/config"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer and TokenAudience pin the tokens this API accepts.
	TokenIssuer   = "quill-api"
	TokenAudience = "quill-client"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// ActorFromContext returns the authenticated actor stored by AuthRequired.
// The bool is false on routes that did not run the auth middleware.
func ActorFromContext(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals("actor").(models.Actor)
	return actor, ok
}

// AuthRequired is a middleware that enforces authentication for protected
// routes. On success it stores a models.Actor in c.Locals("actor"); handlers
// thread that actor explicitly into every service call.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token claims",
		})
	}

	// Subject claim carries the user ID per RFC 7519.
	subStr, ok := claims["sub"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token structure - missing subject",
		})
	}
	userIDVal, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid user ID in token",
		})
	}

	roleStr, ok := claims["role"].(string)
	role := models.Role(roleStr)
	if !ok || !role.Valid() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid role in token",
		})
	}

	actor := models.Actor{ID: uint(userIDVal), Role: role}
	c.Locals("actor", actor)
	c.Locals("userID", actor.ID)

	return c.Next()
}

// AdminRequired rejects non-admin actors. Must run after AuthRequired.
func AdminRequired(c *fiber.Ctx) error {
	actor, ok := ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}
	if !actor.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Admin role required",
		})
	}
	return c.Next()
}
