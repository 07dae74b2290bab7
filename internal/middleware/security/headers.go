package security

import "github.com/gofiber/fiber/v2"

// Headers sets baseline hardening headers on every response. The admin panel
// is served from the same origin, hence the restrictive defaults.
func Headers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", "default-src 'self'")
		return c.Next()
	}
}
