package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union|select|insert|update|delete|drop|create|alter|exec|script|javascript|onerror|onload)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

type Config struct {
	MaxMessageLength    int
	MaxCommentLength    int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 5000
	}
	if cfg.MaxCommentLength == 0 {
		cfg.MaxCommentLength = 2000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/chat") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			message, ok := req["message"].(string)
			if !ok || strings.TrimSpace(message) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Message is required and must be a string",
				})
			}

			if len(message) > cfg.MaxMessageLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Message exceeds maximum length",
				})
			}

			if containsSQLInjection(message) || containsXSS(message) {
				cfg.Logger.Warn("Potentially malicious message rejected",
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid message content",
				})
			}

			req["message"] = sanitizeString(message)
			c.Locals("sanitized_body", req)
		}

		if strings.Contains(path, "/api/v1/feedback") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			turnID, ok := req["turn_id"].(string)
			if !ok || turnID == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "turn_id is required and must be a string",
				})
			}

			comment, ok := req["comment"].(string)
			if ok && len(comment) > cfg.MaxCommentLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Comment exceeds maximum length",
				})
			}
		}

		return c.Next()
	}
}

func containsSQLInjection(input string) bool {
	return sqlInjectionPattern.MatchString(input)
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}

func sanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
