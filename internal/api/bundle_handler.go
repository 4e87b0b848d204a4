package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/deco-sites/bundler/internal/bundler"
)

// handleBuild runs one build: request files in, base64 bundle out. Every
// failure surfaces as a JSON error body; nothing is retried and no partial
// output is ever returned.
func (s *Server) handleBuild(c *fiber.Ctx) error {
	var req bundler.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "files is required"})
	}

	buildID := uuid.New().String()
	log.Debug().
		Str("build_id", buildID).
		Int("files", len(req.Files)).
		Str("entrypoint", req.Entrypoint).
		Str("backend", s.backendName).
		Msg("Starting build")

	done := s.metrics.BuildStarted(s.backendName)
	result, err := s.backend.Build(c.Context(), &req)
	if err != nil {
		done(0, err)
		log.Warn().Str("build_id", buildID).Err(err).Msg("Build failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	done(len(result.Base64), nil)

	log.Info().
		Str("build_id", buildID).
		Int("bundle_bytes", len(result.Base64)).
		Msg("Build succeeded")

	return c.JSON(result)
}
