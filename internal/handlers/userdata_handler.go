package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/middleware"
	"github.com/smarttodo/sync/internal/services"
)

// UserDataHandler serves the profile, memories and settings side channels.
type UserDataHandler struct {
	service *services.UserDataService
}

func NewUserDataHandler(service *services.UserDataService) *UserDataHandler {
	return &UserDataHandler{service: service}
}

func (h *UserDataHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	profile, err := h.service.GetProfile(userID)
	if err != nil {
		slog.Error("failed to load profile", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to fetch profile"})
	}

	return c.JSON(dto.ProfileResponse{Success: true, Profile: *profile})
}

func (h *UserDataHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := h.service.UpdateProfile(userID, &req); err != nil {
		slog.Error("failed to update profile", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to update profile"})
	}

	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *UserDataHandler) GetMemories(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	memories, err := h.service.GetMemories(userID)
	if err != nil {
		slog.Error("failed to load memories", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to fetch memories"})
	}

	return c.JSON(dto.MemoriesResponse{Success: true, Memories: memories})
}

func (h *UserDataHandler) SyncMemories(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.MemorySyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if err := h.service.SyncMemories(userID, req.Memories); err != nil {
		slog.Error("failed to sync memories", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to sync memories"})
	}

	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *UserDataHandler) GetSettings(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	settings, err := h.service.GetSettings(userID)
	if err != nil {
		slog.Error("failed to load settings", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to fetch settings"})
	}

	return c.JSON(dto.SettingsResponse{Success: true, Settings: settings})
}

func (h *UserDataHandler) UpdateSettings(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Settings) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "settings payload is required"})
	}

	if err := h.service.UpdateSettings(userID, req.Settings); err != nil {
		slog.Error("failed to update settings", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to update settings"})
	}

	return c.JSON(dto.SuccessResponse{Success: true})
}
