package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/middleware"
	"github.com/smarttodo/sync/internal/services"
)

// SyncHandler exposes the task list and the merge endpoints.
type SyncHandler struct {
	syncService *services.SyncService
}

func NewSyncHandler(syncService *services.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

func (h *SyncHandler) ListTasks(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	tasks, err := h.syncService.ListTasks(userID)
	if err != nil {
		slog.Error("failed to list tasks", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to fetch tasks"})
	}

	return c.JSON(dto.TasksResponse{Success: true, Tasks: tasks})
}

func (h *SyncHandler) SyncTasks(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.SyncTasksRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	result, err := h.syncService.SyncTasks(userID, req.Tasks, req.DeviceID)
	if err != nil {
		if errors.Is(err, services.ErrTaskInvalid) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		slog.Error("task sync failed", "user_id", userID.String(), "device_id", req.DeviceID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "sync failed"})
	}

	return c.JSON(dto.SyncTasksResponse{
		Success:  true,
		Tasks:    result.Tasks,
		Updated:  result.Updated,
		Created:  result.Created,
		SyncTime: result.SyncTime,
	})
}

func (h *SyncHandler) DeleteTask(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	taskID := c.Params("id")
	if taskID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "task id is required"})
	}

	if err := h.syncService.DeleteTask(userID, taskID); err != nil {
		slog.Error("task delete failed", "user_id", userID.String(), "task_id", taskID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "delete failed"})
	}

	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *SyncHandler) FullSync(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.FullSyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	data, syncTime, err := h.syncService.FullSync(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrTaskInvalid) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		slog.Error("full sync failed", "user_id", userID.String(), "device_id", req.DeviceID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "full sync failed"})
	}

	return c.JSON(dto.FullSyncResponse{Success: true, Data: *data, SyncTime: syncTime})
}
