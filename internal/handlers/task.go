package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/handlers/dto"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks *services.TaskService
	log   *zap.Logger
}

func NewTaskHandler(tasks *services.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

// ExportFollowers starts the follower export for the current user.
func (h *TaskHandler) ExportFollowers(c *gin.Context) {
	task, err := h.tasks.ExportFollowers(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Location", "/v1/tasks/"+task.ID)
	c.JSON(http.StatusAccepted, dto.NewTaskResponse(task, 0))
}

// ListTasks returns the current user's incomplete tasks with live progress.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	ctx := c.Request.Context()

	tasks, err := h.tasks.InProgress(ctx, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		progress, err := h.tasks.Progress(ctx, &tasks[i])
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		out = append(out, dto.NewTaskResponse(&tasks[i], progress))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	ctx := c.Request.Context()

	task, err := h.tasks.Get(ctx, middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	progress, err := h.tasks.Progress(ctx, task)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskResponse(task, progress))
}
