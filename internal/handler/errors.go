package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"todo-engine/internal/category"
	"todo-engine/internal/storage"
	"todo-engine/internal/todo"
	"todo-engine/internal/validation"
)

// apiError maps service errors to HTTP problems. Unknown errors are logged
// and reported as 500 with msg.
func apiError(logger *slog.Logger, err error, msg string, attrs ...any) error {
	switch {
	case errors.Is(err, todo.ErrNotFound), errors.Is(err, category.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, category.ErrDefaultCategory), errors.Is(err, category.ErrCategoryInUse):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, storage.ErrInvalidBackup):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, storage.ErrQuotaExceeded):
		logger.Warn(msg, append(attrs, slog.String("error", err.Error()))...)
		return huma.NewError(http.StatusInsufficientStorage, "storage quota exceeded; export or clean up todos to free space")
	}
	logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	return huma.Error500InternalServerError(msg)
}

// invalid converts a failed validation result into a 422 problem.
func invalid(res validation.Result) error {
	details := make([]error, len(res.Errors))
	for i, e := range res.Errors {
		details[i] = &huma.ErrorDetail{
			Location: "body." + e.Field,
			Message:  e.Message,
			Value:    e.Code,
		}
	}
	return huma.Error422UnprocessableEntity("validation failed", details...)
}
