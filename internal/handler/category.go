package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"todo-engine/internal/app"
	"todo-engine/internal/model"
)

// CategoryHandler handles HTTP requests for categories.
type CategoryHandler struct {
	app    *app.App
	logger *slog.Logger
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(a *app.App, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{app: a, logger: logger}
}

type CategoryListOutput struct {
	Body struct {
		Categories []model.Category `json:"categories"`
	}
}

type CategoryOutput struct {
	Body model.Category
}

type CreateCategoryInput struct {
	Body model.CreateCategoryRequest
}

type UpdateCategoryInput struct {
	ID   string `path:"id" doc:"Category ID"`
	Body model.UpdateCategoryRequest
}

type CategoryIDInput struct {
	ID string `path:"id" doc:"Category ID"`
}

// RegisterRoutes registers all category routes with the huma API.
func (h *CategoryHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Tags:        []string{"categories"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/api/v1/categories",
		Summary:       "Create a category",
		Tags:          []string{"categories"},
		DefaultStatus: http.StatusCreated,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "update-category",
		Method:      http.MethodPut,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Rename or recolor a category",
		Description: "Default categories cannot be changed.",
		Tags:        []string{"categories"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-category",
		Method:        http.MethodDelete,
		Path:          "/api/v1/categories/{id}",
		Summary:       "Delete a category",
		Description:   "Default categories and categories still referenced by a todo cannot be deleted.",
		Tags:          []string{"categories"},
		DefaultStatus: http.StatusNoContent,
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "reorder-categories",
		Method:      http.MethodPost,
		Path:        "/api/v1/categories/reorder",
		Summary:     "Set the display order of categories",
		Tags:        []string{"categories"},
	}, h.Reorder)
}

func (h *CategoryHandler) List(ctx context.Context, _ *struct{}) (*CategoryListOutput, error) {
	cats, err := h.app.Categories.List(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to list categories")
	}
	out := &CategoryListOutput{}
	out.Body.Categories = cats
	return out, nil
}

func (h *CategoryHandler) Create(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	cat, res, err := h.app.Categories.Create(ctx, input.Body)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to create category")
	}
	if !res.Valid {
		return nil, invalid(res)
	}
	return &CategoryOutput{Body: cat}, nil
}

func (h *CategoryHandler) Update(ctx context.Context, input *UpdateCategoryInput) (*CategoryOutput, error) {
	cat, res, err := h.app.Categories.Update(ctx, input.ID, input.Body)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to update category", slog.String("id", input.ID))
	}
	if !res.Valid {
		return nil, invalid(res)
	}
	return &CategoryOutput{Body: cat}, nil
}

func (h *CategoryHandler) Delete(ctx context.Context, input *CategoryIDInput) (*struct{}, error) {
	if err := h.app.Categories.Delete(ctx, input.ID); err != nil {
		return nil, apiError(h.logger, err, "failed to delete category", slog.String("id", input.ID))
	}
	return nil, nil
}

func (h *CategoryHandler) Reorder(ctx context.Context, input *ReorderInput) (*CategoryListOutput, error) {
	cats, err := h.app.Categories.Reorder(ctx, input.Body.IDs)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to reorder categories")
	}
	out := &CategoryListOutput{}
	out.Body.Categories = cats
	return out, nil
}
