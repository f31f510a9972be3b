package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"todo-engine/internal/app"
	"todo-engine/internal/exchange"
	"todo-engine/internal/model"
	"todo-engine/internal/stats"
	"todo-engine/internal/storage"
)

// DataHandler serves statistics, preferences, import/export and storage
// maintenance.
type DataHandler struct {
	app    *app.App
	logger *slog.Logger
}

// NewDataHandler creates a new DataHandler.
func NewDataHandler(a *app.App, logger *slog.Logger) *DataHandler {
	return &DataHandler{app: a, logger: logger}
}

type StatsOutput struct {
	Body stats.Statistics
}

type PreferencesOutput struct {
	Body model.Preferences
}

type UpdatePreferencesInput struct {
	Body model.UpdatePreferencesRequest
}

type ExportInput struct {
	Format         string `query:"format" enum:"json,csv,markdown" default:"json" doc:"Export format"`
	IncludeDeleted bool   `query:"include_deleted" doc:"Include soft-deleted todos"`
}

type FileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

type ImportInput struct {
	Format  string `query:"format" enum:"json,csv" default:"json" doc:"Format of the uploaded file"`
	RawBody []byte
}

type ImportOutput struct {
	Body exchange.ImportResult
}

type StorageInfoOutput struct {
	Body storage.Info
}

type SaveBackupOutput struct {
	Body struct {
		SavedAt time.Time `json:"saved_at"`
	}
}

type RestoreInput struct {
	RawBody []byte
}

// RegisterRoutes registers the remaining routes with the huma API.
func (h *DataHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get statistics",
		Tags:        []string{"stats"},
	}, h.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "get-preferences",
		Method:      http.MethodGet,
		Path:        "/api/v1/preferences",
		Summary:     "Get preferences",
		Tags:        []string{"preferences"},
	}, h.GetPreferences)

	huma.Register(api, huma.Operation{
		OperationID: "update-preferences",
		Method:      http.MethodPatch,
		Path:        "/api/v1/preferences",
		Summary:     "Update preferences",
		Tags:        []string{"preferences"},
	}, h.UpdatePreferences)

	huma.Register(api, huma.Operation{
		OperationID: "reset-preferences",
		Method:      http.MethodPost,
		Path:        "/api/v1/preferences/reset",
		Summary:     "Reset preferences to defaults",
		Tags:        []string{"preferences"},
	}, h.ResetPreferences)

	huma.Register(api, huma.Operation{
		OperationID: "export-todos",
		Method:      http.MethodGet,
		Path:        "/api/v1/export",
		Summary:     "Export todos",
		Tags:        []string{"exchange"},
	}, h.Export)

	huma.Register(api, huma.Operation{
		OperationID: "import-todos",
		Method:      http.MethodPost,
		Path:        "/api/v1/import",
		Summary:     "Import todos",
		Description: "Merge a JSON or CSV file into the collection. Invalid rows are reported, not fatal.",
		Tags:        []string{"exchange"},
	}, h.Import)

	huma.Register(api, huma.Operation{
		OperationID: "get-storage-info",
		Method:      http.MethodGet,
		Path:        "/api/v1/storage",
		Summary:     "Get storage usage",
		Tags:        []string{"storage"},
	}, h.StorageInfo)

	huma.Register(api, huma.Operation{
		OperationID: "download-backup",
		Method:      http.MethodGet,
		Path:        "/api/v1/storage/backup",
		Summary:     "Download a fresh backup",
		Tags:        []string{"storage"},
	}, h.DownloadBackup)

	huma.Register(api, huma.Operation{
		OperationID: "save-backup",
		Method:      http.MethodPost,
		Path:        "/api/v1/storage/backup",
		Summary:     "Store a backup snapshot",
		Tags:        []string{"storage"},
	}, h.SaveBackup)

	huma.Register(api, huma.Operation{
		OperationID:   "restore-backup",
		Method:        http.MethodPost,
		Path:          "/api/v1/storage/restore",
		Summary:       "Restore a backup",
		Description:   "Replace all data with the uploaded backup, or with the stored snapshot when the body is empty.",
		Tags:          []string{"storage"},
		DefaultStatus: http.StatusNoContent,
	}, h.RestoreBackup)
}

func (h *DataHandler) Stats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	s, err := h.app.Stats.Calculate(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to calculate statistics")
	}
	return &StatsOutput{Body: s}, nil
}

func (h *DataHandler) GetPreferences(ctx context.Context, _ *struct{}) (*PreferencesOutput, error) {
	prefs, err := h.app.Preferences.Get(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to load preferences")
	}
	return &PreferencesOutput{Body: prefs}, nil
}

func (h *DataHandler) UpdatePreferences(ctx context.Context, input *UpdatePreferencesInput) (*PreferencesOutput, error) {
	prefs, res, err := h.app.Preferences.Update(ctx, input.Body)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to update preferences")
	}
	if !res.Valid {
		return nil, invalid(res)
	}
	return &PreferencesOutput{Body: prefs}, nil
}

func (h *DataHandler) ResetPreferences(ctx context.Context, _ *struct{}) (*PreferencesOutput, error) {
	prefs, err := h.app.Preferences.Reset(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to reset preferences")
	}
	return &PreferencesOutput{Body: prefs}, nil
}

func (h *DataHandler) Export(ctx context.Context, input *ExportInput) (*FileOutput, error) {
	format := exchange.Format(input.Format)
	data, err := h.app.Exchange.Export(ctx, format, input.IncludeDeleted)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to export todos", slog.String("format", input.Format))
	}
	name := fmt.Sprintf("todos-%s.%s", h.app.Now().Format(model.DateLayout), format.Extension())
	return &FileOutput{
		ContentType:        format.ContentType(),
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
		Body:               data,
	}, nil
}

func (h *DataHandler) Import(ctx context.Context, input *ImportInput) (*ImportOutput, error) {
	result, err := h.app.Exchange.Import(ctx, exchange.Format(input.Format), input.RawBody)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to import todos", slog.String("format", input.Format))
	}
	return &ImportOutput{Body: result}, nil
}

func (h *DataHandler) StorageInfo(ctx context.Context, _ *struct{}) (*StorageInfoOutput, error) {
	info, err := h.app.Store.StorageInfo(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to read storage usage")
	}
	return &StorageInfoOutput{Body: info}, nil
}

func (h *DataHandler) DownloadBackup(ctx context.Context, _ *struct{}) (*FileOutput, error) {
	blob, err := h.app.Store.CreateBackup(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to create backup")
	}
	name := fmt.Sprintf("todo-backup-%s.json", h.app.Now().Format(model.DateLayout))
	return &FileOutput{
		ContentType:        "application/json",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
		Body:               blob,
	}, nil
}

func (h *DataHandler) SaveBackup(ctx context.Context, _ *struct{}) (*SaveBackupOutput, error) {
	at, err := h.app.Store.SaveBackup(ctx)
	if err != nil {
		return nil, apiError(h.logger, err, "failed to save backup")
	}
	out := &SaveBackupOutput{}
	out.Body.SavedAt = at
	return out, nil
}

func (h *DataHandler) RestoreBackup(ctx context.Context, input *RestoreInput) (*struct{}, error) {
	blob := input.RawBody
	if len(blob) == 0 {
		var stored json.RawMessage
		found, err := h.app.Store.Get(ctx, storage.KeyBackup, &stored)
		if err != nil {
			return nil, apiError(h.logger, err, "failed to read stored backup")
		}
		if !found {
			return nil, huma.Error404NotFound("no stored backup")
		}
		blob = stored
	}
	if err := h.app.Store.RestoreBackup(ctx, blob); err != nil {
		return nil, apiError(h.logger, err, "failed to restore backup")
	}
	return nil, nil
}

// Register wires every handler into api.
func Register(api huma.API, a *app.App, logger *slog.Logger) {
	NewTodoHandler(a, logger).RegisterRoutes(api)
	NewCategoryHandler(a, logger).RegisterRoutes(api)
	NewDataHandler(a, logger).RegisterRoutes(api)
}
