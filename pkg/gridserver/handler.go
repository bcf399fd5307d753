// Package gridserver serves the grid envelope protocol over GORM models: paged search,
// single record load, save and batch delete.
package gridserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"runtime/debug"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/modelregistry"
	"github.com/bitechdev/ResolveGrid/pkg/settings"
)

// Handler handles grid requests for every registered entity.
type Handler struct {
	db       *gorm.DB
	registry *modelregistry.DefaultModelRegistry
	settings settings.Store
}

// NewHandler creates a grid handler. Entities are looked up in registry by URL name.
func NewHandler(db *gorm.DB, registry *modelregistry.DefaultModelRegistry) *Handler {
	return &Handler{
		db:       db,
		registry: registry,
	}
}

// WithSettings exposes store under the settings routes.
func (h *Handler) WithSettings(store settings.Store) *Handler {
	h.settings = store
	return h
}

type gridResponse struct {
	Status  string      `json:"status"`
	Total   int64       `json:"total"`
	Records interface{} `json:"records"`
}

type recordResponse struct {
	Status  string      `json:"status"`
	Record  interface{} `json:"record,omitempty"`
	Message string      `json:"message,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// entityModel is a registered model with its parsed GORM schema.
type entityModel struct {
	name      string
	modelType reflect.Type
	schema    *schema.Schema
	validator *common.ColumnValidator
}

func (m *entityModel) newPtr() interface{} {
	return reflect.New(m.modelType).Interface()
}

func (m *entityModel) newSlicePtr() interface{} {
	return reflect.New(reflect.SliceOf(m.modelType)).Interface()
}

// handlePanic is a helper function to handle panics with stack traces
func (h *Handler) handlePanic(w http.ResponseWriter, method string, err interface{}) {
	stack := debug.Stack()
	logger.Error("Panic in %s: %v\nStack trace:\n%s", method, err, string(stack))
	h.sendError(w, http.StatusInternalServerError, "internal_error", fmt.Sprintf("Internal server error in %s", method), fmt.Errorf("%v", err))
}

func (h *Handler) resolveEntity(name string) (*entityModel, error) {
	model, err := h.registry.GetModel(name)
	if err != nil {
		return nil, err
	}
	modelType := reflect.TypeOf(model)
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	stmt := &gorm.Statement{DB: h.db}
	if err := stmt.Parse(reflect.New(modelType).Interface()); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", name, err)
	}
	if stmt.Schema.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("model %s has no primary key", name)
	}
	return &entityModel{
		name:      name,
		modelType: modelType,
		schema:    stmt.Schema,
		validator: common.NewColumnValidator(model),
	}, nil
}

// Handle processes one envelope POSTed for entity.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request, entity string) {
	defer func() {
		if err := recover(); err != nil {
			h.handlePanic(w, "Handle", err)
		}
	}()

	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body: %v", err)
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body", err)
		return
	}

	var env common.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		logger.Error("Failed to decode request body: %v", err)
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", err)
		return
	}
	req := env.Request

	logger.Info("Handling %s action for %s", req.Action, entity)

	model, err := h.resolveEntity(entity)
	if err != nil {
		logger.Error("Invalid entity: %v", err)
		h.sendError(w, http.StatusBadRequest, "invalid_entity", "Invalid entity", err)
		return
	}

	switch req.Action {
	case common.ActionGet, "":
		h.handleGet(ctx, w, model, req.QueryParams)
	case common.ActionGetRecord:
		h.handleGetRecord(ctx, w, model, req.Recid, req.Join)
	case common.ActionSave:
		h.handleSave(ctx, w, model, req.Recid, req.Record)
	case common.ActionDelete:
		h.handleDelete(ctx, w, model, req.Recid)
	default:
		logger.Error("Invalid action: %s", req.Action)
		h.sendError(w, http.StatusBadRequest, "invalid_action", "Invalid action", fmt.Errorf("unknown action %q", req.Action))
	}
}

func (h *Handler) handleGet(ctx context.Context, w http.ResponseWriter, model *entityModel, params common.QueryParams) {
	params = model.validator.FilterQueryParams(params)

	build := func() *gorm.DB {
		tx := h.db.WithContext(ctx).Model(model.newPtr())
		if params.ShowDeleted {
			tx = tx.Unscoped()
		}
		return applySearch(tx, model, params.Search, params.SearchLogic)
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		logger.Error("Error counting records: %v", err)
		h.sendError(w, http.StatusInternalServerError, "query_error", "Error counting records", err)
		return
	}
	logger.Debug("Total records for %s: %d", model.name, total)

	tx := build()
	tx = applySort(tx, model, params.Sort)
	tx = applyJoins(tx, model, params.Join)
	if params.Limit > 0 {
		tx = tx.Limit(params.Limit)
	}
	offset := params.Offset
	if offset == 0 && params.Page > 1 && params.Limit > 0 {
		offset = (params.Page - 1) * params.Limit
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}

	results := model.newSlicePtr()
	if err := tx.Find(results).Error; err != nil {
		logger.Error("Error querying records: %v", err)
		h.sendError(w, http.StatusInternalServerError, "query_error", "Error executing query", err)
		return
	}

	records := reflect.ValueOf(results).Elem()
	if records.Len() == 0 {
		records = reflect.MakeSlice(records.Type(), 0, 0)
	}
	logger.Info("Retrieved %d of %d records from %s", records.Len(), total, model.name)

	h.sendResponse(w, gridResponse{Status: common.StatusSuccess, Total: total, Records: records.Interface()})
}

func (h *Handler) findByID(ctx context.Context, model *entityModel, recid interface{}, joins []string) (interface{}, error) {
	if recid == nil {
		return nil, errors.New("missing recid")
	}
	tx := applyJoins(h.db.WithContext(ctx), model, joins)
	record := model.newPtr()
	err := tx.Where(primaryKeyEq(model, recid)).First(record).Error
	return record, err
}

func (h *Handler) handleGetRecord(ctx context.Context, w http.ResponseWriter, model *entityModel, recid interface{}, joins []string) {
	record, err := h.findByID(ctx, model, recid, joins)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.sendError(w, http.StatusNotFound, "not_found", "record not found", err)
		return
	}
	if err != nil {
		logger.Error("Error loading record %v of %s: %v", recid, model.name, err)
		h.sendError(w, http.StatusBadRequest, "query_error", "Error loading record", err)
		return
	}
	h.sendResponse(w, recordResponse{Status: common.StatusSuccess, Record: record})
}

// handleSave creates the record when recid is empty and updates it otherwise.
// Nested joined objects in the record are never written.
func (h *Handler) handleSave(ctx context.Context, w http.ResponseWriter, model *entityModel, recid interface{}, data common.Record) {
	if data == nil {
		h.sendError(w, http.StatusBadRequest, "invalid_data", "Missing record", nil)
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_data", "Invalid record", err)
		return
	}

	isEdit := recid != nil && common.ToString(recid) != ""
	record := model.newPtr()
	if isEdit {
		record, err = h.findByID(ctx, model, recid, nil)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.sendError(w, http.StatusNotFound, "not_found", "No record found to update", err)
			return
		}
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "query_error", "Error loading record", err)
			return
		}
	}
	if err := json.Unmarshal(raw, record); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_data", "Record does not match model", err)
		return
	}

	tx := h.db.WithContext(ctx).Omit(clause.Associations)
	if isEdit {
		err = tx.Save(record).Error
	} else {
		err = tx.Create(record).Error
	}
	if err != nil {
		logger.Error("Error saving %s: %v", model.name, err)
		h.sendError(w, http.StatusBadRequest, "save_error", err.Error(), err)
		return
	}

	logger.Info("Saved %s record (edit=%v)", model.name, isEdit)
	h.sendResponse(w, recordResponse{Status: common.StatusSuccess, Record: record})
}

func (h *Handler) handleDelete(ctx context.Context, w http.ResponseWriter, model *entityModel, recid interface{}) {
	ids := recidList(recid)
	if len(ids) == 0 {
		logger.Error("Delete action requires at least one recid")
		h.sendError(w, http.StatusBadRequest, "missing_id", "Delete action requires a recid", nil)
		return
	}

	pk := model.schema.PrioritizedPrimaryField
	result := h.db.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: pk.DBName}, Values: ids}).
		Delete(model.newPtr())
	if result.Error != nil {
		logger.Error("Error deleting records: %v", result.Error)
		h.sendError(w, http.StatusInternalServerError, "delete_error", "Error deleting records", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		logger.Warn("No records found to delete with ids %v", ids)
		h.sendError(w, http.StatusNotFound, "not_found", "Record not found", nil)
		return
	}

	logger.Info("Deleted %d records from %s", result.RowsAffected, model.name)
	h.sendResponse(w, recordResponse{Status: common.StatusSuccess})
}

func recidList(recid interface{}) []interface{} {
	switch v := recid.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	default:
		return []interface{}{v}
	}
}

func (h *Handler) sendResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string, details error) {
	resp := errorResponse{Status: common.StatusError, Code: code, Message: message}
	if details != nil {
		resp.Detail = details.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("Failed to encode error response: %v", err)
	}
}
