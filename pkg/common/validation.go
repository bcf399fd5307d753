package common

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bitechdev/ResolveGrid/pkg/logger"
)

// ColumnValidator validates field names used in search and sort against a model's fields
type ColumnValidator struct {
	validColumns map[string]bool
	model        interface{}
}

// NewColumnValidator creates a new column validator for a given model
func NewColumnValidator(model interface{}) *ColumnValidator {
	validator := &ColumnValidator{
		validColumns: make(map[string]bool),
		model:        model,
	}
	validator.buildValidColumns()
	return validator
}

// buildValidColumns extracts all valid column names from the model using reflection
func (v *ColumnValidator) buildValidColumns() {
	modelType := reflect.TypeOf(v.model)

	// Unwrap pointers, slices, and arrays to get to the base struct type
	for modelType != nil && (modelType.Kind() == reflect.Ptr || modelType.Kind() == reflect.Slice || modelType.Kind() == reflect.Array) {
		modelType = modelType.Elem()
	}

	// Validate that we have a struct type
	if modelType == nil || modelType.Kind() != reflect.Struct {
		return
	}

	// Extract column names from struct fields
	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)

		if !field.IsExported() {
			continue
		}

		// Relations are joined, never searched directly
		if isRelationField(field.Type) {
			continue
		}

		// Get column name from bun, gorm, or json tag
		columnName := v.getColumnName(field)
		if columnName != "" && columnName != "-" {
			v.validColumns[strings.ToLower(columnName)] = true
		}

		// Clients address fields by their JSON name
		jsonName := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonName != "" && jsonName != "-" {
			v.validColumns[strings.ToLower(jsonName)] = true
		}
	}
}

func isRelationField(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Struct:
		// time.Time, sql.Null* and gorm.DeletedAt are scalar columns
		return t.Name() != "Time" && !strings.HasPrefix(t.Name(), "Null") && t.Name() != "DeletedAt"
	}
	return false
}

// getColumnName extracts the column name from a struct field's tags
// Supports both Bun and GORM tags
func (v *ColumnValidator) getColumnName(field reflect.StructField) string {
	// First check Bun tag for column name
	bunTag := field.Tag.Get("bun")
	if bunTag != "" && bunTag != "-" {
		parts := strings.Split(bunTag, ",")
		// The first part is usually the column name
		columnName := strings.TrimSpace(parts[0])
		if columnName != "" && columnName != "-" {
			return columnName
		}
	}

	// Check GORM tag for column name
	gormTag := field.Tag.Get("gorm")
	if strings.Contains(gormTag, "column:") {
		parts := strings.Split(gormTag, ";")
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "column:") {
				return strings.TrimPrefix(part, "column:")
			}
		}
	}

	// Fall back to JSON tag
	jsonTag := field.Tag.Get("json")
	if jsonTag != "" && jsonTag != "-" {
		// Extract just the name part (before any comma)
		jsonName := strings.Split(jsonTag, ",")[0]
		return jsonName
	}

	// Fall back to field name in lowercase (snake_case conversion would be better)
	return strings.ToLower(field.Name)
}

// ValidateColumn validates a single column name
// Returns nil if valid, error if invalid
func (v *ColumnValidator) ValidateColumn(column string) error {
	if column == "" {
		return fmt.Errorf("empty column name")
	}

	// Check if column exists in model
	if _, exists := v.validColumns[strings.ToLower(column)]; !exists {
		return fmt.Errorf("invalid column '%s': column does not exist in model", column)
	}

	return nil
}

// IsValidColumn checks if a column is valid
// Returns true if valid, false if invalid
func (v *ColumnValidator) IsValidColumn(column string) bool {
	return v.ValidateColumn(column) == nil
}

// FilterValidColumns filters a list of columns, returning only valid ones
// Logs warnings for any invalid columns
func (v *ColumnValidator) FilterValidColumns(columns []string) []string {
	if len(columns) == 0 {
		return columns
	}

	validColumns := make([]string, 0, len(columns))
	for _, col := range columns {
		if v.IsValidColumn(col) {
			validColumns = append(validColumns, col)
		} else {
			logger.Warn("Invalid column '%s' filtered out: column does not exist in model", col)
		}
	}
	return validColumns
}

// ValidateColumns validates multiple column names
// Returns error with details about all invalid columns
func (v *ColumnValidator) ValidateColumns(columns []string) error {
	var invalidColumns []string

	for _, column := range columns {
		if err := v.ValidateColumn(column); err != nil {
			invalidColumns = append(invalidColumns, column)
		}
	}

	if len(invalidColumns) > 0 {
		return fmt.Errorf("invalid columns: %s", strings.Join(invalidColumns, ", "))
	}

	return nil
}

// ValidateQueryParams validates every search and sort field in QueryParams
func (v *ColumnValidator) ValidateQueryParams(params QueryParams) error {
	for _, cond := range params.Search {
		if err := v.ValidateColumn(cond.Field); err != nil {
			return fmt.Errorf("in search: %w", err)
		}
	}

	for _, sort := range params.Sort {
		if err := v.ValidateColumn(sort.Field); err != nil {
			return fmt.Errorf("in sort: %w", err)
		}
	}

	return nil
}

// FilterQueryParams returns a copy of params with unknown search and sort fields removed,
// logging a warning for each dropped entry
func (v *ColumnValidator) FilterQueryParams(params QueryParams) QueryParams {
	filtered := params

	validSearch := make([]SearchCondition, 0, len(params.Search))
	for _, cond := range params.Search {
		if v.IsValidColumn(cond.Field) {
			validSearch = append(validSearch, cond)
		} else {
			logger.Warn("Invalid field in search '%s' removed", cond.Field)
		}
	}
	filtered.Search = validSearch

	validSorts := make([]SortOption, 0, len(params.Sort))
	for _, sort := range params.Sort {
		if v.IsValidColumn(sort.Field) {
			validSorts = append(validSorts, sort)
		} else {
			logger.Warn("Invalid field in sort '%s' removed", sort.Field)
		}
	}
	filtered.Sort = validSorts

	return filtered
}

// GetValidColumns returns a list of all valid column names for debugging purposes
func (v *ColumnValidator) GetValidColumns() []string {
	columns := make([]string, 0, len(v.validColumns))
	for col := range v.validColumns {
		columns = append(columns, col)
	}
	return columns
}
