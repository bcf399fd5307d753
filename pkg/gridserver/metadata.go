package gridserver

import (
	"net/http"
	"sort"
	"strings"

	"gorm.io/gorm/schema"

	"github.com/bitechdev/ResolveGrid/pkg/logger"
)

// ColumnMetadata describes one column of an entity.
type ColumnMetadata struct {
	Name       string `json:"name"`
	Column     string `json:"column"`
	Type       string `json:"type"`
	IsNullable bool   `json:"is_nullable"`
	IsPrimary  bool   `json:"is_primary"`
	IsUnique   bool   `json:"is_unique"`
}

// TableMetadata is returned by GET /{entity} so clients can build column configs.
type TableMetadata struct {
	Entity    string           `json:"entity"`
	Table     string           `json:"table"`
	Columns   []ColumnMetadata `json:"columns"`
	Relations []string         `json:"relations"`
}

// HandleMetadata writes the column and relation layout of entity.
func (h *Handler) HandleMetadata(w http.ResponseWriter, r *http.Request, entity string) {
	model, err := h.resolveEntity(entity)
	if err != nil {
		logger.Error("Invalid entity: %v", err)
		h.sendError(w, http.StatusBadRequest, "invalid_entity", "Invalid entity", err)
		return
	}
	h.sendResponse(w, generateMetadata(model))
}

func generateMetadata(model *entityModel) *TableMetadata {
	metadata := &TableMetadata{
		Entity:    model.name,
		Table:     model.schema.Table,
		Columns:   make([]ColumnMetadata, 0, len(model.schema.Fields)),
		Relations: make([]string, 0, len(model.schema.Relationships.Relations)),
	}

	for _, f := range model.schema.Fields {
		if f.DBName == "" {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			name = f.Name
		}
		metadata.Columns = append(metadata.Columns, ColumnMetadata{
			Name:       name,
			Column:     f.DBName,
			Type:       columnType(f),
			IsNullable: !f.NotNull && !f.PrimaryKey,
			IsPrimary:  f.PrimaryKey,
			IsUnique:   f.Unique,
		})
	}

	for name, rel := range model.schema.Relationships.Relations {
		if declaredRelation(name, rel) {
			metadata.Relations = append(metadata.Relations, name)
		}
	}
	sort.Strings(metadata.Relations)

	return metadata
}

func columnType(f *schema.Field) string {
	switch f.DataType {
	case schema.Bool:
		return "checkbox"
	case schema.Int, schema.Uint:
		return "int"
	case schema.Float:
		return "float"
	case schema.Time:
		return "datetime"
	default:
		return "text"
	}
}
