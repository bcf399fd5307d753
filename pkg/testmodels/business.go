package testmodels

import (
	"time"

	"gorm.io/gorm"

	"github.com/bitechdev/ResolveGrid/pkg/modelregistry"
)

// Place is a physical location such as a building or a floor.
type Place struct {
	ID        int64          `json:"Id" gorm:"primaryKey;autoIncrement"`
	Name      string         `json:"Name" gorm:"size:100;not null"`
	Code      string         `json:"Code" gorm:"size:20;uniqueIndex"`
	CreatedAt time.Time      `json:"CreatedAt"`
	DeletedAt gorm.DeletedAt `json:"DeletedAt,omitempty" gorm:"index"`
}

func (Place) TableName() string {
	return "places"
}

// CafeteriaPlace is a cafeteria counter located at a Place.
type CafeteriaPlace struct {
	ID        int64          `json:"Id" gorm:"primaryKey;autoIncrement"`
	Name      string         `json:"Name" gorm:"size:100;not null"`
	PlaceID   int64          `json:"PlaceID" gorm:"index"`
	Active    bool           `json:"Active"`
	CreatedAt time.Time      `json:"CreatedAt"`
	DeletedAt gorm.DeletedAt `json:"DeletedAt,omitempty" gorm:"index"`

	// Relations
	Place    *Place             `json:"Place,omitempty" gorm:"foreignKey:PlaceID;references:ID"`
	Products []CafeteriaProduct `json:"Products,omitempty" gorm:"foreignKey:CafeteriaPlaceID;references:ID"`
}

func (CafeteriaPlace) TableName() string {
	return "cafeteria_places"
}

// CafeteriaProduct is an item sold at a cafeteria counter.
type CafeteriaProduct struct {
	ID               int64          `json:"Id" gorm:"primaryKey;autoIncrement"`
	Name             string         `json:"Name" gorm:"size:100;not null;uniqueIndex:idx_product_place"`
	Price            float64        `json:"Price"`
	Status           int            `json:"Status"`
	CafeteriaPlaceID int64          `json:"CafeteriaPlaceID" gorm:"index;uniqueIndex:idx_product_place"`
	ValidFrom        time.Time      `json:"ValidFrom"`
	CreatedAt        time.Time      `json:"CreatedAt"`
	UpdatedAt        time.Time      `json:"UpdatedAt"`
	DeletedAt        gorm.DeletedAt `json:"DeletedAt,omitempty" gorm:"index"`

	// Relations
	CafeteriaPlace *CafeteriaPlace `json:"CafeteriaPlace,omitempty" gorm:"foreignKey:CafeteriaPlaceID;references:ID"`
}

func (CafeteriaProduct) TableName() string {
	return "cafeteria_products"
}

// AccessGroup grants its employees entry to a set of doors.
type AccessGroup struct {
	ID          int64          `json:"Id" gorm:"primaryKey;autoIncrement"`
	Name        string         `json:"Name" gorm:"size:100;not null;uniqueIndex"`
	Description string         `json:"Description"`
	CreatedAt   time.Time      `json:"CreatedAt"`
	DeletedAt   gorm.DeletedAt `json:"DeletedAt,omitempty" gorm:"index"`

	// Relations
	Employees []Employee `json:"Employees,omitempty" gorm:"foreignKey:AccessGroupID;references:ID"`
}

func (AccessGroup) TableName() string {
	return "access_groups"
}

// Employee is a card holder.
type Employee struct {
	ID            int64          `json:"Id" gorm:"primaryKey;autoIncrement"`
	FirstName     string         `json:"FirstName" gorm:"size:50"`
	LastName      string         `json:"LastName" gorm:"size:50"`
	CardNumber    string         `json:"CardNumber" gorm:"size:32;uniqueIndex"`
	AccessGroupID *int64         `json:"AccessGroupID"`
	PlaceID       *int64         `json:"PlaceID"`
	HireDate      time.Time      `json:"HireDate"`
	CreatedAt     time.Time      `json:"CreatedAt"`
	DeletedAt     gorm.DeletedAt `json:"DeletedAt,omitempty" gorm:"index"`

	// Relations
	AccessGroup *AccessGroup `json:"AccessGroup,omitempty" gorm:"foreignKey:AccessGroupID;references:ID"`
	Place       *Place       `json:"Place,omitempty" gorm:"foreignKey:PlaceID;references:ID"`
}

func (Employee) TableName() string {
	return "employees"
}

// RegisterTestModels registers the test models under their table names.
func RegisterTestModels(registry *modelregistry.DefaultModelRegistry) error {
	for _, m := range GetTestModels() {
		name := m.(interface{ TableName() string }).TableName()
		if err := registry.RegisterModel(name, m); err != nil {
			return err
		}
	}
	return nil
}

// GetTestModels returns the models in migration order.
func GetTestModels() []interface{} {
	return []interface{}{
		Place{},
		CafeteriaPlace{},
		CafeteriaProduct{},
		AccessGroup{},
		Employee{},
	}
}
