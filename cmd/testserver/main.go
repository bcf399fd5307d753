package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/mux"
	"github.com/uptrace/bunrouter"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"

	"github.com/bitechdev/ResolveGrid/pkg/config"
	"github.com/bitechdev/ResolveGrid/pkg/gridserver"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/modelregistry"
	"github.com/bitechdev/ResolveGrid/pkg/settings"
	"github.com/bitechdev/ResolveGrid/pkg/testmodels"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	fmt.Println("ResolveGrid test server starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Log.File != "" {
		logger.InitFile(cfg.Log.File, cfg.Log.Dev, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	} else {
		logger.Init(cfg.Log.Dev)
	}
	defer logger.Sync()

	// Init Models
	registry := modelregistry.NewModelRegistry()
	if err := testmodels.RegisterTestModels(registry); err != nil {
		logger.Error("Failed to register models: %v", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := initDB(cfg.Database)
	if err != nil {
		logger.Error("Failed to initialize database: %+v", err)
		os.Exit(1)
	}

	store := settings.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		logger.Error("Failed to migrate settings: %v", err)
		os.Exit(1)
	}

	handler := gridserver.NewHandler(db, registry).WithSettings(store)

	var root http.Handler
	switch cfg.Server.Router {
	case "bunrouter":
		r := bunrouter.New()
		gridserver.SetupBunRouterRoutes(r, cfg.Server.PathPrefix, handler)
		root = r
	default:
		r := mux.NewRouter()
		gridserver.SetupMuxRoutes(r.PathPrefix(cfg.Server.PathPrefix).Subrouter(), handler)
		root = r
	}

	if cfg.Server.AuthToken != "" {
		root = gridserver.AuthMiddleware(gridserver.StaticTokens(cfg.Server.AuthToken))(root)
		logger.Info("Bearer authentication enabled")
	}

	// Start server
	logger.Info("Starting server on %s%s (%s)", cfg.Server.Addr, cfg.Server.PathPrefix, cfg.Server.Router)
	if err := http.ListenAndServe(cfg.Server.Addr, root); err != nil {
		logger.Error("Server failed to start: %v", err)
		os.Exit(1)
	}
}

func initDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	level := gormlog.Warn
	if cfg.LogSQL {
		level = gormlog.Info
	}
	newLogger := gormlog.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		gormlog.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{Logger: newLogger, FullSaveAssociations: false})
	if err != nil {
		return nil, err
	}

	if !cfg.Migrate {
		return db, nil
	}
	if err := db.AutoMigrate(testmodels.GetTestModels()...); err != nil {
		return nil, err
	}
	if err := seed(db); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}
	return db, nil
}

// seed fills an empty database with a few rows to browse.
func seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&testmodels.Place{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		place := testmodels.Place{Name: "Main Building", Code: "MB"}
		if err := tx.Create(&place).Error; err != nil {
			return err
		}
		counter := testmodels.CafeteriaPlace{Name: "Ground Floor", PlaceID: place.ID, Active: true}
		if err := tx.Create(&counter).Error; err != nil {
			return err
		}
		today := time.Now().Truncate(24 * time.Hour)
		products := []testmodels.CafeteriaProduct{
			{Name: "Coffee", Price: 1.5, Status: 1, CafeteriaPlaceID: counter.ID, ValidFrom: today},
			{Name: "Sandwich", Price: 4.8, Status: 1, CafeteriaPlaceID: counter.ID, ValidFrom: today},
			{Name: "Soup", Price: 3.9, Status: 2, CafeteriaPlaceID: counter.ID, ValidFrom: today.AddDate(0, 0, 1)},
		}
		if err := tx.Create(&products).Error; err != nil {
			return err
		}
		group := testmodels.AccessGroup{Name: "Staff", Description: "All employees"}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		employee := testmodels.Employee{FirstName: "Ada", LastName: "Byron", CardNumber: "0001",
			AccessGroupID: &group.ID, PlaceID: &place.ID, HireDate: today}
		return tx.Create(&employee).Error
	})
}
