package gridserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"
	"github.com/uptrace/bunrouter"

	"github.com/bitechdev/ResolveGrid/pkg/common"
	"github.com/bitechdev/ResolveGrid/pkg/logger"
	"github.com/bitechdev/ResolveGrid/pkg/settings"
)

// SetupMuxRoutes sets up routes for the grid API with Mux.
// Mount it on a subrouter to serve under a path prefix.
func SetupMuxRoutes(muxRouter *mux.Router, handler *Handler) {
	muxRouter.HandleFunc("/settings/{key}", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleGetSetting(w, r, mux.Vars(r)["key"])
	}).Methods("GET")

	muxRouter.HandleFunc("/settings/{key}", func(w http.ResponseWriter, r *http.Request) {
		handler.HandlePutSetting(w, r, mux.Vars(r)["key"])
	}).Methods("PUT", "POST")

	muxRouter.HandleFunc("/{entity}", func(w http.ResponseWriter, r *http.Request) {
		handler.Handle(w, r, mux.Vars(r)["entity"])
	}).Methods("POST")

	muxRouter.HandleFunc("/{entity}", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleMetadata(w, r, mux.Vars(r)["entity"])
	}).Methods("GET")
}

// SetupBunRouterRoutes sets up the same routes on a bunrouter under prefix.
func SetupBunRouterRoutes(r *bunrouter.Router, prefix string, handler *Handler) {
	r.Handle("GET", prefix+"/settings/:key", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.HandleGetSetting(w, req.Request, req.Param("key"))
		return nil
	})

	r.Handle("PUT", prefix+"/settings/:key", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.HandlePutSetting(w, req.Request, req.Param("key"))
		return nil
	})

	r.Handle("POST", prefix+"/:entity", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.Handle(w, req.Request, req.Param("entity"))
		return nil
	})

	r.Handle("GET", prefix+"/:entity", func(w http.ResponseWriter, req bunrouter.Request) error {
		handler.HandleMetadata(w, req.Request, req.Param("entity"))
		return nil
	})
}

// HandleGetSetting writes the stored JSON value of key.
func (h *Handler) HandleGetSetting(w http.ResponseWriter, r *http.Request, key string) {
	if h.settings == nil {
		h.sendError(w, http.StatusNotFound, "no_settings", "Settings are not enabled", nil)
		return
	}
	value, err := h.settings.Get(r.Context(), key)
	if errors.Is(err, settings.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "not_found", "Setting not found", err)
		return
	}
	if err != nil {
		logger.Error("Failed to read setting %s: %v", key, err)
		h.sendError(w, http.StatusInternalServerError, "settings_error", "Failed to read setting", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(value); err != nil {
		logger.Error("Failed to write setting %s: %v", key, err)
	}
}

// HandlePutSetting stores the request body as the JSON value of key.
func (h *Handler) HandlePutSetting(w http.ResponseWriter, r *http.Request, key string) {
	if h.settings == nil {
		h.sendError(w, http.StatusNotFound, "no_settings", "Settings are not enabled", nil)
		return
	}
	value, err := io.ReadAll(r.Body)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body", err)
		return
	}
	if !gjson.ValidBytes(value) {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Setting value must be JSON", nil)
		return
	}
	if err := h.settings.Set(r.Context(), key, value); err != nil {
		logger.Error("Failed to store setting %s: %v", key, err)
		h.sendError(w, http.StatusInternalServerError, "settings_error", "Failed to store setting", err)
		return
	}
	logger.Info("Stored setting %s", key)
	h.sendResponse(w, recordResponse{Status: common.StatusSuccess})
}
