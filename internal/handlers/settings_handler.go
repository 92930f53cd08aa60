package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

// SettingsHandler serves the persisted application settings.
type SettingsHandler struct {
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(kv interfaces.KeyValueStorage, logger arbor.ILogger) *SettingsHandler {
	return &SettingsHandler{
		kv:     kv,
		logger: logger,
	}
}

// ListHandler handles GET /api/settings
func (h *SettingsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	pairs, err := h.kv.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list settings")
		WriteError(w, http.StatusInternalServerError, "Failed to list settings")
		return
	}

	WriteData(w, http.StatusOK, "Settings retrieved", map[string]interface{}{
		"settings": pairs,
	})
}

type settingRequest struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// SettingHandler handles PUT /api/settings/{key} and GET /api/settings/{key}.
func (h *SettingsHandler) SettingHandler(w http.ResponseWriter, r *http.Request) {
	encoded := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/settings/"), "/")
	key, err := url.QueryUnescape(encoded)
	if err != nil || key == "" {
		WriteError(w, http.StatusBadRequest, "Invalid settings key")
		return
	}

	switch r.Method {
	case "GET":
		value, err := h.kv.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, interfaces.ErrKeyNotFound) {
				WriteError(w, http.StatusNotFound, "Setting not found: "+key)
				return
			}
			h.logger.Error().Err(err).Str("key", key).Msg("Failed to get setting")
			WriteError(w, http.StatusInternalServerError, "Failed to get setting")
			return
		}
		WriteData(w, http.StatusOK, "Setting retrieved", map[string]interface{}{
			"key":   key,
			"value": value,
		})

	case "PUT":
		var req settingRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.kv.Set(r.Context(), key, req.Value, req.Description); err != nil {
			h.logger.Error().Err(err).Str("key", key).Msg("Failed to save setting")
			WriteError(w, http.StatusInternalServerError, "Failed to save setting")
			return
		}
		WriteData(w, http.StatusOK, "Setting saved", map[string]interface{}{
			"key":   key,
			"value": req.Value,
		})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
