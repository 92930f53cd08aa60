package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

// AdminHandler serves database management, health, and version requests.
type AdminHandler struct {
	storage   interfaces.StorageManager
	backupDir string
	logger    arbor.ILogger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(storage interfaces.StorageManager, backupDir string, logger arbor.ILogger) *AdminHandler {
	if backupDir == "" {
		backupDir = "backups"
	}
	return &AdminHandler{
		storage:   storage,
		backupDir: backupDir,
		logger:    logger,
	}
}

// BackupInfo describes one backup file on disk.
type BackupInfo struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
}

// BackupHandler handles POST /api/database/backup
func (h *AdminHandler) BackupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := os.MkdirAll(h.backupDir, 0o755); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create backup directory")
		WriteError(w, http.StatusInternalServerError, "Failed to create backup directory")
		return
	}

	filename := fmt.Sprintf("quaestus-%s.bak", time.Now().Format("20060102-150405"))
	path := filepath.Join(h.backupDir, filename)

	f, err := os.Create(path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("Failed to create backup file")
		WriteError(w, http.StatusInternalServerError, "Failed to create backup file")
		return
	}

	if err := h.storage.Backup(f); err != nil {
		f.Close()
		os.Remove(path)
		h.logger.Error().Err(err).Msg("Backup failed")
		WriteError(w, http.StatusInternalServerError, "Backup failed")
		return
	}
	if err := f.Close(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to finalize backup file")
		WriteError(w, http.StatusInternalServerError, "Failed to finalize backup file")
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to stat backup file")
		return
	}

	h.logger.Info().Str("filename", filename).Int64("size", info.Size()).Msg("Backup created")
	WriteData(w, http.StatusOK, "Backup created", BackupInfo{
		Filename: filename,
		Size:     info.Size(),
		Created:  info.ModTime(),
	})
}

// ListBackupsHandler handles GET /api/database/backups
func (h *AdminHandler) ListBackupsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	entries, err := os.ReadDir(h.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			WriteData(w, http.StatusOK, "No backups", map[string]interface{}{
				"backups": []BackupInfo{},
			})
			return
		}
		h.logger.Error().Err(err).Msg("Failed to read backup directory")
		WriteError(w, http.StatusInternalServerError, "Failed to read backup directory")
		return
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".bak" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename: entry.Name(),
			Size:     info.Size(),
			Created:  info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Created.After(backups[j].Created)
	})

	WriteData(w, http.StatusOK, "Backups retrieved", map[string]interface{}{
		"backups": backups,
	})
}

type restoreRequest struct {
	Filename string `json:"filename"`
}

// RestoreHandler handles POST /api/database/restore
func (h *AdminHandler) RestoreHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req restoreRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Filename == "" || req.Filename != filepath.Base(req.Filename) {
		WriteError(w, http.StatusBadRequest, "Invalid backup filename")
		return
	}

	path := filepath.Join(h.backupDir, req.Filename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			WriteError(w, http.StatusNotFound, "Backup not found: "+req.Filename)
			return
		}
		h.logger.Error().Err(err).Str("path", path).Msg("Failed to open backup file")
		WriteError(w, http.StatusInternalServerError, "Failed to open backup file")
		return
	}
	defer f.Close()

	if err := h.storage.Restore(f); err != nil {
		h.logger.Error().Err(err).Str("filename", req.Filename).Msg("Restore failed")
		WriteError(w, http.StatusInternalServerError, "Restore failed")
		return
	}

	h.logger.Info().Str("filename", req.Filename).Msg("Backup restored")
	WriteData(w, http.StatusOK, "Backup restored", map[string]interface{}{
		"filename": req.Filename,
	})
}

// ResetHandler handles POST /api/database/reset. Clears the financial
// records collection.
func (h *AdminHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	cleared, err := h.storage.StockStorage().ClearAll()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to reset financial records")
		WriteError(w, http.StatusInternalServerError, "Failed to reset financial records")
		return
	}

	h.logger.Warn().Int("cleared", cleared).Msg("Financial records reset")
	WriteData(w, http.StatusOK, "Financial records reset", map[string]interface{}{
		"cleared": cleared,
	})
}

// HealthHandler handles GET /api/health
func (h *AdminHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	records, err := h.storage.StockStorage().CountRecords()
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}

	WriteData(w, http.StatusOK, "Service healthy", map[string]interface{}{
		"status":  "ok",
		"records": records,
	})
}

// VersionHandler handles GET /api/version
func (h *AdminHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteData(w, http.StatusOK, "Version retrieved", map[string]interface{}{
		"version": common.GetFullVersion(),
	})
}
