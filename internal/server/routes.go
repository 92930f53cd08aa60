package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Market data
	mux.HandleFunc("/api/market-data", s.app.MarketHandler.MarketDataHandler)
	mux.HandleFunc("/api/quarters", s.app.MarketHandler.QuartersHandler)
	mux.HandleFunc("/api/stock/", s.app.MarketHandler.StockHandler)

	// API routes - Scraper
	mux.HandleFunc("/api/scraper/scrape", s.app.ScraperHandler.ScrapeHandler)
	mux.HandleFunc("/api/scraper/companies", s.app.MarketHandler.CompaniesHandler)
	mux.HandleFunc("/api/scraper/remove-quarter", s.app.ScraperHandler.RemoveQuarterHandler)

	// API routes - Portfolio
	mux.HandleFunc("/api/portfolio/holdings", s.app.PortfolioHandler.HoldingsHandler)
	mux.HandleFunc("/api/portfolio/holdings/", s.handleHoldingRoutes)

	// API routes - Analysis
	mux.HandleFunc("/api/analysis/", s.app.AnalysisHandler.Route)

	// API routes - Settings
	mux.HandleFunc("/api/settings", s.app.SettingsHandler.ListHandler)
	mux.HandleFunc("/api/settings/", s.app.SettingsHandler.SettingHandler)

	// API routes - Database management
	mux.HandleFunc("/api/database/backup", s.app.AdminHandler.BackupHandler)
	mux.HandleFunc("/api/database/backups", s.app.AdminHandler.ListBackupsHandler)
	mux.HandleFunc("/api/database/restore", s.app.AdminHandler.RestoreHandler)
	mux.HandleFunc("/api/database/reset", s.app.AdminHandler.ResetHandler)

	// API routes - System
	mux.HandleFunc("/api/health", s.app.AdminHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.AdminHandler.VersionHandler)

	return mux
}

// handleHoldingRoutes dispatches /api/portfolio/holdings/ subpaths:
// POST /api/portfolio/holdings/import and {id} operations.
func (s *Server) handleHoldingRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/portfolio/holdings/"), "/")
	if rest == "import" {
		s.app.PortfolioHandler.ImportHandler(w, r)
		return
	}
	s.app.PortfolioHandler.HoldingHandler(w, r)
}
