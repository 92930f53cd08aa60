package interfaces

import "time"

// Event is a broadcast notification about service activity, delivered to
// websocket subscribers.
type Event struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Event types published by the services.
const (
	EventScrapeStarted   = "scrape_started"
	EventCompanyScraped  = "company_scraped"
	EventCompanySkipped  = "company_skipped"
	EventScrapeCompleted = "scrape_completed"
	EventScrapeFailed    = "scrape_failed"
	EventAnalysisCreated = "analysis_generated"
)

// EventService broadcasts events to subscribers.
type EventService interface {
	Publish(event Event)

	// Subscribe registers a new subscriber and returns its channel together
	// with an unsubscribe function. Slow subscribers drop events rather than
	// blocking publishers.
	Subscribe() (<-chan Event, func())
}
