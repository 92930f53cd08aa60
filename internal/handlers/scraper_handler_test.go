package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/services/scraper"
)

type mockScraperService struct {
	status      scraper.RunStatus
	err         error
	ranSymbols  []string
	listingURLs []string
}

func (m *mockScraperService) Run(ctx context.Context, symbols []string) (scraper.RunStatus, error) {
	m.ranSymbols = append(m.ranSymbols, symbols...)
	return m.status, m.err
}

func (m *mockScraperService) ScrapeListing(ctx context.Context, url string) (scraper.RunStatus, error) {
	m.listingURLs = append(m.listingURLs, url)
	return m.status, m.err
}

type mockQuarterRemover struct {
	updated int
	err     error
	quarter string
}

func (m *mockQuarterRemover) RemoveQuarter(quarter string) (int, error) {
	m.quarter = quarter
	return m.updated, m.err
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestScrapeHandler_SingleStock(t *testing.T) {
	svc := &mockScraperService{status: scraper.RunStatus{Added: 1}}
	handler := NewScraperHandler(svc, &mockQuarterRemover{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, postJSON("/api/scraper/scrape", `{"stock":"INFY"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"INFY"}, svc.ranSymbols)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["companies_scraped"])
	assert.Equal(t, float64(0), data["companies_skipped"])
}

func TestScrapeHandler_ResultType(t *testing.T) {
	svc := &mockScraperService{status: scraper.RunStatus{Added: 4, Skipped: 2}}
	handler := NewScraperHandler(svc, &mockQuarterRemover{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, postJSON("/api/scraper/scrape", `{"result_type":"lr"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, svc.listingURLs, 1)
	assert.Contains(t, svc.listingURLs[0], "tab=LR")

	data := decodeEnvelope(t, rec).Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["companies_skipped"])
}

func TestScrapeHandler_UnknownResultType(t *testing.T) {
	handler := NewScraperHandler(&mockScraperService{}, &mockQuarterRemover{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, postJSON("/api/scraper/scrape", `{"result_type":"XX"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestScrapeHandler_ExactlyOneTarget(t *testing.T) {
	handler := NewScraperHandler(&mockScraperService{}, &mockQuarterRemover{}, common.GetLogger())

	for _, body := range []string{
		`{}`,
		`{"stock":"INFY","result_type":"LR"}`,
		`{"stock":"INFY","url":"https://example.test/page"}`,
	} {
		rec := httptest.NewRecorder()
		handler.ScrapeHandler(rec, postJSON("/api/scraper/scrape", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
		resp := decodeEnvelope(t, rec)
		assert.Equal(t, "Provide exactly one of stock, result_type, or url", resp.Message)
	}
}

func TestScrapeHandler_RunInProgress(t *testing.T) {
	svc := &mockScraperService{err: scraper.ErrRunInProgress}
	handler := NewScraperHandler(svc, &mockQuarterRemover{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, postJSON("/api/scraper/scrape", `{"stock":"INFY"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "already in progress")
}

func TestScrapeHandler_InvalidJSON(t *testing.T) {
	handler := NewScraperHandler(&mockScraperService{}, &mockQuarterRemover{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.ScrapeHandler(rec, postJSON("/api/scraper/scrape", `{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveQuarterHandler(t *testing.T) {
	remover := &mockQuarterRemover{updated: 2}
	handler := NewScraperHandler(&mockScraperService{}, remover, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.RemoveQuarterHandler(rec, postJSON("/api/scraper/remove-quarter", `{"quarter":"Q2 FY24-25"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Q2 FY24-25", remover.quarter)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["documents_updated"])
}

func TestRemoveQuarterHandler_MissingQuarter(t *testing.T) {
	handler := NewScraperHandler(&mockScraperService{}, &mockQuarterRemover{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.RemoveQuarterHandler(rec, postJSON("/api/scraper/remove-quarter", `{"quarter":"  "}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Quarter is required", decodeEnvelope(t, rec).Message)
}
