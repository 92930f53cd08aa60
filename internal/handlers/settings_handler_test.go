package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

type mockKVStorage struct {
	values map[string]string
}

func newMockKVStorage() *mockKVStorage {
	return &mockKVStorage{values: make(map[string]string)}
}

func (m *mockKVStorage) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[strings.ToLower(key)]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return value, nil
}

func (m *mockKVStorage) Set(ctx context.Context, key, value, description string) error {
	m.values[strings.ToLower(key)] = value
	return nil
}

func (m *mockKVStorage) Delete(ctx context.Context, key string) error {
	if _, ok := m.values[strings.ToLower(key)]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(m.values, strings.ToLower(key))
	return nil
}

func (m *mockKVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	pairs := make([]interfaces.KeyValuePair, 0, len(m.values))
	for k, v := range m.values {
		pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
	}
	return pairs, nil
}

func TestSettingsListHandler(t *testing.T) {
	kv := newMockKVStorage()
	kv.values["default_provider"] = "claude"
	handler := NewSettingsHandler(kv, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.ListHandler(rec, httptest.NewRequest("GET", "/api/settings", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	settings := data["settings"].([]interface{})
	assert.Len(t, settings, 1)
}

func TestSettingHandler_PutThenGet(t *testing.T) {
	kv := newMockKVStorage()
	handler := NewSettingsHandler(kv, common.GetLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/settings/default_provider", strings.NewReader(`{"value":"gemini"}`))
	handler.SettingHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gemini", kv.values["default_provider"])

	rec = httptest.NewRecorder()
	handler.SettingHandler(rec, httptest.NewRequest("GET", "/api/settings/default_provider", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec).Data.(map[string]interface{})
	assert.Equal(t, "gemini", data["value"])
}

func TestSettingHandler_GetMissing(t *testing.T) {
	handler := NewSettingsHandler(newMockKVStorage(), common.GetLogger())

	rec := httptest.NewRecorder()
	handler.SettingHandler(rec, httptest.NewRequest("GET", "/api/settings/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Setting not found: missing", decodeEnvelope(t, rec).Message)
}

func TestSettingHandler_MissingKey(t *testing.T) {
	handler := NewSettingsHandler(newMockKVStorage(), common.GetLogger())

	rec := httptest.NewRecorder()
	handler.SettingHandler(rec, httptest.NewRequest("GET", "/api/settings/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
