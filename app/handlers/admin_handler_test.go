package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/oliateam/leadfunnel/app/dto"
	businessflow "github.com/oliateam/leadfunnel/business_flow"
	"github.com/oliateam/leadfunnel/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatsFlow struct {
	leads        []*repository.LeadRow
	leadsErr     error
	noteStats    *dto.NoteStatsDTO
	noteStatsErr error

	gotLimit  int
	gotOffset int
}

func (s *stubStatsFlow) QualifiedLeads(_ context.Context, limit, offset int) ([]*repository.LeadRow, error) {
	s.gotLimit = limit
	s.gotOffset = offset
	return s.leads, s.leadsErr
}

func (s *stubStatsFlow) NoteStats(_ context.Context, _ uint) (*dto.NoteStatsDTO, error) {
	return s.noteStats, s.noteStatsErr
}

func (s *stubStatsFlow) ExportNoteStatsWorkbook(_ context.Context) (string, []byte, error) {
	return "note_stats_by_group.xlsx", []byte("workbook-bytes"), nil
}

func newTestApp(stats businessflow.StatsFlow) *fiber.App {
	app := fiber.New()
	h := NewAdminHandler(stats)
	app.Get("/api/v1/leads", h.GetLeads)
	app.Get("/api/v1/notes/:id/stats", h.GetNoteStats)
	app.Get("/api/v1/export/note-stats.xlsx", h.ExportNoteStats)
	return app
}

func TestGetLeads(t *testing.T) {
	stats := &stubStatsFlow{leads: []*repository.LeadRow{{UserID: 1, FirstName: "Lead"}}}
	app := newTestApp(stats)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/leads?limit=50&offset=10", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 50, stats.gotLimit)
	assert.Equal(t, 10, stats.gotOffset)

	var body dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.NotNil(t, body.Data)
}

func TestGetLeads_ClampsPagination(t *testing.T) {
	stats := &stubStatsFlow{}
	app := newTestApp(stats)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/leads?limit=99999&offset=-5", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 100, stats.gotLimit)
	assert.Equal(t, 0, stats.gotOffset)
}

func TestGetLeads_FlowErrorCarriesCode(t *testing.T) {
	stats := &stubStatsFlow{leadsErr: businessflow.NewBusinessError("LEAD_LIST_FAILED", "boom", nil)}
	app := newTestApp(stats)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/leads", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Success bool            `json:"success"`
		Error   dto.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "LEAD_LIST_FAILED", body.Error.Code)
}

func TestGetNoteStats(t *testing.T) {
	stats := &stubStatsFlow{noteStats: &dto.NoteStatsDTO{NoteID: 5, Title: "Promo", ClickCount: 3}}
	app := newTestApp(stats)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/notes/5/stats", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetNoteStats_InvalidID(t *testing.T) {
	app := newTestApp(&stubStatsFlow{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/notes/abc/stats", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetNoteStats_NotFound(t *testing.T) {
	app := newTestApp(&stubStatsFlow{noteStatsErr: businessflow.ErrNoteNotFound})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/notes/404/stats", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body struct {
		Error dto.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOTE_NOT_FOUND", body.Error.Code)
}

func TestExportNoteStats(t *testing.T) {
	app := newTestApp(&stubStatsFlow{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/export/note-stats.xlsx", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "note_stats_by_group.xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "workbook-bytes", string(data))
}
