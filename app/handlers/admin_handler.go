// Package handlers contains HTTP request handlers and presentation layer logic for the admin API
package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/oliateam/leadfunnel/app/dto"
	businessflow "github.com/oliateam/leadfunnel/business_flow"
)

// AdminHandlerInterface exposes the operator-facing read endpoints
type AdminHandlerInterface interface {
	GetLeads(c fiber.Ctx) error
	GetNoteStats(c fiber.Ctx) error
	ExportNoteStats(c fiber.Ctx) error
}

type AdminHandler struct {
	stats businessflow.StatsFlow
}

func NewAdminHandler(stats businessflow.StatsFlow) AdminHandlerInterface {
	return &AdminHandler{stats: stats}
}

// GetLeads returns the qualified leads, newest first.
// GET /api/v1/leads?limit=100&offset=0
func (h *AdminHandler) GetLeads(c fiber.Ctx) error {
	limit := queryInt(c, "limit", 100)
	offset := queryInt(c, "offset", 0)
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	leads, err := h.stats.QualifiedLeads(c.Context(), limit, offset)
	if err != nil {
		return h.flowError(c, err)
	}
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Qualified leads retrieved",
		Data:    leads,
	})
}

// GetNoteStats returns the click rollup for one note.
// GET /api/v1/notes/:id/stats
func (h *AdminHandler) GetNoteStats(c fiber.Ctx) error {
	noteID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{
			Success: false,
			Message: "Invalid note id",
			Error:   dto.ErrorDetail{Code: "INVALID_NOTE_ID"},
		})
	}

	stats, err := h.stats.NoteStats(c.Context(), uint(noteID))
	if err != nil {
		if errors.Is(err, businessflow.ErrNoteNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
				Success: false,
				Message: "Note not found",
				Error:   dto.ErrorDetail{Code: "NOTE_NOT_FOUND"},
			})
		}
		return h.flowError(c, err)
	}
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Note statistics retrieved",
		Data:    stats,
	})
}

// ExportNoteStats streams the per-group note statistics workbook.
// GET /api/v1/export/note-stats.xlsx
func (h *AdminHandler) ExportNoteStats(c fiber.Ctx) error {
	name, data, err := h.stats.ExportNoteStatsWorkbook(c.Context())
	if err != nil {
		return h.flowError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(data)
}

func (h *AdminHandler) flowError(c fiber.Ctx, err error) error {
	code := "INTERNAL_ERROR"
	var bizErr *businessflow.BusinessError
	if errors.As(err, &bizErr) {
		code = bizErr.Code
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
		Success: false,
		Message: "Request failed",
		Error:   dto.ErrorDetail{Code: code},
	})
}

func queryInt(c fiber.Ctx, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
