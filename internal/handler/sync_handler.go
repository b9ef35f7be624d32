package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sqrlplanner/timetable-sync/internal/dto"
	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
	"github.com/sqrlplanner/timetable-sync/pkg/response"
)

type syncScheduler interface {
	Trigger(session string) (string, error)
	LastReport(name string) *models.SyncReport
}

// SyncHandler exposes the on-demand sync trigger surface.
type SyncHandler struct {
	scheduler syncScheduler
}

// NewSyncHandler builds a new handler.
func NewSyncHandler(scheduler syncScheduler) *SyncHandler {
	return &SyncHandler{scheduler: scheduler}
}

// Trigger enqueues a sync run, optionally pinned to an explicit session.
func (h *SyncHandler) Trigger(c *gin.Context) {
	// An absent or empty body triggers a plain run; binding must not gate on
	// Content-Length since chunked requests report -1.
	var req dto.TriggerSyncRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code,
				apperrors.ErrValidation.Status, "invalid trigger request"))
			return
		}
	}

	runID, err := h.scheduler.Trigger(req.Session)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.TriggerSyncResponse{
		RunID:   runID,
		Session: req.Session,
		Status:  "enqueued",
	})
}

// LastReport returns the most recent run report for a source.
func (h *SyncHandler) LastReport(c *gin.Context) {
	report := h.scheduler.LastReport(c.Param("source"))
	if report == nil {
		response.Error(c, apperrors.Clone(apperrors.ErrNotFound, "no completed run for source"))
		return
	}
	response.JSON(c, http.StatusOK, report)
}
