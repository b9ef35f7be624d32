package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
	"github.com/sqrlplanner/timetable-sync/pkg/response"
)

type reportArchive interface {
	Open(name string) (*os.File, error)
	Remove(name string) error
}

// ArtifactHandler serves archived run reports for download and deletion.
type ArtifactHandler struct {
	archive reportArchive
}

// NewArtifactHandler builds a new handler.
func NewArtifactHandler(archive reportArchive) *ArtifactHandler {
	return &ArtifactHandler{archive: archive}
}

// Download streams an archived run report.
func (h *ArtifactHandler) Download(c *gin.Context) {
	name := c.Param("name")
	file, err := h.archive.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = apperrors.Clone(apperrors.ErrNotFound, "no such artifact")
		}
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(name)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "text/csv", file, nil)
}

// Remove deletes an archived run report.
func (h *ArtifactHandler) Remove(c *gin.Context) {
	if err := h.archive.Remove(c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
