package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubArchive struct {
	dir     string
	removed []string
}

func (s *stubArchive) Open(name string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, strings.TrimPrefix(name, "/")))
}

func (s *stubArchive) Remove(name string) error {
	s.removed = append(s.removed, name)
	return nil
}

func buildArtifactRouter(archive *stubArchive) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewArtifactHandler(archive)
	router.GET("/sync/artifacts/*name", h.Download)
	router.DELETE("/sync/artifacts/*name", h.Remove)
	return router
}

func TestArtifactHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "20219"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20219", "run-1.csv"), []byte("organisation,courses,error\n"), 0o644))
	router := buildArtifactRouter(&stubArchive{dir: dir})

	req, _ := http.NewRequest(http.MethodGet, "/sync/artifacts/20219/run-1.csv", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "organisation,courses,error\n", resp.Body.String())
	assert.Contains(t, resp.Header().Get("Content-Disposition"), `filename="run-1.csv"`)
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
}

func TestArtifactHandlerDownloadNotFound(t *testing.T) {
	router := buildArtifactRouter(&stubArchive{dir: t.TempDir()})

	req, _ := http.NewRequest(http.MethodGet, "/sync/artifacts/20219/missing.csv", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestArtifactHandlerRemove(t *testing.T) {
	archive := &stubArchive{dir: t.TempDir()}
	router := buildArtifactRouter(archive)

	req, _ := http.NewRequest(http.MethodDelete, "/sync/artifacts/20219/run-1.csv", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []string{"/20219/run-1.csv"}, archive.removed)
}
