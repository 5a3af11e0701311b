package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/convohub/convohub-api/pkg/errors"
	"github.com/convohub/convohub-api/pkg/response"
	"github.com/convohub/convohub-api/pkg/storage"
)

type signedTokenVerifier interface {
	Verify(token string) (string, error)
}

// FilesHandler serves tokenised downloads for the local storage
// backend. The token itself is the authorisation; the route is public.
type FilesHandler struct {
	backend storage.Backend
	signer  signedTokenVerifier
}

// NewFilesHandler constructs the handler.
func NewFilesHandler(backend storage.Backend, signer signedTokenVerifier) *FilesHandler {
	return &FilesHandler{backend: backend, signer: signer}
}

// Download streams the object named by a valid signed token.
func (h *FilesHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	path, err := h.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download link expired"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid download link"))
		return
	}

	rc, err := h.backend.Retrieve(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to open file"))
		return
	}
	defer rc.Close()

	disposition := c.DefaultQuery("disposition", storage.DispositionAttachment)
	if disposition != storage.DispositionInline {
		disposition = storage.DispositionAttachment
	}

	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filepath.Base(path)))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
