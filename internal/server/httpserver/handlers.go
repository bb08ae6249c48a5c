package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/server/gateway"
	"github.com/dmitrijs2005/docgate/internal/server/models"
	"github.com/gin-gonic/gin"
)

// maxCallbackBody bounds the JSON the document server may post.
const maxCallbackBody = 1 << 20

// GatewayHandler adapts gateway.Service to HTTP.
type GatewayHandler struct {
	Service *gateway.Service
	// APIBaseURL overrides the request-derived base of capability URLs.
	APIBaseURL string
}

func scopeFromPath(c *gin.Context) models.AssetScope {
	return models.AssetScope{
		WorkspaceSlug: c.Param("slug"),
		ProjectID:     c.Param("project_id"),
		AssetID:       c.Param("asset_id"),
	}
}

func capabilityFromQuery(c *gin.Context) gateway.Capability {
	return gateway.ParseCapability(c.Query("key"), c.Query("sig"))
}

func (h *GatewayHandler) tokenHeader(c *gin.Context) string {
	return c.GetHeader(h.Service.Tokens().Header())
}

// hostError maps an error from a host-facing call to a status and message.
func hostError(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Invalid authentication token"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrUnsupportedFileType):
		return http.StatusBadRequest, "unsupported file type"
	case errors.Is(err, gateway.ErrVersionOutsideNamespace):
		return http.StatusBadRequest, "invalid version_key"
	case errors.Is(err, gateway.ErrVersionNotRecorded):
		return http.StatusBadRequest, "version_key not found"
	case errors.Is(err, common.ErrMissingParameter):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// capabilityError maps a download or callback rejection.
func capabilityError(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrMissingParameter):
		return http.StatusBadRequest, "missing key/sig"
	case errors.Is(err, common.ErrSignatureInvalid):
		return http.StatusForbidden, "invalid signature"
	case errors.Is(err, common.ErrTokenMismatch):
		return http.StatusForbidden, strings.TrimPrefix(err.Error(), common.ErrTokenMismatch.Error()+": ")
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusForbidden, "invalid token"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "file not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *GatewayHandler) Config(c *gin.Context) {
	p, _ := PrincipalFromContext(c)
	user := gateway.EditorUser{ID: p.UserID, Name: p.Name}

	session, err := h.Service.OpenSession(c.Request.Context(), scopeFromPath(c), user, gateway.BaseURL(h.APIBaseURL, c.Request))
	if err != nil {
		_ = c.Error(err)
		status, msg := hostError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *GatewayHandler) Download(c *gin.Context) {
	d, err := h.Service.OpenDownload(c.Request.Context(), scopeFromPath(c), capabilityFromQuery(c), h.tokenHeader(c))
	if err != nil {
		_ = c.Error(err)
		status, msg := capabilityError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if d.RedirectURL != "" {
		c.Redirect(http.StatusFound, d.RedirectURL)
		return
	}
	defer d.Body.Close()

	c.DataFromReader(http.StatusOK, d.ContentLength, d.ContentType, d.Body, map[string]string{
		"Content-Disposition": contentDisposition(d.Filename),
	})
}

func contentDisposition(filename string) string {
	filename = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "").Replace(filename)
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}

// CallbackProbe answers the document server's GET on the callback URL.
func (h *GatewayHandler) CallbackProbe(c *gin.Context) {
	if err := h.Service.CheckCallback(scopeFromPath(c), capabilityFromQuery(c)); err != nil {
		status, msg := capabilityError(err)
		c.JSON(status, gin.H{"error": 1, "message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": 0})
}

func (h *GatewayHandler) Callback(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody)

	scope, capability := scopeFromPath(c), capabilityFromQuery(c)
	if err := h.Service.CheckCallback(scope, capability); err != nil {
		status, msg := capabilityError(err)
		c.JSON(status, gin.H{"error": 1, "message": msg})
		return
	}

	// A body that is not a callback object is read as status 0 and only
	// acknowledged.
	var req gateway.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": 1, "message": "callback body too large"})
			return
		}
		req = gateway.CallbackRequest{}
	}

	ack, err := h.Service.HandleCallback(c.Request.Context(), scope, capability, h.tokenHeader(c), req)
	if err != nil {
		_ = c.Error(err)
		status, msg := capabilityError(err)
		c.JSON(status, gin.H{"error": 1, "message": msg})
		return
	}
	// Save failures are still a 200: the ack body tells the editor to retry.
	c.JSON(http.StatusOK, ack)
}

func (h *GatewayHandler) Status(c *gin.Context) {
	report, err := h.Service.Status(c.Request.Context(), scopeFromPath(c))
	if err != nil {
		_ = c.Error(err)
		status, msg := hostError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *GatewayHandler) Versions(c *gin.Context) {
	versions, err := h.Service.Versions(c.Request.Context(), scopeFromPath(c))
	if err != nil {
		_ = c.Error(err)
		status, msg := hostError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

type restoreBody struct {
	VersionKey string `json:"version_key"`
}

func (h *GatewayHandler) Restore(c *gin.Context) {
	var body restoreBody
	// An empty body is allowed.
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	p, _ := PrincipalFromContext(c)
	err := h.Service.Restore(c.Request.Context(), scopeFromPath(c), p.UserID, strings.TrimSpace(body.VersionKey))
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, common.ErrMissingParameter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "version_key is required"})
			return
		}
		if errors.Is(err, common.ErrStorageWriteFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "restore failed"})
			return
		}
		status, msg := hostError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type forceSaveBody struct {
	DocKey string `json:"doc_key"`
}

func (h *GatewayHandler) ForceSave(c *gin.Context) {
	var body forceSaveBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.Service.ForceSave(c.Request.Context(), scopeFromPath(c), strings.TrimSpace(body.DocKey))
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, common.ErrUpstreamFetchFailed) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "forcesave failed"})
			return
		}
		status, msg := hostError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, res)
}
