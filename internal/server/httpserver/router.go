package httpserver

import (
	"net/http"

	"github.com/dmitrijs2005/docgate/internal/logging"
	"github.com/dmitrijs2005/docgate/internal/server/auth"
	"github.com/dmitrijs2005/docgate/internal/server/gateway"
	"github.com/gin-gonic/gin"
)

// AssetRoute is the route group every gateway endpoint hangs off.
const AssetRoute = "/api/workspaces/:slug/projects/:project_id/filestore/assets/:asset_id/onlyoffice"

// MetricsSource serves /metrics and observes requests.
type MetricsSource interface {
	RequestObserver
	Handler() http.Handler
}

type Deps struct {
	Service    *gateway.Service
	Gate       auth.Gate
	Secret     []byte
	APIBaseURL string
	Logger     logging.Logger
	// Metrics is optional.
	Metrics MetricsSource
}

func NewRouter(deps Deps) *gin.Engine {
	var obs RequestObserver
	if deps.Metrics != nil {
		obs = deps.Metrics
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Logger.With("module", "http"), obs))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	h := &GatewayHandler{Service: deps.Service, APIBaseURL: deps.APIBaseURL}
	asset := r.Group(AssetRoute)

	// Called by the document server; the capability signature is the only
	// credential.
	asset.GET("/download/", h.Download)
	asset.GET("/callback/", h.CallbackProbe)
	asset.POST("/callback/", h.Callback)

	host := asset.Group("")
	host.Use(RequireAuth(deps.Secret))
	host.GET("/config/", Allow(deps.Gate, auth.OpOpenSession), h.Config)
	host.GET("/status/", Allow(deps.Gate, auth.OpStatus), h.Status)
	host.GET("/versions/", Allow(deps.Gate, auth.OpVersions), h.Versions)
	host.POST("/restore/", Allow(deps.Gate, auth.OpRestore), h.Restore)
	host.POST("/forcesave/", Allow(deps.Gate, auth.OpForceSave), h.ForceSave)

	return r
}
