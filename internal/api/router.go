package api

import (
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/microblog/docs"
	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/model"
)

type RouterOptions struct {
	// Registry 为空时不暴露 /metrics
	Registry    *prometheus.Registry
	ServiceName string
	Sentry      bool
	Swagger     bool
	// MediaDir 本地存储目录，非空时在 /media 下提供图片
	MediaDir string
}

// NewRouter 注册中间件与全部路由
func NewRouter(h *handler.Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(middleware.Recovery())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	if opts.Registry != nil {
		r.Use(middleware.NewHTTPMetrics(opts.Registry).Handler())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))

	r.GET("/healthz", h.Healthz)
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if opts.MediaDir != "" {
		r.Static(strings.TrimSuffix(model.MediaPathPrefix, "/"), opts.MediaDir)
	}

	api := r.Group("/api")
	api.GET("/users/:id", h.GetUser)

	authed := api.Group("", h.Authenticate())
	{
		authed.GET("/users/me", h.Me)
		authed.POST("/users/:id/follow", h.Follow)
		authed.DELETE("/users/:id/follow", h.Unfollow)

		authed.GET("/tweets", h.ListTweets)
		authed.POST("/tweets", h.CreateTweet)
		authed.DELETE("/tweets/:id", h.DeleteTweet)
		authed.POST("/tweets/:id/likes", h.AddLike)
		authed.DELETE("/tweets/:id/likes", h.RemoveLike)

		authed.POST("/medias", h.UploadMedia)
	}
	return r
}
