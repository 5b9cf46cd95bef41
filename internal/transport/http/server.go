package http

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	httpmetrics "github.com/slok/go-http-metrics/middleware"
	ginmetrics "github.com/slok/go-http-metrics/middleware/gin"

	"seochat/internal/bootstrap"
	"seochat/internal/transport/http/handler"
	"seochat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	reg := newRegistry()
	mdlw := httpmetrics.New(httpmetrics.Config{
		Recorder: metricsprom.NewRecorder(metricsprom.Config{Registry: reg}),
	})
	router.Use(ginmetrics.Handler("", mdlw))

	services := app.Services
	requireSession := middleware.RequireSession(services.Sessions, app.Config.Auth.CookieName)

	healthHandler := handler.NewHealthHandler(app)
	userHandler := handler.NewUserHandler(services.Identity, services.Sessions, handler.CookieConfig{
		Name:   app.Config.Auth.CookieName,
		Secure: app.Config.Auth.CookieSecure,
	}, handler.NewAuthMetrics(reg))
	clientHandler := handler.NewClientHandler(services.Tenants)
	documentHandler := handler.NewDocumentHandler(services.Documents)
	chatHandler := handler.NewChatHandler(services.Chats)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	users := router.Group("/users")
	users.POST("/register", userHandler.Register)
	users.POST("/login", userHandler.Login)
	users.POST("/logout", userHandler.Logout)
	users.GET("/me", requireSession, userHandler.Me)
	users.POST("/generate-embed", userHandler.GenerateEmbed)

	router.POST("/register", clientHandler.Register)
	router.POST("/prompt", clientHandler.SetPrompt)
	router.GET("/client/:name", clientHandler.Get)
	router.POST("/update-data", clientHandler.UpdateData)

	router.POST("/upload-pdf", documentHandler.Upload)
	router.GET("/download-pdf/:client_name", documentHandler.Download)
	router.GET("/client/:name/pdf", documentHandler.GetText)
	router.POST("/update-pdf-text", documentHandler.UpdateText)

	router.GET("/chats", requireSession, chatHandler.List)
	router.POST("/chat", chatHandler.Reply)

	return router
}

// NewHandler wraps the router with CORS. A "*" entry echoes the request
// origin so credentialed widget requests are accepted from any site.
func NewHandler(app *bootstrap.App) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   app.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if slices.Contains(opts.AllowedOrigins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}
	return cors.New(opts).Handler(NewRouter(app))
}
