package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"pisowifi-backend/config"
	"pisowifi-backend/internal/mw"
	"pisowifi-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	// Short-TTL cache for the operator device listing only. Balance reads
	// must always hit the store.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 10*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	device := r.Group("/device")
	device.Use(rateLimiter)
	{
		device.POST("/connected", handler.Connected)
		device.POST("/disconnected", handler.Disconnected)
		device.POST("/save", handler.SaveDevice)
		device.PUT("/:mac_address", handler.UpdateDevice)
		device.DELETE("/:mac_address", handler.DeleteDevice)
		device.PATCH("/add-time", handler.AddTime)
		device.PATCH("/reduce-time", handler.ReduceTime)
		device.GET("/get", handler.GetDevice)
		device.GET("/expired", handler.IsExpired)
		device.GET("/list", caching, handler.ListDevices)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
