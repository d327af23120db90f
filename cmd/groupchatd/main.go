// Command groupchatd is the reference runtime for GroupChatCore: it owns
// an in-memory registry of chats, exposes them over a Gin HTTP/WebSocket
// API, drains each chat's action queue to Kafka and to connected
// websocket clients, and exports Prometheus metrics — adapted from the
// teacher's cmd/server/main.go wiring (logrus, viper, gin, Prometheus,
// graceful shutdown), with the gRPC-gateway and Postgres/GORM pieces
// dropped since this core keeps no durable storage of its own (see
// DESIGN.md for why).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/openmesh-chat/groupchat-core/internal/config"
	"github.com/openmesh-chat/groupchat-core/internal/dispatch"
	"github.com/openmesh-chat/groupchat-core/internal/environment"
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/groupchat"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/metrics"
	"github.com/openmesh-chat/groupchat-core/internal/notifyhub"
	"github.com/openmesh-chat/groupchat-core/internal/ratelimit"
)

// registry owns every chat this replica currently holds in memory. A
// production deployment shards chats across many replicas by chat id;
// this reference runtime keeps them all in one process, matching the
// scale the core itself targets (§1: single logical replica per chat).
type registry struct {
	mu    sync.RWMutex
	chats map[string]*groupchat.GroupChatCore
	env   *environment.Prod
}

func newRegistry(env *environment.Prod) *registry {
	return &registry{chats: make(map[string]*groupchat.GroupChatCore), env: env}
}

func (r *registry) get(name string) (*groupchat.GroupChatCore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.chats[name]
	return g, ok
}

func (r *registry) create(name string, g *groupchat.GroupChatCore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[name] = g
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(lvl)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	prodEnv := environment.NewProd(ids.UserId("groupchatd"))
	reg := newRegistry(prodEnv)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addrs[0], Password: cfg.Redis.Password})
	defer redisClient.Close()

	hub := notifyhub.NewHub(logger, nil)
	go hub.Run(4)

	bridge := notifyhub.NewRedisBridge(redisClient, hub, logger)
	bridgeCtx, cancelBridge := context.WithCancel(context.Background())
	go bridge.Subscribe(bridgeCtx)
	go bridge.ResetHotChatCounters(bridgeCtx, 5*time.Minute)

	dispatcher := dispatch.New(cfg.Kafka.Brokers, cfg.Kafka.NotifyTopic, logger)
	dispatcher.Live = bridge.Publish
	defer dispatcher.Close()

	limiter := ratelimit.New(cfg.Group.RateLimitRPS, cfg.Group.RateLimitBurst)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(prometheusMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "groupchatd", "timestamp": time.Now().Unix()})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/chats")
	{
		api.POST("", createChatHandler(reg, prodEnv))
		api.POST("/:chat/members/:userId/join", joinHandler(reg, prodEnv))
		api.POST("/:chat/messages", sendMessageHandler(reg, prodEnv, limiter, dispatcher))
		api.GET("/:chat/events", eventsHandler(reg))
		api.GET("/:chat/search", searchHandler(reg, prodEnv))
	}
	router.GET("/ws", func(c *gin.Context) {
		userID := ids.UserId(c.Query("userId"))
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		if err := hub.Upgrade(c.Writer, c.Request, userID); err != nil {
			logger.WithError(err).Error("websocket upgrade failed")
		}
	})

	httpServer := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("starting groupchatd on port %d", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server failed: %v", err)
		}
	}()

	expiryTicker := time.NewTicker(time.Minute)
	defer expiryTicker.Stop()
	go func() {
		for range expiryTicker.C {
			reg.mu.RLock()
			for _, g := range reg.chats {
				g.RemoveExpiredEvents(prodEnv)
			}
			reg.mu.RUnlock()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancelBridge()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown error: %v", err)
	}
	logger.Info("stopped")
}

func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		metrics.CommandDuration.WithLabelValues(c.FullPath(), fmt.Sprintf("%d", status)).Observe(duration.Seconds())
		metrics.CommandsTotal.WithLabelValues(c.FullPath(), fmt.Sprintf("%d", status)).Inc()
	}
}

func createChatHandler(reg *registry, env *environment.Prod) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name        string `json:"name" binding:"required"`
			Description string `json:"description"`
			IsPublic    bool   `json:"isPublic"`
			CreatedBy   string `json:"createdBy" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if _, exists := reg.get(req.Name); exists {
			c.JSON(http.StatusConflict, gin.H{"error": "chat already exists"})
			return
		}
		g, err := groupchat.New(env.WithCaller(ids.UserId(req.CreatedBy)), groupchat.NewArgs{
			CreatedBy: ids.UserId(req.CreatedBy), Name: req.Name, Description: req.Description,
			RulesText: "Be respectful.", RulesEnabled: false, IsPublic: req.IsPublic,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reg.create(req.Name, g)
		metrics.MembersGauge.WithLabelValues(req.Name).Set(float64(g.Members.Len()))
		c.JSON(http.StatusCreated, gin.H{"name": req.Name})
	}
}

func joinHandler(reg *registry, env *environment.Prod) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, ok := reg.get(c.Param("chat"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		userID := ids.UserId(c.Param("userId"))
		res := g.JoinGroup(env.WithCaller(userID), userID)
		metrics.MembersGauge.WithLabelValues(c.Param("chat")).Set(float64(g.Members.Len()))
		c.JSON(http.StatusOK, gin.H{"result": int(res)})
	}
}

func sendMessageHandler(reg *registry, env *environment.Prod, limiter *ratelimit.Limiter, d *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, ok := reg.get(c.Param("chat"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		var req struct {
			Sender string `json:"sender" binding:"required"`
			Text   string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		caller := ids.UserId(req.Sender)
		if !limiter.Allow(caller) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		res, success, cverr := g.SendMessage(env.WithCaller(caller), groupchat.SendMessageArgs{
			Caller: caller, MessageID: ids.NewMessageId(), Content: eventlog.TextContent(req.Text),
		})
		if res != groupchat.SendSuccess {
			status := http.StatusForbidden
			body := gin.H{"result": int(res)}
			if cverr != nil {
				body["contentError"] = int(cverr.Kind)
			}
			c.JSON(status, body)
			return
		}
		d.Drain(c.Request.Context(), &g.Actions)
		c.JSON(http.StatusCreated, gin.H{"eventIndex": success.EventIndex, "messageIndex": success.MessageIndex})
	}
}

func eventsHandler(reg *registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, ok := reg.get(c.Param("chat"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		caller := ids.UserId(c.Query("userId"))
		events, qerr := g.Events(caller, nil, nil, false, 50, 50, nil)
		if qerr != groupchat.QueryErrNone {
			c.JSON(http.StatusForbidden, gin.H{"error": int(qerr)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

func searchHandler(reg *registry, env *environment.Prod) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, ok := reg.get(c.Param("chat"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		caller := ids.UserId(c.Query("userId"))
		matches, qerr := g.Search(caller, c.Query("q"), 20, env.WithCaller(caller))
		if qerr != groupchat.QueryErrNone {
			c.JSON(http.StatusForbidden, gin.H{"error": int(qerr)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}
