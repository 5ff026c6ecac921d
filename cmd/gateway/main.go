// Command gateway is the illustrative external transport named in spec §6
// ("observing events and pushing updates to clients"), outside the
// simulation core's own scope (spec §1). It speaks gin for the JSON command
// API — reshaped from the teacher's gorilla/mux routing onto gin since
// leanlp-BTC-coinjoin also reaches for gin, making it the more broadly
// attested router in the corpus — and gorilla/websocket for streaming
// engine.Engine's emitted events. It depends only on engine, collab and
// events: it never imports worldstore or process directly.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/techmad220/hackerexperience-go/collab"
	"github.com/techmad220/hackerexperience-go/collab/memdefault"
	"github.com/techmad220/hackerexperience-go/domain/cursor"
	domainnetwork "github.com/techmad220/hackerexperience-go/domain/network"
	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/engine"
	"github.com/techmad220/hackerexperience-go/events"
	"github.com/techmad220/hackerexperience-go/infrastructure/config"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
	"github.com/techmad220/hackerexperience-go/infrastructure/metrics"
	"github.com/techmad220/hackerexperience-go/mechanics"
	"github.com/techmad220/hackerexperience-go/worldstore/memory"
)

// gateway bundles the facade and collaborators every handler closes over.
// This is spec §9's "explicit Services-equivalent" — collab.Collaborators
// threaded through one struct instead of package-level singletons.
type gateway struct {
	eng  *engine.Engine
	pub  *events.MemoryPublisher
	coll collab.Collaborators
	log  *logging.Logger
	auth *authRegistry
}

func main() {
	cfg, err := config.LoadEngineConfig()
	if err != nil {
		log.Fatalf("gateway: load config: %v", err)
	}
	logger := logging.NewFromEnv("hackerexperience-gateway")

	mechCfg := mechanics.DefaultConfig()
	if err := mechCfg.Validate(); err != nil {
		log.Fatalf("gateway: invalid mechanics config: %v", err)
	}

	var m *metrics.Metrics
	if metrics.Enabled() {
		m = metrics.Init("hackerexperience-gateway")
	}

	pub := events.NewMemoryPublisher()
	// The gateway embeds its own in-memory World Store only so this
	// illustrative transport is runnable standalone; a real deployment
	// points cmd/gateway and cmd/engine at the same worldstore/postgres
	// instance via POSTGRES_DSN.
	store := memory.New()
	eng := engine.New(store, mechCfg, pub, logger, m)

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		logger.Warn("gateway: JWT_SECRET not set, using an insecure development default")
		jwtSecret = "development-insecure-secret-32-bytes-min"
	}

	gw := &gateway{
		eng: eng,
		pub: pub,
		coll: collab.Collaborators{
			Hasher:    memdefault.NewBcryptHasher(10),
			Issuer:    memdefault.NewJWTIssuer([]byte(jwtSecret), "hackerexperience-gateway"),
			Sanitizer: memdefault.NewHTMLSanitizer(memdefault.DefaultHTMLConfig()),
			Mailer:    memdefault.NewLoggingMailer(logger),
		},
		log:  logger,
		auth: newAuthRegistry(),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gatewayLogMiddleware(logger))

	router.POST("/auth/register", gw.handleRegister)
	router.POST("/auth/login", gw.handleLogin)
	router.POST("/support", gw.handleSupportMessage)
	router.GET("/ws", gw.handleWebsocket)

	api := router.Group("/api/v1")
	api.Use(gw.authMiddleware())
	api.POST("/processes", gw.handleSubmitProcess)
	api.GET("/processes", gw.handleQueryProcesses)
	api.GET("/processes/:id", gw.handleProcessStatus)
	api.POST("/processes/:id/pause", gw.handlePause)
	api.POST("/processes/:id/resume", gw.handleResume)
	api.DELETE("/processes/:id", gw.handleCancel)
	api.GET("/servers/:id", gw.handleGetServerView)

	addr := ":" + config.GetEnv("GATEWAY_PORT", "8081")
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("gateway: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("gateway: server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("gateway: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Error("gateway: shutdown error")
	}
}

func gatewayLogMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithContext(c.Request.Context()).
			WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			WithField("duration", time.Since(start)).
			Info("gateway: request")
	}
}

// ---- auth -------------------------------------------------------------

// authRegistry is a gateway-local credential store, separate from the World
// Store: account/password management is out of the simulation core's scope
// (spec §1 Non-goals), so this illustrative transport keeps it here rather
// than inventing a credentials table on the Player aggregate.
type authRegistry struct {
	byUsername map[string]credential
}

type credential struct {
	playerID player.ID
	hash     string
}

func newAuthRegistry() *authRegistry {
	return &authRegistry{byUsername: make(map[string]credential)}
}

func (gw *gateway) handleRegister(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, exists := gw.auth.byUsername[req.Username]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
		return
	}

	hash, err := gw.coll.Hasher.Hash(c.Request.Context(), req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	id := player.ID(uuid.NewString())
	if err := gw.eng.RegisterPlayer(c.Request.Context(), player.Player{ID: id, Username: req.Username}); err != nil {
		writeDomainError(c, err)
		return
	}
	gw.auth.byUsername[req.Username] = credential{playerID: id, hash: hash}

	c.JSON(http.StatusCreated, gin.H{"player_id": id})
}

func (gw *gateway) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cred, ok := gw.auth.byUsername[req.Username]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	match, err := gw.coll.Hasher.Verify(c.Request.Context(), req.Password, cred.hash)
	if err != nil || !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := gw.coll.Issuer.Issue(c.Request.Context(), string(cred.playerID), 3600)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (gw *gateway) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}
		subject, err := gw.coll.Issuer.Validate(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Set("owner_id", player.ID(subject))
		c.Next()
	}
}

// ---- support: exercises Sanitizer + Mailer -----------------------------

func (gw *gateway) handleSupportMessage(c *gin.Context) {
	var req struct {
		Subject string `json:"subject" binding:"required"`
		Body    string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	clean := gw.coll.Sanitizer.CleanHTML(req.Body)
	if err := gw.coll.Mailer.Enqueue(c.Request.Context(), "support@hackerexperience.local", req.Subject, clean); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// ---- process endpoints --------------------------------------------------

func (gw *gateway) handleSubmitProcess(c *gin.Context) {
	owner := c.MustGet("owner_id").(player.ID)

	var req struct {
		Kind       string  `json:"kind" binding:"required"`
		SourceID   string  `json:"source_id" binding:"required"`
		TargetID   string  `json:"target_id"`
		TargetFile string  `json:"target_file"`
		TunnelID   string  `json:"tunnel_id"`
		Priority   int     `json:"priority"`
		CPU        float64 `json:"cpu_required"`
		RAM        float64 `json:"ram_required"`
		Disk       float64 `json:"disk_required"`
		Net        float64 `json:"net_required"`
		BaseTimeMS int64   `json:"base_time_ms"`
		Complexity float64 `json:"complexity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := gw.eng.Submit(c.Request.Context(), engine.SubmitRequest{
		OwnerID:           owner,
		Kind:              domainprocess.Kind(req.Kind),
		SourceID:          server.ID(req.SourceID),
		TargetID:          server.ID(req.TargetID),
		TargetFile:        req.TargetFile,
		TunnelID:          domainnetwork.TunnelID(req.TunnelID),
		Priority:          domainprocess.Priority(req.Priority),
		ResourcesRequired: server.HardwareSpec{CPU: req.CPU, RAM: req.RAM, Disk: req.Disk, Net: req.Net},
		BaseTime:          time.Duration(req.BaseTimeMS) * time.Millisecond,
		Complexity:        req.Complexity,
		Effect:            domainprocess.CompletionEffect{Kind: domainprocess.Kind(req.Kind)},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (gw *gateway) handleQueryProcesses(c *gin.Context) {
	owner := c.MustGet("owner_id").(player.ID)

	cur, err := cursor.Decode(c.Query("cursor"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	limit := cursor.MaxPageSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, perr := strconv.Atoi(raw); perr == nil {
			limit = parsed
		}
	}

	page, err := gw.eng.ListFor(c.Request.Context(), owner, cur, limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (gw *gateway) handleProcessStatus(c *gin.Context) {
	p, err := gw.eng.Status(c.Request.Context(), domainprocess.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (gw *gateway) handlePause(c *gin.Context) {
	if err := gw.eng.Pause(c.Request.Context(), domainprocess.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (gw *gateway) handleResume(c *gin.Context) {
	if err := gw.eng.Resume(c.Request.Context(), domainprocess.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (gw *gateway) handleCancel(c *gin.Context) {
	if err := gw.eng.Cancel(c.Request.Context(), domainprocess.ID(c.Param("id"))); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (gw *gateway) handleGetServerView(c *gin.Context) {
	srv, err := gw.eng.ServerView(c.Request.Context(), server.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, srv)
}

// ---- websocket event stream ---------------------------------------------

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebsocket upgrades to a websocket and relays every events.Event
// addressed to the authenticated player (or broadcast events) until the
// connection drops, adapting events.Publisher onto gorilla/websocket the
// way spec §6 describes "pushing updates to clients".
func (gw *gateway) handleWebsocket(c *gin.Context) {
	token := c.Query("token")
	subject, err := gw.coll.Issuer.Validate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	owner := player.ID(subject)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		gw.log.WithField("error", err).Warn("gateway: websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := gw.pub.Subscribe(32)
	defer sub.Unsubscribe()

	for e := range sub.Events() {
		if len(e.Recipients) > 0 && !recipientIncludes(e.Recipients, owner) {
			continue
		}
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
}

func recipientIncludes(recipients []player.ID, owner player.ID) bool {
	for _, r := range recipients {
		if r == owner {
			return true
		}
	}
	return false
}

// ---- error mapping --------------------------------------------------------

// writeDomainError maps a domainerrors.DomainError's Kind onto an HTTP
// status. This mapping lives only here, never on the domain error type
// itself (SPEC_FULL §7's deliberate deviation from the teacher's
// ServiceError.HTTPStatus coupling).
func writeDomainError(c *gin.Context, err error) {
	de := domainerrors.As(err)
	if de == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domainerrors.KindNotFound:
		status = http.StatusNotFound
	case domainerrors.KindNotAuthorized:
		status = http.StatusForbidden
	case domainerrors.KindInvalidState, domainerrors.KindInvalidInput, domainerrors.KindInvalidRoute:
		status = http.StatusBadRequest
	case domainerrors.KindInsufficientResources, domainerrors.KindInsufficientFunds, domainerrors.KindHopOffline:
		status = http.StatusConflict
	case domainerrors.KindDuplicateProcess:
		status = http.StatusConflict
	case domainerrors.KindFormulaError, domainerrors.KindStoreError:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": de.Message, "kind": de.Kind})
}
