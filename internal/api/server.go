package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/localgroup/localgroup-server/internal/auth"
	"github.com/localgroup/localgroup-server/internal/group"
	"github.com/localgroup/localgroup-server/internal/metrics"
	"github.com/localgroup/localgroup-server/internal/place"
	"github.com/localgroup/localgroup-server/internal/safety"
	"github.com/localgroup/localgroup-server/internal/user"
	"github.com/localgroup/localgroup-server/internal/ws"
)

type Deps struct {
	Auth   *auth.Service
	Tokens *auth.TokenManager
	Users  *user.Service
	Places *place.Service
	Groups *group.Service
	Safety *safety.Service
	WS     *ws.Handler

	// Redis enables the auth rate limiter when non-nil.
	Redis          *redis.Client
	RedisPrefix    string
	AuthRatePerMin int

	Log *zap.SugaredLogger
}

type Server struct {
	deps Deps
}

func NewServer(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Services retain request-derived strings (route params, body
		// fields) past the handler return; without Immutable these alias
		// fasthttp's reusable buffers and get corrupted by later requests.
		Immutable: true,
	})
	s := &Server{deps: deps}

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	authGroup := app.Group("/auth")
	if deps.Redis != nil {
		limit := deps.AuthRatePerMin
		if limit == 0 {
			limit = 10
		}
		authGroup.Use(rateLimit(deps.Redis, deps.RedisPrefix, limit, time.Minute))
	}
	authGroup.Post("/request-otp", s.requestOTP)
	authGroup.Post("/verify-otp", s.verifyOTP)

	protected := app.Group("/", jwtAuth(deps.Tokens))

	protected.Get("/users/me", s.me)
	protected.Get("/users/trust-score", s.trustScore)
	protected.Post("/users/block/:userId", s.blockUser)

	protected.Get("/places", s.listPlaces)
	protected.Get("/places/nearby", s.nearbyPlaces)
	protected.Get("/places/:id", s.getPlace)

	protected.Post("/groups", s.createGroup)
	protected.Get("/groups/mine", s.myGroups)
	protected.Get("/groups", s.listGroups)
	protected.Get("/groups/:id", s.getGroup)
	protected.Post("/groups/:id/join", s.joinGroup)
	protected.Post("/groups/:id/join-private", s.joinPrivateGroup)
	protected.Post("/groups/:id/leave", s.leaveGroup)
	protected.Post("/groups/:id/confirm", s.confirmGroup)
	protected.Post("/groups/:id/report", s.reportMember)

	protected.Post("/safety/sos/:id", s.triggerSOS)
	protected.Post("/safety/resolve/:eventId", s.resolveSOS)

	// the websocket handshake authenticates itself from the token query
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(deps.WS.Handle))

	return app
}
