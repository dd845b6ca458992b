package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/DeanThompson/ginpprof"
	"github.com/cloudfinch-harshad/rampart/apiexternal"
	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/cloudfinch-harshad/rampart/scheduler"
	"github.com/cloudfinch-harshad/rampart/session"
	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	ginlog "github.com/toorop/gin-logrus"
)

const (
	ctxSession = "session"
	ctxUser    = "user"
)

// Server carries the collaborators of the handlers.
type Server struct {
	Sessions  *session.Manager
	Scheduler *scheduler.Scheduler
	Notifier  apiexternal.Notifier

	// Config defaults to config.Get so reloaded values apply to new requests.
	Config func() config.MainConfig
	Now    func() time.Time
}

func (s *Server) config() config.MainConfig {
	if s.Config == nil {
		return config.Get()
	}
	return s.Config()
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// NewRouter builds the gin engine with every route below /api.
func NewRouter(s *Server) *gin.Engine {
	cfg := s.config()
	if !logger.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginlog.Logger(logger.Log), gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.General.CorsOrigins)))

	if logger.IsDebug() {
		ginpprof.Wrap(router)
	}

	rg := router.Group("/api", s.AuthMiddleware())
	AddAuthRoutes(rg, s)
	AddVendorRoutes(rg, s)
	AddBrsrRoutes(rg, s)
	rg.GET("/health", s.apiHealth)
	rg.GET("/scheduler/jobs", s.apiSchedulerJobs)

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Not found")
	})
	return router
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://") {
			cc.AllowOrigins = append(cc.AllowOrigins, o)
		} else if o != "" {
			logger.Log.Warnln("ignoring cors origin without scheme: ", o)
		}
	}
	if len(cc.AllowOrigins) == 0 {
		cc.AllowCredentials = false
		cc.AllowAllOrigins = true
	}
	return cc
}

// AuthMiddleware resolves the session token of every request. Public paths
// pass without one; on other paths a missing or expired session ends the
// request with 401.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := s.config().Session
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token := session.TokenFromRequest(c.Request, cfg.CookieName)
		public := session.IsPublicPath(c.Request.URL.Path, cfg.PublicPaths)
		if token == "" && public {
			c.Next()
			return
		}
		sess, user, err := s.Sessions.CurrentUser(token)
		if err != nil {
			if public {
				c.Next()
				return
			}
			if errors.Is(err, session.ErrSessionExpired) {
				session.ClearCookie(c.Writer, c.Request, cfg.CookieName, cfg.SecureCookie)
			}
			code, msg := errorStatus(err)
			if code != http.StatusUnauthorized {
				code, msg = http.StatusUnauthorized, "Unauthorized"
			}
			fail(c, code, msg)
			c.Abort()
			return
		}
		c.Set(ctxSession, sess)
		c.Set(ctxUser, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) (session.Session, database.User, bool) {
	sv, ok := c.Get(ctxSession)
	if !ok {
		return session.Session{}, database.User{}, false
	}
	uv, _ := c.Get(ctxUser)
	user, _ := uv.(database.User)
	return sv.(session.Session), user, true
}

func success(c *gin.Context, message string, payload gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "message": message})
}

// failErr maps err onto a status code and writes the envelope. Validation
// errors carry the message of every failed field.
func failErr(c *gin.Context, err error) {
	code, msg := errorStatus(err)
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		c.JSON(code, gin.H{"success": false, "message": msg, "errors": verr.Fields})
		return
	}
	if code == http.StatusInternalServerError {
		logger.Log.WithField("path", c.Request.URL.Path).Errorln(err)
	}
	fail(c, code, msg)
}

func errorStatus(err error) (int, string) {
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized, "Session expired"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, session.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many login attempts, try again later"
	case errors.Is(err, session.ErrEmailTaken):
		return http.StatusConflict, "An account with this email already exists"
	case errors.Is(err, database.ErrDuplicateAccessCode):
		return http.StatusConflict, "Access code already in use"
	case errors.Is(err, database.ErrUnknownRequirement):
		return http.StatusBadRequest, "Unknown requirement"
	case errors.Is(err, database.ErrNoResult):
		return http.StatusNotFound, "Not found"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// bindJSON decodes the request body into obj. An empty body leaves obj
// untouched.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// @Summary      Health
// @Description  Reports that the service is up and the schema version
// @Tags         general
// @Produce      json
// @Success      200  {object}  string
// @Router       /api/health [get]
func (s *Server) apiHealth(c *gin.Context) {
	success(c, "ok", gin.H{"dbVersion": database.DBVersion, "time": s.now().UTC()})
}

// @Summary      Scheduler jobs
// @Description  Lists the recurring jobs and the queued or running jobs
// @Tags         scheduler
// @Produce      json
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/scheduler/jobs [get]
func (s *Server) apiSchedulerJobs(c *gin.Context) {
	if s.Scheduler == nil {
		success(c, "Scheduler not running", gin.H{"jobs": []interface{}{}, "schedules": []interface{}{}})
		return
	}
	success(c, "Jobs fetched successfully", gin.H{"jobs": s.Scheduler.Jobs(), "schedules": s.Scheduler.Schedules()})
}
