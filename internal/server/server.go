package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/contrib/cors"
	"github.com/gin-gonic/contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/clock"
	"github.com/fatigue-platform/operator-console/m/v2/internal/devices"
	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/journal"
	"github.com/fatigue-platform/operator-console/m/v2/internal/lifecycle"
	"github.com/fatigue-platform/operator-console/m/v2/internal/reconcile"
	"github.com/fatigue-platform/operator-console/m/v2/internal/registry"
	"github.com/fatigue-platform/operator-console/m/v2/internal/retraining"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/auth"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/handlers"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/metrics"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/push"
	"github.com/fatigue-platform/operator-console/m/v2/pkg/backend"
)

var jwtIdentityKey = "identityKey"

type serverImpl struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel
	opts          *domain.Configuration
	app           *gin.Engine

	// prometheusMetrics is a wrapper around the Prometheus metrics of the console.
	prometheusMetrics *metrics.PrometheusMetricsWrapper

	// Handler returned by promhttp.Handler to serve Prometheus metrics.
	prometheusHandler http.Handler

	client     *backend.Client
	sessions   *registry.SessionRegistry
	employees  *registry.EmployeeDirectory
	scheduler  *reconcile.Scheduler
	controller *lifecycle.Controller
	resolver   *devices.Resolver
	monitor    *retraining.Monitor
	journal    *journal.SQLiteJournal

	// pushHub streams the session registry to connected frontends.
	pushHub *push.Hub

	expectedOriginPort      int
	expectedOriginAddresses []string

	// The base prefix. Useful when the console is deployed behind a reverse proxy.
	baseListenPrefix string

	// Endpoint to serve prometheus metrics scraping requests
	// Defined separately from the base-listen-prefix.
	prometheusEndpoint string

	adminUsername           string
	adminPassword           string
	jwtTokenValidDuration   time.Duration
	jwtTokenRefreshInterval time.Duration
}

func NewServer(opts *domain.Configuration) domain.Server {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Debug {
		atom.SetLevel(zapcore.DebugLevel)
	}

	s := &serverImpl{
		opts:                    opts,
		atom:                    &atom,
		app:                     gin.New(),
		prometheusHandler:       promhttp.Handler(),
		adminUsername:           opts.AdminUser,
		adminPassword:           opts.AdminPassword,
		jwtTokenValidDuration:   time.Second * time.Duration(opts.TokenValidDurationSec),
		jwtTokenRefreshInterval: time.Second * time.Duration(opts.TokenRefreshIntervalSec),
		expectedOriginPort:      opts.ExpectedOriginPort,
		expectedOriginAddresses: make([]string, 0),
		baseListenPrefix:        opts.BaseUrl,
		prometheusEndpoint:      opts.PrometheusEndpoint,
	}

	// Default to "/"
	if s.baseListenPrefix == "" {
		s.baseListenPrefix = "/"
	}

	// Default value
	if s.prometheusEndpoint == "" {
		s.prometheusEndpoint = "/" + domain.PrometheusEndpoint
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for operator console")
	}

	s.logger = logger
	s.sugaredLogger = logger.Sugar()

	for _, addr := range strings.Split(opts.ExpectedOriginAddresses, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}

		expectedOrigin := fmt.Sprintf("%s:%d", addr, s.expectedOriginPort)
		s.logger.Debug("Loaded expected origin from configuration.", zap.String("origin", expectedOrigin))
		s.expectedOriginAddresses = append(s.expectedOriginAddresses, expectedOrigin)
	}

	if err := s.setupComponents(); err != nil {
		panic(err)
	}

	if err := s.setupRoutes(); err != nil {
		panic(err)
	}

	return s
}

// setupComponents creates the backend client and every component that sits on top of it.
func (s *serverImpl) setupComponents() error {
	var errs []error
	s.prometheusMetrics, errs = metrics.NewPrometheusMetricsWrapper(prometheus.DefaultRegisterer, s.atom)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	client, err := backend.NewClient(s.opts.BackendBaseUrl, s.opts.BackendToken, s.opts.RequestTimeout(), s.atom, s.prometheusMetrics)
	if err != nil {
		s.logger.Error("Failed to create platform backend client.", zap.String("base_url", s.opts.BackendBaseUrl), zap.Error(err))
		return err
	}
	s.client = client

	s.journal, err = journal.Open(s.opts.JournalPath, s.opts.JournalCapacity, s.atom)
	if err != nil {
		s.logger.Error("Failed to open command journal.", zap.String("path", s.opts.JournalPath), zap.Error(err))
		return err
	}

	realClock := clock.NewRealClock()

	s.sessions = registry.NewSessionRegistry(s.opts.TrendWindow, s.atom)
	s.employees = registry.NewEmployeeDirectory()
	s.scheduler = reconcile.NewScheduler(client, s.sessions, s.employees, realClock, s.opts, s.prometheusMetrics, s.atom)
	s.controller = lifecycle.NewController(client, s.sessions, s.employees, s.scheduler, realClock, s.journal, s.prometheusMetrics, s.opts, s.atom)
	s.resolver = devices.NewResolver(client, s.journal, realClock, s.opts.DeviceIdentifierPrefix, s.atom)
	s.monitor = retraining.NewMonitor(client, realClock, s.journal, s.prometheusMetrics, s.opts, s.atom)

	s.monitor.Subscribe(func(outcome domain.WatchOutcome, view domain.RetrainingView) {
		s.logger.Info(domain.LightPurpleStyle.Render("Retraining watch ended."), zap.String("outcome", string(outcome)))
	})

	if errs = s.prometheusMetrics.RegisterSessionGauges(s.sessions); len(errs) > 0 {
		return errors.Join(errs...)
	}

	upgrader := &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.pushHub = push.NewHub(s.sessions, realClock, time.Duration(s.opts.PushUpdateInterval)*time.Second, upgrader, s.atom)

	return nil
}

func (s *serverImpl) checkOrigin(r *http.Request) bool {
	incomingOrigin := r.Header.Get("Origin")
	for _, expectedOrigin := range s.expectedOriginAddresses {
		if incomingOrigin == expectedOrigin {
			return true
		}
	}

	s.logger.Error("Incoming session push connection had unexpected origin. Rejecting.",
		zap.String("request-origin", incomingOrigin),
		zap.String("request-host", r.Host), zap.String("request-uri", r.RequestURI))
	return false
}

// ErrorHandlerMiddleware is gin middleware to handle errors that occur while the request handlers
// are processing/handling a request.
func (s *serverImpl) ErrorHandlerMiddleware(c *gin.Context) {
	c.Next() // Execute all the handlers.

	s.logger.Debug("Served request.", zap.String("origin", c.Request.Header.Get("Origin")),
		zap.String("url", c.Request.URL.String()), zap.Int("status", c.Writer.Status()))

	errorsEncountered := make([]error, 0)
	for _, err := range c.Errors {
		errorsEncountered = append(errorsEncountered, err.Err)
		s.logger.Error("Error encountered.", zap.Error(err))
	}

	// Handlers normally write their own error response.
	if len(errorsEncountered) > 0 && !c.Writer.Written() {
		c.JSON(-1, gin.H{
			"message": errors.Join(errorsEncountered...).Error(),
		})
	}
}

func (s *serverImpl) jwtPayloadFunc() func(data interface{}) jwt.MapClaims {
	return func(data interface{}) jwt.MapClaims {
		if v, ok := data.(*auth.AuthorizedUser); ok {
			return jwt.MapClaims{
				jwtIdentityKey: v.Username,
			}
		}
		return jwt.MapClaims{}
	}
}

func (s *serverImpl) jwtIdentityHandler() func(c *gin.Context) interface{} {
	return func(c *gin.Context) interface{} {
		claims := jwt.ExtractClaims(c)
		identity, ok := claims[jwtIdentityKey].(string)
		if ok {
			return &auth.AuthorizedUser{
				Username: identity,
			}
		}

		return nil
	}
}

func (s *serverImpl) jwtAuthenticator() func(c *gin.Context) (interface{}, error) {
	return func(c *gin.Context) (interface{}, error) {
		var login *auth.LoginRequest
		if err := c.ShouldBind(&login); err != nil {
			s.logger.Warn("Received login request with missing login values.")
			return "", jwt.ErrMissingLoginValues
		}

		s.logger.Debug("Received authentication request.", zap.String("username", login.Username))

		if login.Username == s.adminUsername && login.Password == s.adminPassword {
			return &auth.AuthorizedUser{Username: login.Username}, nil
		}
		return nil, jwt.ErrFailedAuthentication
	}
}

func (s *serverImpl) jwtAuthorizer() func(data interface{}, c *gin.Context) bool {
	return func(data interface{}, c *gin.Context) bool {
		user, ok := data.(*auth.AuthorizedUser)
		if !ok {
			s.logger.Debug("Rejecting unauthorized request.", zap.Any("data", data))
			return false
		}

		if user.Username != s.adminUsername {
			s.logger.Warn("Rejecting request from non-admin user.", zap.String("username", user.Username))
			return false
		}

		return true
	}
}

func (s *serverImpl) jwtHandleUnauthorized() func(c *gin.Context, code int, message string) {
	return func(c *gin.Context, code int, message string) {
		s.logger.Debug("JWT unauthorized request handler called.",
			zap.Int("code", code), zap.String("message", message),
			zap.String("remote_address", c.Request.RemoteAddr),
			zap.String("client_ip", c.ClientIP()))

		c.JSON(code, gin.H{
			"code":    code,
			"message": message,
		})
	}
}

func (s *serverImpl) initJWTParams() *jwt.GinJWTMiddleware {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}

	return &jwt.GinJWTMiddleware{
		Realm:             "Fatigue Platform Operator Console",
		Key:               key,
		Timeout:           s.jwtTokenValidDuration,
		MaxRefresh:        s.jwtTokenRefreshInterval,
		IdentityKey:       jwtIdentityKey,
		PayloadFunc:       s.jwtPayloadFunc(),
		IdentityHandler:   s.jwtIdentityHandler(),
		Authenticator:     s.jwtAuthenticator(),
		Authorizator:      s.jwtAuthorizer(),
		Unauthorized:      s.jwtHandleUnauthorized(),
		SendAuthorization: true,
		TokenLookup:       "header: Authorization, query: token, cookie: jwt",
		TokenHeadName:     "Bearer",
		TimeFunc:          time.Now,
	}
}

func (s *serverImpl) jwtHandlerMiddleWare(authMiddleware *jwt.GinJWTMiddleware) gin.HandlerFunc {
	return func(context *gin.Context) {
		errInit := authMiddleware.MiddlewareInit()
		if errInit != nil {
			log.Fatal("authMiddleware.MiddlewareInit() Error:" + errInit.Error())
		}
	}
}

func lastChar(target string) uint8 {
	if target == "" {
		panic("Cannot find last character of an empty string!")
	}

	return target[len(target)-1]
}

func (s *serverImpl) getPath(relativePath string) string {
	if relativePath == "" {
		return s.baseListenPrefix
	}

	finalPath := path.Join(s.baseListenPrefix, relativePath)
	if lastChar(relativePath) == '/' && lastChar(finalPath) != '/' {
		return finalPath + "/"
	}
	return finalPath
}

func (s *serverImpl) setupRoutes() error {
	s.app.ForwardedByClientIP = true
	if err := s.app.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		panic(err)
	}

	// The jwt middleware.
	authMiddleware, err := jwt.New(s.initJWTParams())
	if err != nil {
		log.Fatal("JWT Error:" + err.Error())
	}

	// Serve frontend static files
	if s.opts.StaticDirectory != "" {
		s.app.Use(static.Serve(s.baseListenPrefix, static.LocalFile(s.opts.StaticDirectory, true)))
		s.logger.Debug("Attached static middleware.", zap.String("directory", s.opts.StaticDirectory))
	}
	s.app.Use(s.jwtHandlerMiddleWare(authMiddleware))
	s.logger.Debug("Attached auth middleware.")
	s.app.Use(gin.Logger())
	s.logger.Debug("Attached logger middleware.")
	s.app.Use(cors.Default())
	s.logger.Debug("Attached CORS middleware.")
	s.app.Use(s.ErrorHandlerMiddleware)
	s.logger.Debug("Attached error-handler middleware.")

	////////////////////////
	// Prometheus metrics //
	////////////////////////
	s.app.GET(s.prometheusEndpoint, s.HandlePrometheusRequest)

	////////////////////////
	// Websocket Handlers //
	////////////////////////
	s.app.GET(s.getPath(domain.SessionsWebsocketEndpoint), authMiddleware.MiddlewareFunc(), s.pushHub.ServeWebsocket)

	pprof.Register(s.app, s.getPath("dev/pprof"))

	s.app.NoRoute(authMiddleware.MiddlewareFunc(), func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "PAGE_NOT_FOUND", "message": "Page not found"})
	})

	// Used by frontend to authenticate and get access to the console.
	s.app.POST(s.getPath(domain.AuthenticateRequest), func(c *gin.Context) {
		s.sugaredLogger.Debugf("JWT login handler called: \"%s\"", s.getPath(domain.AuthenticateRequest))
		authMiddleware.LoginHandler(c)
	})

	s.app.POST(s.getPath(domain.RefreshToken), func(c *gin.Context) {
		s.sugaredLogger.Debugf("JWT token refresh handler called: \"%s\"", s.getPath(domain.RefreshToken))
		authMiddleware.RefreshHandler(c)
	})

	sessionHandler := handlers.NewSessionHttpHandler(s.opts, s.controller, s.atom)
	employeeHandler := handlers.NewEmployeeHttpHandler(s.opts, s.controller, s.resolver, s.atom)
	retrainingHandler := handlers.NewRetrainingHttpHandler(s.opts, s.monitor, s.atom)
	journalHandler := handlers.NewJournalHttpHandler(s.opts, s.journal, s.atom)

	///////////////////////////////
	// Standard/Primary Handlers //
	///////////////////////////////
	apiGroup := s.app.Group(s.getPath(domain.BaseApiGroupEndpoint), authMiddleware.MiddlewareFunc())
	{
		// Used internally (by the frontend) to get the console config from the backend.
		apiGroup.GET(domain.SystemConfigEndpoint, handlers.NewConfigHttpHandler(s.opts, s.atom).HandleRequest)

		// Session registry and lifecycle commands.
		apiGroup.GET(domain.SessionsEndpoint, sessionHandler.HandleRequest)
		apiGroup.POST(domain.SessionsEndpoint, sessionHandler.HandleCreateRequest)
		apiGroup.GET(domain.SessionCountsEndpoint, sessionHandler.HandleCountsRequest)
		apiGroup.POST(domain.StopAllSessionsEndpoint, sessionHandler.HandleStopAllRequest)
		apiGroup.GET(domain.AutoRefreshEndpoint, sessionHandler.HandleGetAutoRefreshRequest)
		apiGroup.PUT(domain.AutoRefreshEndpoint, sessionHandler.HandleSetAutoRefreshRequest)
		apiGroup.GET(domain.SessionEndpoint, sessionHandler.HandleGetSessionRequest)
		apiGroup.DELETE(domain.SessionEndpoint, sessionHandler.HandleDeleteRequest)
		apiGroup.POST(domain.StopSessionEndpoint, sessionHandler.HandleStopRequest)
		apiGroup.POST(domain.RestartSessionEndpoint, sessionHandler.HandleRestartRequest)
		apiGroup.PATCH(domain.SessionConfigEndpoint, sessionHandler.HandleConfigRequest)

		// Employee selection and device provisioning.
		apiGroup.GET(domain.EmployeesEndpoint, employeeHandler.HandleRequest)
		apiGroup.GET(domain.EmployeeDeviceEndpoint, employeeHandler.HandleResolveDeviceRequest)
		apiGroup.POST(domain.EmployeeDeviceEndpoint, employeeHandler.HandleProvisionDeviceRequest)

		// Model retraining.
		apiGroup.GET(domain.RetrainingEndpoint, retrainingHandler.HandleRequest)
		apiGroup.POST(domain.RetrainingEndpoint, retrainingHandler.HandleStartRequest)

		// Operator command journal.
		apiGroup.GET(domain.JournalEndpoint, journalHandler.HandleRequest)
		apiGroup.GET(domain.JournalExportEndpoint, journalHandler.HandleExportRequest)
	}

	if s.opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return nil
}

func (s *serverImpl) HandlePrometheusRequest(c *gin.Context) {
	s.prometheusHandler.ServeHTTP(c.Writer, c.Request)
}

// Serve performs the initial load of the session registry, starts the background workers, and then serves
// HTTP requests. This is a blocking call.
func (s *serverImpl) Serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.journal.Start()
	defer func() {
		if err := s.journal.Close(); err != nil {
			s.logger.Error("Failed to close command journal.", zap.Error(err))
		}
	}()

	if err := s.controller.Load(ctx); err != nil {
		// The registry stays empty until the next successful reconciliation.
		s.logger.Warn("Initial load of the session registry failed.", zap.Error(err))
	}

	if err := s.monitor.Refresh(ctx); err != nil {
		s.logger.Warn("Initial load of the retraining view failed.", zap.Error(err))
	}

	s.scheduler.Start(ctx)
	defer s.scheduler.Stop()

	s.monitor.StartAutoRefresh(ctx)
	defer s.monitor.Stop()

	s.pushHub.Start()
	defer s.pushHub.Stop()

	addr := fmt.Sprintf(":%d", s.opts.ServerPort)
	s.logger.Info(domain.GreenStyle.Render("Listening for HTTP requests."), zap.String("address", addr))
	if err := http.ListenAndServe(addr, s.app); err != nil {
		s.sugaredLogger.Errorf("HTTP Server failed to listen on '%s'. Error: %v", addr, err)
		return err
	}

	return nil
}
