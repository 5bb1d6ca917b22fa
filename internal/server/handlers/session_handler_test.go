package handlers_test

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/clock"
	"github.com/fatigue-platform/operator-console/m/v2/internal/devices"
	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/lifecycle"
	"github.com/fatigue-platform/operator-console/m/v2/internal/mock_domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/reconcile"
	"github.com/fatigue-platform/operator-console/m/v2/internal/registry"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/handlers"
)

var _ = Describe("Session and employee handlers", func() {
	var (
		mockCtrl       *gomock.Controller
		mockBackend    *mock_domain.MockBackend
		simClock       *clock.SimulationClock
		scheduler      *reconcile.Scheduler
		controller     *lifecycle.Controller
		engine         *gin.Engine
		remoteSessions []*domain.SimulatorSession
		supervisorId   int
		ctx            context.Context
	)

	atom := zap.NewAtomicLevelAt(zapcore.DebugLevel)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockBackend = mock_domain.NewMockBackend(mockCtrl)
		simClock = clock.NewSimulationClockAt(time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC))
		ctx = context.Background()

		configuration := domain.GetDefaultConfig()
		configuration.AutoRefreshEnabled = false

		sessions := registry.NewSessionRegistry(configuration.TrendWindow, &atom)
		employees := registry.NewEmployeeDirectory()
		scheduler = reconcile.NewScheduler(mockBackend, sessions, employees, simClock, configuration, nil, &atom)
		controller = lifecycle.NewController(mockBackend, sessions, employees, scheduler, simClock, nil, nil, configuration, &atom)
		resolver := devices.NewResolver(mockBackend, nil, simClock, configuration.DeviceIdentifierPrefix, &atom)

		supervisorId = 3
		remoteSessions = []*domain.SimulatorSession{
			{Id: 12, EmployeeId: 7, DeviceId: "ESP32-007", Status: domain.SessionRunning, MessagesSent: 40},
			{Id: 13, EmployeeId: 9, DeviceId: "ESP32-009", Status: domain.SessionStopped, MessagesSent: 10},
		}

		mockBackend.EXPECT().ListSessions(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]*domain.SimulatorSession, error) {
			snapshot := make([]*domain.SimulatorSession, 0, len(remoteSessions))
			for _, session := range remoteSessions {
				snapshot = append(snapshot, session.Clone())
			}
			return snapshot, nil
		}).AnyTimes()

		mockBackend.EXPECT().ListAvailableEmployees(gomock.Any()).Return([]*domain.Employee{
			{Id: 7, FullName: "Zoe Ramos", HasActiveSimulator: true, SupervisorId: &supervisorId},
			{Id: 8, FullName: "Bruno Silva", SupervisorId: &supervisorId},
			{Id: 10, FullName: "Ines Costa"},
		}, nil).AnyTimes()

		scheduler.Start(ctx)
		Expect(controller.Load(ctx)).To(Succeed())

		configHandler := handlers.NewConfigHttpHandler(configuration, &atom)
		sessionHandler := handlers.NewSessionHttpHandler(configuration, controller, &atom)
		employeeHandler := handlers.NewEmployeeHttpHandler(configuration, controller, resolver, &atom)

		engine = gin.New()
		api := engine.Group(domain.BaseApiGroupEndpoint)
		{
			api.GET(domain.SystemConfigEndpoint, configHandler.HandleRequest)
			api.GET(domain.SessionsEndpoint, sessionHandler.HandleRequest)
			api.POST(domain.SessionsEndpoint, sessionHandler.HandleCreateRequest)
			api.GET(domain.SessionCountsEndpoint, sessionHandler.HandleCountsRequest)
			api.GET(domain.SessionEndpoint, sessionHandler.HandleGetSessionRequest)
			api.DELETE(domain.SessionEndpoint, sessionHandler.HandleDeleteRequest)
			api.POST(domain.StopSessionEndpoint, sessionHandler.HandleStopRequest)
			api.POST(domain.RestartSessionEndpoint, sessionHandler.HandleRestartRequest)
			api.PATCH(domain.SessionConfigEndpoint, sessionHandler.HandleConfigRequest)
			api.POST(domain.StopAllSessionsEndpoint, sessionHandler.HandleStopAllRequest)
			api.GET(domain.AutoRefreshEndpoint, sessionHandler.HandleGetAutoRefreshRequest)
			api.PUT(domain.AutoRefreshEndpoint, sessionHandler.HandleSetAutoRefreshRequest)
			api.GET(domain.EmployeesEndpoint, employeeHandler.HandleRequest)
			api.GET(domain.EmployeeDeviceEndpoint, employeeHandler.HandleResolveDeviceRequest)
			api.POST(domain.EmployeeDeviceEndpoint, employeeHandler.HandleProvisionDeviceRequest)
		}
	})

	AfterEach(func() {
		scheduler.Stop()
		mockCtrl.Finish()
	})

	Context("Sessions", func() {
		It("will list the sessions with their counts", func() {
			rec := perform(engine, http.MethodGet, "/api/sessions", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			resp := decode[handlers.SessionsResponse](rec)
			Expect(resp.Sessions).To(HaveLen(2))
			Expect(resp.Counts.Running).To(Equal(1))
			Expect(resp.Counts.Stopped).To(Equal(1))
			Expect(resp.Counts.MessagesSent).To(Equal(50))
			Expect(resp.EmployeesAvailable).To(Equal(2))
			Expect(resp.AutoRefresh).To(BeFalse())
		})

		It("will return a single session", func() {
			rec := perform(engine, http.MethodGet, "/api/sessions/12", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decode[domain.SimulatorSession](rec).DeviceId).To(Equal("ESP32-007"))

			rec = perform(engine, http.MethodGet, "/api/sessions/99", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("will return the summary counters", func() {
			rec := perform(engine, http.MethodGet, "/api/sessions/counts", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"employees_available":2`))
		})

		It("will reject a malformed session ID", func() {
			rec := perform(engine, http.MethodPost, "/api/sessions/abc/stop", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			msg := decode[domain.ErrorMessage](rec)
			Expect(msg.Status).To(Equal(domain.ResponseStatusError))
		})

		It("will stop a running session", func() {
			mockBackend.EXPECT().StopSession(gomock.Any(), 12).DoAndReturn(func(ctx context.Context, id int) error {
				remoteSessions[0].Status = domain.SessionStopped
				return nil
			}).Times(1)

			rec := perform(engine, http.MethodPost, "/api/sessions/12/stop", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			resp := decode[handlers.CommandResponse](rec)
			Expect(resp.Status).To(Equal(domain.ResponseStatusOK))
			Expect(resp.Session.Status).To(Equal(domain.SessionStopped))
			Expect(resp.Settled).To(BeNil())
		})

		It("will respond with HTTP 409 when stopping a stopped session", func() {
			mockBackend.EXPECT().StopSession(gomock.Any(), gomock.Any()).Times(0)

			rec := perform(engine, http.MethodPost, "/api/sessions/13/stop", nil)
			Expect(rec.Code).To(Equal(http.StatusConflict))

			msg := decode[domain.ErrorMessage](rec)
			Expect(msg.ErrorMessage).To(ContainSubstring(domain.ErrIllegalSessionState.Error()))
		})

		It("will respond with HTTP 502 when the backend rejects a command", func() {
			mockBackend.EXPECT().RestartSession(gomock.Any(), 13).Return(&domain.BackendError{Operation: "restart-session", StatusCode: 500, Message: "simulator crashed"}).Times(1)

			rec := perform(engine, http.MethodPost, "/api/sessions/13/restart", nil)
			Expect(rec.Code).To(Equal(http.StatusBadGateway))
			Expect(decode[domain.ErrorMessage](rec).ErrorMessage).To(ContainSubstring("simulator crashed"))
		})

		It("will create a session", func() {
			mockBackend.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req *domain.CreateSessionRequest) (*domain.SimulatorSession, error) {
				Expect(req.EmployeeId).To(Equal(8))
				Expect(req.DeviceId).To(Equal("ESP32-008"))

				session := &domain.SimulatorSession{Id: 21, EmployeeId: 8, DeviceId: req.DeviceId, Status: domain.SessionRunning}
				remoteSessions = append(remoteSessions, session)
				return session, nil
			}).Times(1)

			rec := perform(engine, http.MethodPost, "/api/sessions", &domain.CreateSessionCommand{
				EmployeeId:     8,
				DeviceId:       "ESP32-008",
				FatigueProfile: domain.ProfileTired,
				ActivityMode:   domain.ActivityModerate,
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(decode[handlers.CommandResponse](rec).Session.Id).To(Equal(21))

			_, loaded := controller.Session(21)
			Expect(loaded).To(BeTrue())
		})

		It("will reject creating a session for an employee with an active simulator", func() {
			mockBackend.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Times(0)

			rec := perform(engine, http.MethodPost, "/api/sessions", &domain.CreateSessionCommand{
				EmployeeId:     7,
				DeviceId:       "ESP32-007",
				FatigueProfile: domain.ProfileNormal,
				ActivityMode:   domain.ActivityLight,
			})
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("will reject a malformed request body", func() {
			rec := perform(engine, http.MethodPost, "/api/sessions", "{not json")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("will reject an out-of-range configuration without contacting the backend", func() {
			mockBackend.EXPECT().UpdateSessionConfig(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			rec := perform(engine, http.MethodPatch, "/api/sessions/12/config", map[string]interface{}{"fatigue_level": 150})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("will reconfigure a running session", func() {
			mockBackend.EXPECT().UpdateSessionConfig(gomock.Any(), 12, gomock.Any()).DoAndReturn(func(ctx context.Context, id int, cfg *domain.SessionConfig) error {
				Expect(cfg.ActivityMode).To(Equal(domain.ConfigActivityIntense))
				return nil
			}).Times(1)

			rec := perform(engine, http.MethodPatch, "/api/sessions/12/config", map[string]interface{}{"activity_mode": "intense"})
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("will only delete a session once confirmed", func() {
			mockBackend.EXPECT().DeleteSession(gomock.Any(), 13).DoAndReturn(func(ctx context.Context, id int) error {
				remoteSessions = remoteSessions[:1]
				return nil
			}).Times(1)

			rec := perform(engine, http.MethodDelete, "/api/sessions/13", nil)
			Expect(rec.Code).To(Equal(http.StatusPreconditionFailed))

			rec = perform(engine, http.MethodDelete, "/api/sessions/13?confirm=true", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			_, loaded := controller.Session(13)
			Expect(loaded).To(BeFalse())
		})

		It("will only stop all sessions once confirmed", func() {
			mockBackend.EXPECT().StopAllSessions(gomock.Any()).DoAndReturn(func(ctx context.Context) (*domain.StopAllResult, error) {
				remoteSessions[0].Status = domain.SessionStopped
				return &domain.StopAllResult{Message: "Stopped 1 simulators", Count: 1}, nil
			}).Times(1)

			rec := perform(engine, http.MethodPost, "/api/sessions/stop-all", nil)
			Expect(rec.Code).To(Equal(http.StatusPreconditionFailed))

			rec = perform(engine, http.MethodPost, "/api/sessions/stop-all?confirm=true", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decode[domain.StopAllResult](rec).Count).To(Equal(1))
			Expect(controller.Counts().Running).To(Equal(0))
		})

		It("will toggle auto-refresh", func() {
			rec := perform(engine, http.MethodPut, "/api/sessions/auto-refresh", &domain.AutoRefreshRequest{Enabled: true})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decode[domain.AutoRefreshRequest](rec).Enabled).To(BeTrue())
			Expect(controller.AutoRefreshEnabled()).To(BeTrue())

			rec = perform(engine, http.MethodGet, "/api/sessions/auto-refresh", nil)
			Expect(decode[domain.AutoRefreshRequest](rec).Enabled).To(BeTrue())
		})
	})

	Context("Employees", func() {
		It("will only list employees without an active simulator", func() {
			rec := perform(engine, http.MethodGet, "/api/employees", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			employees := *decode[[]*domain.Employee](rec)
			Expect(employees).To(HaveLen(2))
			Expect(employees[0].Id).To(Equal(8))
			Expect(employees[1].Id).To(Equal(10))
		})

		It("will suggest a device identifier for an employee without a device", func() {
			mockBackend.EXPECT().ListDevicesByEmployee(gomock.Any(), 8).Return([]*domain.Device{}, nil).Times(1)

			rec := perform(engine, http.MethodGet, "/api/employees/8/device", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			resp := decode[handlers.ResolutionResponse](rec)
			Expect(resp.NeedsProvisioning).To(BeTrue())
			Expect(resp.SuggestedIdentifier).To(Equal("ESP32-008"))
			Expect(resp.LookupError).To(BeEmpty())
		})

		It("will offer device creation when the lookup fails", func() {
			mockBackend.EXPECT().ListDevicesByEmployee(gomock.Any(), 8).Return(nil, &domain.NetworkError{Operation: "list-devices", Err: context.DeadlineExceeded}).Times(1)

			rec := perform(engine, http.MethodGet, "/api/employees/8/device", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			resp := decode[handlers.ResolutionResponse](rec)
			Expect(resp.NeedsProvisioning).To(BeTrue())
			Expect(resp.LookupError).To(ContainSubstring("list-devices"))
		})

		It("will provision a device once confirmed", func() {
			mockBackend.EXPECT().CreateDevice(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, req *domain.CreateDeviceRequest) (*domain.Device, error) {
				Expect(req.EmployeeId).To(Equal(8))
				Expect(req.SupervisorId).To(Equal(3))
				Expect(req.DeviceIdentifier).To(Equal("ESP32-008"))

				return &domain.Device{Id: 5, DeviceIdentifier: req.DeviceIdentifier, EmployeeId: 8, IsActive: true}, nil
			}).Times(1)

			rec := perform(engine, http.MethodPost, "/api/employees/8/device", &domain.ProvisionDeviceRequest{DeviceIdentifier: "  ESP32-008 ", Confirmed: false})
			Expect(rec.Code).To(Equal(http.StatusPreconditionFailed))

			rec = perform(engine, http.MethodPost, "/api/employees/8/device", &domain.ProvisionDeviceRequest{DeviceIdentifier: "  ESP32-008 ", Confirmed: true})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(decode[domain.Device](rec).Id).To(Equal(5))
		})

		It("will reject provisioning a device for an employee without a supervisor", func() {
			mockBackend.EXPECT().CreateDevice(gomock.Any(), gomock.Any()).Times(0)

			rec := perform(engine, http.MethodPost, "/api/employees/10/device", &domain.ProvisionDeviceRequest{DeviceIdentifier: "ESP32-010", Confirmed: true})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decode[domain.ErrorMessage](rec).ErrorMessage).To(ContainSubstring(domain.ErrMissingSupervisor.Error()))
		})

		It("will respond with HTTP 404 for an unknown employee", func() {
			rec := perform(engine, http.MethodPost, "/api/employees/99/device", &domain.ProvisionDeviceRequest{DeviceIdentifier: "ESP32-099", Confirmed: true})
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	It("will serve the configuration without secrets", func() {
		rec := perform(engine, http.MethodGet, "/api/config", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"server-port":8080`))
		Expect(rec.Body.String()).ToNot(ContainSubstring("admin_password"))
		Expect(rec.Body.String()).ToNot(ContainSubstring("backend-token"))
	})
})
