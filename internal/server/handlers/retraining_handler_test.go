package handlers_test

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/clock"
	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/mock_domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/retraining"
	"github.com/fatigue-platform/operator-console/m/v2/internal/server/handlers"
)

var _ = Describe("RetrainingHttpHandler", func() {
	var (
		mockCtrl    *gomock.Controller
		mockBackend *mock_domain.MockBackend
		monitor     *retraining.Monitor
		engine      *gin.Engine
		job         *domain.RetrainingStatus
	)

	atom := zap.NewAtomicLevelAt(zapcore.DebugLevel)

	// refresh loads the views of the monitor through the handler.
	refresh := func() {
		mockBackend.EXPECT().GetModelInfo(gomock.Any()).Return(&domain.ModelInfo{ModelExists: true, Training: domain.TrainingInfo{Samples: 1200, Date: "2024-05-01T10:00:00Z"}}, nil).Times(1)
		mockBackend.EXPECT().GetRetrainingStatus(gomock.Any()).Return(job, nil).Times(1)
		mockBackend.EXPECT().GetStatistics(gomock.Any()).Return(&domain.Statistics{}, nil).Times(1)
		mockBackend.EXPECT().GetPredictionHistory(gomock.Any(), 50).Return(&domain.PredictionHistory{}, nil).Times(1)

		rec := perform(engine, http.MethodGet, "/api/retraining?refresh=true", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockBackend = mock_domain.NewMockBackend(mockCtrl)

		job = &domain.RetrainingStatus{
			LastTraining:     "2024-05-01T10:00:00Z",
			AvailableMetrics: 150,
			MinRequired:      100,
			CanRetrainFlag:   true,
			Status:           domain.RetrainingReady,
		}

		configuration := domain.GetDefaultConfig()
		monitor = retraining.NewMonitor(mockBackend, clock.NewSimulationClock(), nil, nil, configuration, &atom)
		handler := handlers.NewRetrainingHttpHandler(configuration, monitor, &atom)

		engine = gin.New()
		engine.GET("/api/"+domain.RetrainingEndpoint, handler.HandleRequest)
		engine.POST("/api/"+domain.RetrainingEndpoint, handler.HandleStartRequest)
	})

	AfterEach(func() {
		monitor.Stop()
		mockCtrl.Finish()
	})

	It("will return the view without contacting the backend", func() {
		rec := perform(engine, http.MethodGet, "/api/retraining", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		view := decode[domain.RetrainingView](rec)
		Expect(view.InProgress).To(BeFalse())
		Expect(view.Job).To(BeNil())
	})

	It("will reject an unconfirmed retraining", func() {
		refresh()
		mockBackend.EXPECT().StartRetraining(gomock.Any(), gomock.Any()).Times(0)

		rec := perform(engine, http.MethodPost, "/api/retraining", &domain.StartRetrainingCommand{Force: true})
		Expect(rec.Code).To(Equal(http.StatusPreconditionFailed))
	})

	It("will reject a retraining when not enough metrics have accumulated", func() {
		job.AvailableMetrics = 80
		refresh()
		mockBackend.EXPECT().StartRetraining(gomock.Any(), gomock.Any()).Times(0)

		rec := perform(engine, http.MethodPost, "/api/retraining", &domain.StartRetrainingCommand{Confirmed: true})
		Expect(rec.Code).To(Equal(http.StatusPreconditionFailed))
		Expect(decode[domain.ErrorMessage](rec).ErrorMessage).To(ContainSubstring(domain.ErrCannotRetrain.Error()))
	})

	It("will start a confirmed retraining and report it in progress", func() {
		refresh()
		mockBackend.EXPECT().StartRetraining(gomock.Any(), &domain.StartRetrainingRequest{Force: true}).
			DoAndReturn(func(ctx context.Context, req *domain.StartRetrainingRequest) (*domain.StartRetrainingResponse, error) {
				return &domain.StartRetrainingResponse{Status: "started", EstimatedTime: "2-5 minutes"}, nil
			}).Times(1)

		rec := perform(engine, http.MethodPost, "/api/retraining", &domain.StartRetrainingCommand{Force: true, Confirmed: true})
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(decode[domain.RetrainingView](rec).InProgress).To(BeTrue())

		By("Rejecting a second retraining while the first is watched")

		rec = perform(engine, http.MethodPost, "/api/retraining", &domain.StartRetrainingCommand{Confirmed: true})
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})
})
