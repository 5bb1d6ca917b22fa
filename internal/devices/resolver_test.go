package devices_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/clock"
	"github.com/fatigue-platform/operator-console/m/v2/internal/devices"
	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
	"github.com/fatigue-platform/operator-console/m/v2/internal/mock_domain"
)

var _ = Describe("Resolver", func() {
	var (
		mockCtrl    *gomock.Controller
		mockBackend *mock_domain.MockBackend
		mockJournal *mock_domain.MockCommandJournal
		resolver    *devices.Resolver
		ctx         context.Context
	)

	atom := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	supervisorId := 2

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockBackend = mock_domain.NewMockBackend(mockCtrl)
		mockJournal = mock_domain.NewMockCommandJournal(mockCtrl)
		resolver = devices.NewResolver(mockBackend, mockJournal, clock.NewSimulationClock(), "ESP32-", &atom)
		ctx = context.Background()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("Resolving the device of an employee", func() {
		It("will suggest a zero-padded identifier when the employee has no device", func() {
			mockBackend.EXPECT().ListDevicesByEmployee(gomock.Any(), 7).Return([]*domain.Device{}, nil).Times(1)

			resolution, err := resolver.Resolve(ctx, 7)
			Expect(err).To(BeNil())
			Expect(resolution.NeedsProvisioning).To(BeTrue())
			Expect(resolution.Device).To(BeNil())
			Expect(resolution.SuggestedIdentifier).To(Equal("ESP32-007"))
			Expect(resolution.LookupErr).To(BeNil())
		})

		It("will not pad identifiers of employees with three or more digits", func() {
			Expect(resolver.SuggestIdentifier(1234)).To(Equal("ESP32-1234"))
			Expect(resolver.SuggestIdentifier(42)).To(Equal("ESP32-042"))
		})

		It("will return the bound device when there is one", func() {
			device := &domain.Device{Id: 3, DeviceIdentifier: "ESP32-007", EmployeeId: 7, IsActive: true}
			mockBackend.EXPECT().ListDevicesByEmployee(gomock.Any(), 7).Return([]*domain.Device{device}, nil).Times(1)

			resolution, err := resolver.Resolve(ctx, 7)
			Expect(err).To(BeNil())
			Expect(resolution.NeedsProvisioning).To(BeFalse())
			Expect(resolution.Device).To(Equal(device))
		})

		It("will return the first device when the employee is bound to more than one", func() {
			first := &domain.Device{Id: 3, DeviceIdentifier: "ESP32-007", EmployeeId: 7}
			second := &domain.Device{Id: 4, DeviceIdentifier: "ESP32-107", EmployeeId: 7}
			mockBackend.EXPECT().ListDevicesByEmployee(gomock.Any(), 7).Return([]*domain.Device{first, second}, nil).Times(1)

			resolution, err := resolver.Resolve(ctx, 7)
			Expect(err).To(BeNil())
			Expect(resolution.Device).To(Equal(first))
		})

		It("will fall back to provisioning when the lookup fails", func() {
			lookupErr := &domain.NetworkError{Operation: "list-devices", Err: errors.New("connection refused")}
			mockBackend.EXPECT().ListDevicesByEmployee(gomock.Any(), 7).Return(nil, lookupErr).Times(1)

			resolution, err := resolver.Resolve(ctx, 7)
			Expect(err).To(BeNil())
			Expect(resolution.NeedsProvisioning).To(BeTrue())
			Expect(resolution.SuggestedIdentifier).To(Equal("ESP32-007"))
			Expect(resolution.LookupErr).To(Equal(lookupErr))
		})

		It("will reject an unselected employee without contacting the backend", func() {
			_, err := resolver.Resolve(ctx, 0)
			Expect(domain.IsValidation(err)).To(BeTrue())
			Expect(errors.Is(err, domain.ErrNoEmployeeSelected)).To(BeTrue())
		})
	})

	Context("Provisioning a device", func() {
		var employee *domain.Employee

		BeforeEach(func() {
			employee = &domain.Employee{Id: 7, FullName: "Zoe Ramos", SupervisorId: &supervisorId}
		})

		It("will reject an unconfirmed creation without contacting the backend", func() {
			device, err := resolver.Provision(ctx, employee, "ESP32-007", false)
			Expect(device).To(BeNil())
			Expect(domain.IsValidation(err)).To(BeTrue())
			Expect(errors.Is(err, domain.ErrConfirmationRequired)).To(BeTrue())
		})

		It("will reject a blank identifier without contacting the backend", func() {
			_, err := resolver.Provision(ctx, employee, "   ", true)
			Expect(domain.IsValidation(err)).To(BeTrue())
			Expect(errors.Is(err, domain.ErrMissingDeviceIdentifier)).To(BeTrue())
		})

		It("will reject an employee without a supervisor without contacting the backend", func() {
			employee.SupervisorId = nil

			_, err := resolver.Provision(ctx, employee, "ESP32-007", true)
			Expect(domain.IsValidation(err)).To(BeTrue())
			Expect(errors.Is(err, domain.ErrMissingSupervisor)).To(BeTrue())
			Expect(domain.ErrorToHTTPStatus(err)).To(Equal(http.StatusBadRequest))
		})

		It("will create an active device owned by the employee and supervised by their supervisor", func() {
			created := &domain.Device{Id: 11, DeviceIdentifier: "ESP32-007", EmployeeId: 7, SupervisorId: &supervisorId, IsActive: true}

			mockBackend.EXPECT().CreateDevice(gomock.Any(), &domain.CreateDeviceRequest{
				DeviceIdentifier: "ESP32-007",
				EmployeeId:       7,
				SupervisorId:     2,
				IsActive:         true,
			}).Return(created, nil).Times(1)

			mockJournal.EXPECT().Record(gomock.Any()).Do(func(entry *domain.JournalEntry) {
				Expect(entry.Command).To(Equal(domain.CommandProvision))
				Expect(entry.EmployeeId).To(Equal(7))
				Expect(entry.Succeeded).To(BeTrue())
			}).Times(1)

			device, err := resolver.Provision(ctx, employee, " ESP32-007 ", true)
			Expect(err).To(BeNil())
			Expect(device).To(Equal(created))
		})

		It("will return the backend error when creation fails", func() {
			backendErr := &domain.BackendError{Operation: "create-device", StatusCode: http.StatusBadRequest, Message: "device with this device identifier already exists."}
			mockBackend.EXPECT().CreateDevice(gomock.Any(), gomock.Any()).Return(nil, backendErr).Times(1)

			mockJournal.EXPECT().Record(gomock.Any()).Do(func(entry *domain.JournalEntry) {
				Expect(entry.Succeeded).To(BeFalse())
				Expect(entry.Error).To(ContainSubstring("already exists"))
			}).Times(1)

			device, err := resolver.Provision(ctx, employee, "ESP32-007", true)
			Expect(device).To(BeNil())
			Expect(domain.IsBackend(err)).To(BeTrue())
		})
	})
})
