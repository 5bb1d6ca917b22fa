package devices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

const (
	DefaultIdentifierPrefix = "ESP32-"
)

// Resolver determines the device that a new simulator session will impersonate, provisioning one when the
// employee has none.
type Resolver struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	backend          domain.DeviceBackend
	journal          domain.CommandJournal // May be nil.
	clock            domain.Clock
	identifierPrefix string
}

func NewResolver(backend domain.DeviceBackend, journal domain.CommandJournal, clock domain.Clock, identifierPrefix string, atom *zap.AtomicLevel) *Resolver {
	if identifierPrefix == "" {
		identifierPrefix = DefaultIdentifierPrefix
	}

	resolver := &Resolver{
		backend:          backend,
		journal:          journal,
		clock:            clock,
		identifierPrefix: identifierPrefix,
		atom:             atom,
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for device resolver")
	}

	resolver.logger = logger
	resolver.sugaredLogger = logger.Sugar()

	return resolver
}

// SuggestIdentifier returns the identifier proposed for a new device of the given employee: the configured
// prefix followed by the employee ID, zero-padded to three digits.
func (r *Resolver) SuggestIdentifier(employeeId int) string {
	return fmt.Sprintf("%s%03d", r.identifierPrefix, employeeId)
}

// Resolve looks up the device bound to the given employee.
//
// If the employee has no device, or if the lookup itself fails, the returned Resolution requires provisioning
// and carries a suggested identifier. A failed lookup is reported through Resolution.LookupErr rather than as an
// error, so that the operator is offered device creation instead of being blocked.
func (r *Resolver) Resolve(ctx context.Context, employeeId int) (*domain.Resolution, error) {
	if employeeId <= 0 {
		return nil, domain.NewValidationError(domain.ErrNoEmployeeSelected, "")
	}

	devices, err := r.backend.ListDevicesByEmployee(ctx, employeeId)
	if err != nil {
		r.logger.Warn("Device lookup failed. Offering device creation instead.",
			zap.Int("employee_id", employeeId),
			zap.Error(err))

		return &domain.Resolution{
			NeedsProvisioning:   true,
			SuggestedIdentifier: r.SuggestIdentifier(employeeId),
			LookupErr:           err,
		}, nil
	}

	if len(devices) == 0 {
		r.logger.Debug("Employee has no device.", zap.Int("employee_id", employeeId))

		return &domain.Resolution{
			NeedsProvisioning:   true,
			SuggestedIdentifier: r.SuggestIdentifier(employeeId),
		}, nil
	}

	if len(devices) > 1 {
		identifiers := make([]string, 0, len(devices))
		for _, device := range devices {
			identifiers = append(identifiers, device.DeviceIdentifier)
		}

		r.logger.Warn("Employee is bound to more than one device. Using the first one.",
			zap.Int("employee_id", employeeId),
			zap.Strings("devices", identifiers))
	}

	r.logger.Debug("Resolved device of employee.",
		zap.Int("employee_id", employeeId),
		zap.String("device_identifier", devices[0].DeviceIdentifier))

	return &domain.Resolution{Device: devices[0]}, nil
}

// Provision registers a new device for the given employee.
//
// Provision fails with a ValidationError, without contacting the backend, unless the operator confirmed the
// creation, the identifier is non-blank, and the employee has a supervisor.
func (r *Resolver) Provision(ctx context.Context, employee *domain.Employee, identifier string, confirmed bool) (*domain.Device, error) {
	if employee == nil || employee.Id <= 0 {
		return nil, domain.NewValidationError(domain.ErrNoEmployeeSelected, "")
	}

	if !confirmed {
		return nil, domain.NewValidationError(domain.ErrConfirmationRequired, "device creation must be confirmed")
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.NewValidationError(domain.ErrMissingDeviceIdentifier, "")
	}

	if employee.SupervisorId == nil {
		return nil, domain.NewValidationError(domain.ErrMissingSupervisor, fmt.Sprintf("employee %d (%s)", employee.Id, employee.DisplayName()))
	}

	req := &domain.CreateDeviceRequest{
		DeviceIdentifier: identifier,
		EmployeeId:       employee.Id,
		SupervisorId:     *employee.SupervisorId,
		IsActive:         true,
	}

	issuedAt := r.clock.Now()
	device, err := r.backend.CreateDevice(ctx, req)
	r.record(employee.Id, issuedAt, err)

	if err != nil {
		r.logger.Warn("Failed to provision device.",
			zap.Int("employee_id", employee.Id),
			zap.String("device_identifier", identifier),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Provisioned device.",
		zap.Int("employee_id", employee.Id),
		zap.String("device_identifier", device.DeviceIdentifier),
		zap.Int("device_id", device.Id))

	return device, nil
}

func (r *Resolver) record(employeeId int, issuedAt time.Time, err error) {
	if r.journal == nil {
		return
	}

	entry := &domain.JournalEntry{
		Command:    domain.CommandProvision,
		EmployeeId: employeeId,
		Succeeded:  err == nil,
		IssuedAt:   issuedAt,
		Latency:    r.clock.Now().Sub(issuedAt),
	}

	if err != nil {
		entry.Error = err.Error()
	}

	r.journal.Record(entry)
}
