package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	ResponseStatusError string = "ERROR"
	ResponseStatusOK    string = "OK"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrBackend    = errors.New("backend rejected the request")
	ErrNetwork    = errors.New("backend could not be reached")

	ErrNoEmployeeSelected         = errors.New("no employee selected")
	ErrUnknownEmployee            = errors.New("employee is not available for simulation")
	ErrNoDeviceResolved           = errors.New("no device resolved for employee")
	ErrEmployeeHasActiveSimulator = errors.New("employee already has an active simulator")
	ErrMissingSupervisor          = errors.New("employee has no supervisor assigned")
	ErrMissingDeviceIdentifier    = errors.New("device identifier is required")
	ErrSessionNotFound            = errors.New("session not found")
	ErrIllegalSessionState        = errors.New("command is not permitted in the current session state")
	ErrInvalidSessionConfig       = errors.New("invalid session configuration")
	ErrInvalidSessionProfile      = errors.New("invalid fatigue profile or activity mode")
	ErrConfirmationRequired       = errors.New("explicit confirmation is required")
	ErrCannotRetrain              = errors.New("not enough metrics have accumulated to retrain the model")
	ErrRetrainingInProgress       = errors.New("a retraining watch is already in progress")
)

// ValidationError is returned when a command's preconditions are not met.
// No network call is made when a ValidationError is returned, and the command is never retried.
type ValidationError struct {
	Reason error
	Detail string
}

func NewValidationError(reason error, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %v", ErrValidation, e.Reason)
	}

	return fmt.Sprintf("%v: %v: %s", ErrValidation, e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Reason}
}

// BackendError is returned when the backend responded with a non-success status.
type BackendError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%v: %s: HTTP %d - %s", ErrBackend, e.Operation, e.StatusCode, e.Message)
}

func (e *BackendError) Unwrap() error {
	return ErrBackend
}

// NetworkError is returned when the request never produced a response.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrNetwork, e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}

func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// ErrorToHTTPStatus converts an error returned by the console engine into the HTTP status code
// that the console API responds with.
func ErrorToHTTPStatus(err error) int {
	var backendErr *BackendError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrUnknownEmployee):
		return http.StatusNotFound
	case errors.Is(err, ErrIllegalSessionState), errors.Is(err, ErrEmployeeHasActiveSimulator),
		errors.Is(err, ErrRetrainingInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrConfirmationRequired), errors.Is(err, ErrCannotRetrain):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.As(err, &backendErr):
		if backendErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ErrorMessage struct {
	Description  string `json:"Description"`  // Provides additional context for what occurred; written by us.
	ErrorMessage string `json:"ErrorMessage"` // The value returned by err.Error() for whatever error occurred.
	Valid        bool   `json:"Valid"`        // Used to determine if the struct was sent/received correctly over the network.
	Operation    string `json:"op"`           // The original operation of the request to which this error is being sent as a response.
	Status       string `json:"status"`       // ERROR.
	MessageId    string `json:"msg_id"`       // Corresponding MessageId, if applicable (such as when sending/receiving JSON WebSocket messages).
}

func (m *ErrorMessage) Encode() []byte {
	out, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}

	return out
}

func (m *ErrorMessage) String() string {
	return string(m.Encode())
}
