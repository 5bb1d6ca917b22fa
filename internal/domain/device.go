package domain

import "time"

// Device is a registered wearable bound to an employee.
type Device struct {
	Id               int        `json:"id"`
	DeviceIdentifier string     `json:"device_identifier"`
	EmployeeId       int        `json:"employee"`
	SupervisorId     *int       `json:"supervisor"`
	IsActive         bool       `json:"is_active"`
	LastConnection   *time.Time `json:"last_connection,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// CreateDeviceRequest is the payload of the create-device endpoint.
type CreateDeviceRequest struct {
	DeviceIdentifier string `json:"device_identifier"`
	EmployeeId       int    `json:"employee"`
	SupervisorId     int    `json:"supervisor"`
	IsActive         bool   `json:"is_active"`
}

// Employee is a monitored worker as reported by the available-employees endpoint.
type Employee struct {
	Id                 int    `json:"id"`
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	FullName           string `json:"full_name"`
	SupervisorId       *int   `json:"supervisor"`
	SupervisorName     string `json:"supervisor_name,omitempty"`
	HasActiveSimulator bool   `json:"has_active_simulator"`
	DeviceId           string `json:"device_id,omitempty"`
}

// DisplayName returns the full name of the employee, falling back to the first and last names.
func (e *Employee) DisplayName() string {
	if e.FullName != "" {
		return e.FullName
	}

	if e.FirstName == "" {
		return e.LastName
	}

	if e.LastName == "" {
		return e.FirstName
	}

	return e.FirstName + " " + e.LastName
}

// Resolution is the result of resolving the device binding of an employee before session creation.
type Resolution struct {
	// Device is the bound device. Nil when NeedsProvisioning is true.
	Device *Device `json:"device,omitempty"`

	// NeedsProvisioning is true when the employee has no device and one must be created first.
	NeedsProvisioning bool `json:"needs_provisioning"`

	// SuggestedIdentifier is the identifier proposed for a new device.
	SuggestedIdentifier string `json:"suggested_identifier,omitempty"`

	// LookupErr is set when the device lookup failed and the resolver fell back to provisioning.
	LookupErr error `json:"-"`
}
