package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

// ListDevicesByEmployee returns the devices bound to the given employee.
// Only the first page of results is returned.
func (c *Client) ListDevicesByEmployee(ctx context.Context, employeeId int) ([]*domain.Device, error) {
	query := url.Values{}
	query.Set("employee", strconv.Itoa(employeeId))
	query.Set("page_size", strconv.Itoa(DevicePageSize))

	body, err := c.do(ctx, &request{operation: "list-devices", method: http.MethodGet, path: "/devices/", query: query})
	if err != nil {
		return nil, err
	}

	devices, err := decodeList[*domain.Device](body)
	if err != nil {
		c.logger.Error("Failed to decode list of devices.", zap.Int("employee_id", employeeId), zap.Error(err))
		return nil, err
	}

	return devices, nil
}

func (c *Client) CreateDevice(ctx context.Context, req *domain.CreateDeviceRequest) (*domain.Device, error) {
	var device domain.Device
	if err := c.doJSON(ctx, &request{operation: "create-device", method: http.MethodPost, path: "/devices/", body: req}, &device); err != nil {
		return nil, err
	}

	return &device, nil
}
