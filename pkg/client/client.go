package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var ErrNotFound = errors.New("not found")
var ErrUnauthorized = errors.New("unauthorized")

type InventoryClient interface {
	ListDevices(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) ([]types.Device, error)
	GetDevice(ctx context.Context, deviceID string) (types.Device, error)
	Summary(ctx context.Context) (types.Summary, error)
}

type inventoryClient struct {
	url        string
	username   string
	password   string
	httpClient http.Client
}

var tracer = otel.Tracer("inventory-admin-client")

// New returns a client for the inventory api at inventoryURL, authenticating
// each request with the given credentials.
func New(inventoryURL, username, password string) InventoryClient {
	return &inventoryClient{
		url:      strings.TrimSuffix(inventoryURL, "/"),
		username: username,
		password: password,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *inventoryClient) ListDevices(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) ([]types.Device, error) {
	var err error
	ctx, span := tracer.Start(ctx, "list-devices")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	params := url.Values{}
	if filter != nil {
		for k, v := range map[string]string{
			"search":  filter.Search,
			"status":  filter.Status,
			"role":    filter.Role,
			"groupId": filter.GroupID,
			"userId":  filter.UserID,
		} {
			if v != "" {
				params.Set(k, v)
			}
		}
	}
	if sort != nil && sort.Field != "" {
		params.Set("sortBy", sort.Field)
		params.Set("sortDirection", string(sort.Direction))
	}

	path := "/api/v0/devices"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	devices := []types.Device{}
	err = c.get(ctx, path, &devices)
	if err != nil {
		return nil, err
	}

	return devices, nil
}

func (c *inventoryClient) GetDevice(ctx context.Context, deviceID string) (types.Device, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-device")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	device := types.Device{}
	err = c.get(ctx, "/api/v0/devices/"+url.PathEscape(deviceID), &device)

	return device, err
}

func (c *inventoryClient) Summary(ctx context.Context) (types.Summary, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-summary")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	summary := types.Summary{}
	err = c.get(ctx, "/api/v0/summary", &summary)

	return summary, err
}

func (c *inventoryClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, path)
	default:
		return fmt.Errorf("request to %s failed with status code %d", path, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	err = json.Unmarshal(b, result)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return nil
}
