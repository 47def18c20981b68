package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/swiftdrop/courier-relay/internal/model"
)

// StatusInTransit is the delivery status that makes a package's
// merchant channel eligible for broadcasts. Compared by exact equality.
const StatusInTransit = "in transit"

// packageStatusWire tolerates both backend response shapes:
// {"status": s} and {"data": {"status": s}}. The flat shape wins when
// both are present.
type packageStatusWire struct {
	Status string `json:"status"`
	Data   struct {
		Status string `json:"status"`
	} `json:"data"`
}

// PackageStatus fetches the current delivery status of a package. The
// call is bounded by the configured status timeout regardless of the
// caller's context. An error means "status unknown"; the caller applies
// its own fallback policy.
func (c *Client) PackageStatus(ctx context.Context, packageID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, "/packages/"+strconv.FormatInt(packageID, 10), nil)
	if err != nil {
		return "", fmt.Errorf("get package %d: %w", packageID, err)
	}

	var wire packageStatusWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return "", fmt.Errorf("parse package %d status: %w", packageID, err)
	}

	status := wire.Status
	if status == "" {
		status = wire.Data.Status
	}
	if status == "" {
		return "", fmt.Errorf("package %d: response carries no status", packageID)
	}

	return status, nil
}

// StorePosition writes one position sample to the backend's durable
// store. Bounded by the configured store timeout; at-most-once, the
// caller never retries.
func (c *Client) StorePosition(ctx context.Context, pos model.Position) error {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	payload, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPost, "/location/store", payload); err != nil {
		return fmt.Errorf("store position for courier %d: %w", pos.CourierID, err)
	}

	return nil
}

// do performs a request against the backend.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}
