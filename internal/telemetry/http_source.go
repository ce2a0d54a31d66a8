package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fleetscale/fleetd/internal/logger"
	"github.com/fleetscale/fleetd/pkg/models"
)

// HTTPSource pulls fleet snapshots from the monitoring collaborator's REST
// endpoint.
type HTTPSource struct {
	client   *http.Client
	endpoint string
}

type HTTPSourceConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSource{
		client:   &http.Client{Timeout: timeout},
		endpoint: cfg.Endpoint,
	}
}

type snapshotResponse struct {
	FleetID   string             `json:"fleet_id"`
	Timestamp string             `json:"timestamp"`
	Instances []instanceResponse `json:"instances"`
	Samples   []models.RawSample `json:"samples"`
}

type instanceResponse struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Load         float64 `json:"load"`
	LastSampleAt string  `json:"last_sample_at"`
}

func (s *HTTPSource) Fetch(ctx context.Context, fleetID string) (*models.FleetSnapshot, error) {
	url := fmt.Sprintf("%s/fleets/%s/telemetry", s.endpoint, fleetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.WithFleet(fleetID).Debugf("Fetching telemetry from %s", url)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrFleetNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrFetchFailed, err)
	}

	var snapResp snapshotResponse
	if err := json.Unmarshal(body, &snapResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	snapshot := s.convertResponse(fleetID, &snapResp)
	logger.WithFleet(fleetID).Debugf(
		"Fetched %d samples across %d instances", len(snapshot.Samples), len(snapshot.Instances),
	)

	return snapshot, nil
}

func (s *HTTPSource) convertResponse(fleetID string, resp *snapshotResponse) *models.FleetSnapshot {
	instances := make([]models.Instance, len(resp.Instances))
	for i, inst := range resp.Instances {
		instances[i] = models.Instance{
			ID:     inst.ID,
			Status: models.InstanceStatus(inst.Status),
			Load:   inst.Load,
		}
		if inst.LastSampleAt != "" {
			if parsed, err := time.Parse(time.RFC3339, inst.LastSampleAt); err == nil {
				instances[i].LastSampleAt = parsed
			}
		}
	}

	timestamp := time.Now()
	if resp.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, resp.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	return &models.FleetSnapshot{
		FleetID:   fleetID,
		Timestamp: timestamp,
		Instances: instances,
		Samples:   resp.Samples,
	}
}

func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", s.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
