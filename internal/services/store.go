package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zienararya/e-fridge/internal/config"
	"github.com/Zienararya/e-fridge/internal/models"
	"github.com/Zienararya/e-fridge/pkg/circuitbreaker"
	"github.com/sony/gobreaker"
)

// StoreClient reads the notifikasi and device_tokens tables through the
// Supabase PostgREST API. This service never writes to the store.
type StoreClient struct {
	baseURL    string
	serviceKey string
	profile    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewStoreClient(cfg config.SupabaseConfig) *StoreClient {
	return &StoreClient{
		baseURL:    cfg.URL,
		serviceKey: cfg.ServiceRoleKey,
		profile:    cfg.Profile,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cb: circuitbreaker.NewCircuitBreaker("supabase"),
	}
}

// FetchNotifikasi returns the notifikasi row with the given id, or nil when no
// such row exists. Transport and non-2xx failures come back as errors carrying
// the upstream response text.
func (s *StoreClient) FetchNotifikasi(ctx context.Context, id int64) (*models.NotifikasiRow, error) {
	url := fmt.Sprintf("%s/rest/v1/notifikasi?id=eq.%d&select=id,user_id,log,iswarning,timestamp&limit=1", s.baseURL, id)

	body, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch notifikasi failed: %w", err)
	}

	var rows []models.NotifikasiRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("fetch notifikasi failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FetchDeviceTokens returns every registered device token row for the user,
// in store order.
func (s *StoreClient) FetchDeviceTokens(ctx context.Context, userID int64) ([]models.DeviceToken, error) {
	url := fmt.Sprintf("%s/rest/v1/device_tokens?user_id=eq.%d&select=token", s.baseURL, userID)

	body, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch tokens failed: %w", err)
	}

	var tokens []models.DeviceToken
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("fetch tokens failed: %w", err)
	}
	return tokens, nil
}

func (s *StoreClient) get(ctx context.Context, url string) ([]byte, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", s.serviceKey)
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)
		req.Header.Set("Accept-Profile", s.profile)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("%s", body)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
