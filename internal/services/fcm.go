package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Zienararya/e-fridge/internal/config"
	"github.com/Zienararya/e-fridge/internal/models"
	"github.com/Zienararya/e-fridge/pkg/circuitbreaker"
	"github.com/golang-jwt/jwt"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// Google-fixed lifetime of a service-account access token.
	tokenLifetime = 3600 * time.Second
)

// FCMClient authenticates against the Google OAuth endpoint with a signed
// service-account assertion and sends FCM HTTP v1 messages one token at a
// time. Nothing is cached: every request performs a fresh token exchange.
type FCMClient struct {
	projectID  string
	saJSON     string
	tokenURL   string
	sendBase   string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewFCMClient(cfg config.FirebaseConfig, logger *zap.Logger) *FCMClient {
	return &FCMClient{
		projectID: cfg.ProjectID,
		saJSON:    cfg.ServiceAccountJSON,
		tokenURL:  cfg.TokenURL,
		sendBase:  cfg.SendBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cb:     circuitbreaker.NewCircuitBreaker("google-oauth"),
		logger: logger,
	}
}

// AccessToken builds the RS256 JWT-bearer assertion from the service-account
// credential and exchanges it for a fresh bearer token.
func (f *FCMClient) AccessToken(ctx context.Context) (string, error) {
	var sa models.ServiceAccount
	if err := json.Unmarshal([]byte(f.saJSON), &sa); err != nil {
		return "", fmt.Errorf("parse service account: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse service account key: %w", err)
	}

	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"iss":   sa.ClientEmail,
		"sub":   sa.ClientEmail,
		"scope": messagingScope,
		"aud":   f.tokenURL,
		"iat":   now,
		"exp":   now + int64(tokenLifetime.Seconds()),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	result, err := f.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("oauth token error: %s", body)
		}
		var tr struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(body, &tr); err != nil {
			return nil, fmt.Errorf("oauth token error: %w", err)
		}
		return tr.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Send delivers one message and always returns a result; transport failures
// are recorded with status 0 so a bad token never aborts the batch.
func (f *FCMClient) Send(ctx context.Context, accessToken string, msg models.FCMMessage) models.DeliveryResult {
	result := models.DeliveryResult{Token: msg.Message.Token}

	payload, err := json.Marshal(msg)
	if err != nil {
		result.Body = err.Error()
		return result
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", f.sendBase, f.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		result.Body = err.Error()
		return result
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("fcm send transport failure",
			zap.String("token", msg.Message.Token),
			zap.Error(err),
		)
		result.Body = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	result.OK = resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Body = err.Error()
		return result
	}

	// Attempt structured parse; on failure, retain raw text.
	var parsed any
	if err := json.Unmarshal(text, &parsed); err == nil {
		result.Body = parsed
	} else {
		result.Body = string(text)
	}
	return result
}
