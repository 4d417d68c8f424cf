package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"video_hearings/internal/config"
	"video_hearings/internal/domain"
	apperrors "video_hearings/pkg/errors"
	"video_hearings/pkg/jwt"
	"video_hearings/pkg/logger"
)

// VideoAPIClient is the backend video API: conference/roster lookups,
// persisted control statuses and client-wide settings.
type VideoAPIClient interface {
	GetConference(ctx context.Context, conferenceID string) (*domain.Conference, error)
	GetParticipantsForConference(ctx context.Context, conferenceID string) ([]domain.ParticipantDTO, error)
	GetEndpointsForConference(ctx context.Context, conferenceID string) ([]domain.EndpointDTO, error)
	GetVideoControlStatusesForConference(ctx context.Context, conferenceID string) (*domain.ConferenceVideoControlStatuses, error)
	SetVideoControlStatusesForConference(ctx context.Context, conferenceID string, req *domain.SetVideoControlStatusesRequest) error
	GetClientSettings(ctx context.Context) (*domain.ClientSettings, error)
}

type videoAPIClient struct {
	cfg        config.VideoAPIConfig
	httpClient *http.Client
	log        logger.Logger
}

func NewVideoAPIClient(cfg config.VideoAPIConfig, log logger.Logger) VideoAPIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &videoAPIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *videoAPIClient) GetConference(ctx context.Context, conferenceID string) (*domain.Conference, error) {
	var conference domain.Conference
	found, err := c.doJSON(ctx, http.MethodGet, "/conferences/"+conferenceID, nil, &conference)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("conference %s: %w", conferenceID, apperrors.ErrConferenceNotFound)
	}
	return &conference, nil
}

func (c *videoAPIClient) GetParticipantsForConference(ctx context.Context, conferenceID string) ([]domain.ParticipantDTO, error) {
	var participants []domain.ParticipantDTO
	if _, err := c.doJSON(ctx, http.MethodGet, "/conferences/"+conferenceID+"/participants", nil, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (c *videoAPIClient) GetEndpointsForConference(ctx context.Context, conferenceID string) ([]domain.EndpointDTO, error) {
	var endpoints []domain.EndpointDTO
	if _, err := c.doJSON(ctx, http.MethodGet, "/conferences/"+conferenceID+"/endpoints", nil, &endpoints); err != nil {
		return nil, err
	}
	return endpoints, nil
}

func (c *videoAPIClient) GetVideoControlStatusesForConference(ctx context.Context, conferenceID string) (*domain.ConferenceVideoControlStatuses, error) {
	var statuses domain.ConferenceVideoControlStatuses
	found, err := c.doJSON(ctx, http.MethodGet, "/conferences/"+conferenceID+"/video-control-statuses", nil, &statuses)
	if err != nil {
		return nil, err
	}
	if !found {
		// absent state is a valid steady-state condition
		return nil, nil
	}
	return &statuses, nil
}

func (c *videoAPIClient) SetVideoControlStatusesForConference(ctx context.Context, conferenceID string, req *domain.SetVideoControlStatusesRequest) error {
	_, err := c.doJSON(ctx, http.MethodPut, "/conferences/"+conferenceID+"/video-control-statuses", req, nil)
	return err
}

func (c *videoAPIClient) GetClientSettings(ctx context.Context) (*domain.ClientSettings, error) {
	var settings domain.ClientSettings
	found, err := c.doJSON(ctx, http.MethodGet, "/client-settings", nil, &settings)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("client settings: %w", apperrors.ErrNotFound)
	}
	return &settings, nil
}

// doJSON performs one authenticated request. It reports found=false on
// 404/204 so callers can map absence to a safe default instead of an error.
func (c *videoAPIClient) doJSON(ctx context.Context, method, path string, body, dest interface{}) (bool, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := jwt.GenerateServiceToken("video-hearings-coordination", c.cfg.Issuer, c.cfg.JWTSecret, c.cfg.TokenTTL)
	if err != nil {
		return false, fmt.Errorf("failed to mint api token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call video api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode >= 300:
		respBody, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("video api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return false, fmt.Errorf("failed to decode video api response: %w", err)
		}
	}
	return true, nil
}
