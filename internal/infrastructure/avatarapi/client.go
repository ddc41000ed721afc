package avatarapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"avatarbook/internal/config"
	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
)

const maxErrorBody = 4 << 10

// Client talks to the avatar content provider's REST API.
type Client struct {
	baseURL   string
	apiKey    string
	replicaID string
	personaID string
	client    *http.Client
}

type videoRequest struct {
	ReplicaID   string `json:"replica_id"`
	Script      string `json:"script"`
	VideoName   string `json:"video_name,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type videoResponse struct {
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

type conversationRequest struct {
	ReplicaID             string `json:"replica_id"`
	PersonaID             string `json:"persona_id,omitempty"`
	ConversationName      string `json:"conversation_name,omitempty"`
	ConversationalContext string `json:"conversational_context,omitempty"`
	CustomGreeting        string `json:"custom_greeting,omitempty"`
	CallbackURL           string `json:"callback_url,omitempty"`
}

type conversationResponse struct {
	ConversationID  string `json:"conversation_id"`
	ConversationURL string `json:"conversation_url"`
	Status          string `json:"status"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		replicaID: cfg.ReplicaID,
		personaID: cfg.PersonaID,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) CreateVideo(ctx context.Context, req domain.VideoRequest) (*domain.VideoSubmission, error) {
	var resp videoResponse
	err := c.post(ctx, "/v2/videos", videoRequest{
		ReplicaID:   c.replicaID,
		Script:      req.Script,
		VideoName:   req.Name,
		CallbackURL: req.CallbackURL,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.VideoID == "" {
		return nil, apperrors.NewUpstreamError(apperrors.CodeProviderRequestFailed, "video response carried no video_id", nil)
	}

	return &domain.VideoSubmission{ExternalID: resp.VideoID, Status: resp.Status}, nil
}

func (c *Client) CreateConversation(ctx context.Context, req domain.ConversationRequest) (*domain.ConversationBooking, error) {
	var resp conversationResponse
	err := c.post(ctx, "/v2/conversations", conversationRequest{
		ReplicaID:             c.replicaID,
		PersonaID:             c.personaID,
		ConversationName:      req.Name,
		ConversationalContext: req.Context,
		CustomGreeting:        req.Greeting,
		CallbackURL:           req.CallbackURL,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.ConversationID == "" || resp.ConversationURL == "" {
		return nil, apperrors.NewUpstreamError(apperrors.CodeProviderRequestFailed, "conversation response missing id or url", nil)
	}

	return &domain.ConversationBooking{ExternalID: resp.ConversationID, RoomURL: resp.ConversationURL}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c.apiKey == "" {
		return apperrors.NewUpstreamError(apperrors.CodeProviderRequestFailed, "provider api key not configured", nil)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return apperrors.NewUpstreamError(apperrors.CodeProviderRequestFailed, "provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewUpstreamError(
			apperrors.CodeProviderRequestFailed,
			fmt.Sprintf("provider returned status %d", resp.StatusCode),
			fmt.Errorf("%s", describeError(raw)),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewUpstreamError(apperrors.CodeProviderRequestFailed, "undecodable provider response", err)
	}

	return nil
}

func describeError(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
