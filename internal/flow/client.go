// Package flow drives the end-user recovery wizard against the HTTP
// API: email first, then security questions, then the new password.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"recovery-service/internal/models"
)

// APIError reports a non-2xx API response; Message carries the server's
// user-facing text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client is a thin HTTP client for the recovery endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a recovery API client. An empty httpClient gets a
// 15 second timeout default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// FetchQuestions returns the security questions for an email. An empty
// slice means the account is unknown or has no questions configured.
func (c *Client) FetchQuestions(ctx context.Context, email string) ([]string, error) {
	endpoint := c.baseURL + "/api/v1/recovery/questions?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Questions []string `json:"questions"`
	}
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return data.Questions, nil
}

// VerifyAnswers submits answers and returns the verification token.
func (c *Client) VerifyAnswers(ctx context.Context, email string, answers []models.AnswerSubmission) (string, error) {
	body := map[string]interface{}{
		"email":   email,
		"answers": answers,
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/v1/recovery/verify", body)
	if err != nil {
		return "", err
	}

	var data struct {
		VerificationToken string `json:"verification_token"`
	}
	if err := c.do(req, &data); err != nil {
		return "", err
	}
	return data.VerificationToken, nil
}

// ResetPassword redeems the token for a new password.
func (c *Client) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	body := map[string]interface{}{
		"email":        email,
		"token":        token,
		"new_password": newPassword,
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/v1/recovery/reset", body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = envelope.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}
