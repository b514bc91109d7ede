package twitch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	helixBaseURL = "https://api.twitch.tv/helix"
	helixTimeout = 10 * time.Second
)

// helixClient covers the two Helix endpoints the adapter needs. IRC can
// receive whispers but no longer send them.
type helixClient struct {
	http *resty.Client
}

type helixError struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type helixUsers struct {
	Data []struct {
		ID    string `json:"id"`
		Login string `json:"login"`
	} `json:"data"`
}

func newHelixClient(baseURL string, clientID string, token string) *helixClient {
	return &helixClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(helixTimeout).
			SetHeader("Client-Id", clientID).
			SetAuthToken(strings.TrimPrefix(strings.TrimSpace(token), "oauth:")),
	}
}

// userID resolves a login name to its Twitch user id.
func (h *helixClient) userID(ctx context.Context, login string) (string, error) {
	var users helixUsers
	resp, err := h.http.R().
		SetContext(ctx).
		SetQueryParam("login", login).
		SetResult(&users).
		SetError(&helixError{}).
		Get("/users")
	if err != nil {
		return "", fmt.Errorf("lookup user %s: %w", login, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("lookup user %s: %w", login, responseError(resp))
	}
	if len(users.Data) == 0 || users.Data[0].ID == "" {
		return "", fmt.Errorf("lookup user %s: not found", login)
	}

	return users.Data[0].ID, nil
}

// whisper sends text from one user id to another.
func (h *helixClient) whisper(ctx context.Context, fromID string, toID string, text string) error {
	resp, err := h.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from_user_id": fromID,
			"to_user_id":   toID,
		}).
		SetBody(map[string]string{"message": text}).
		SetError(&helixError{}).
		Post("/whispers")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return responseError(resp)
	}

	return nil
}

func responseError(resp *resty.Response) error {
	if body, ok := resp.Error().(*helixError); ok && body.Message != "" {
		return fmt.Errorf("helix %d: %s", resp.StatusCode(), body.Message)
	}

	return errors.New("helix " + resp.Status())
}
