package httpchannel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"candybowl/internal/apperr"
	"candybowl/internal/session"
)

const defaultClientTimeout = 3 * time.Minute

// Client talks to a remote Server and implements session.Chats, so the
// Discord bot can run apart from the model process.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), httpClient: httpClient}
}

var _ session.Chats = (*Client)(nil)

func (c *Client) Start(ctx context.Context, mode session.Mode) (session.Started, error) {
	const op = "httpchannel.start"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat/"+string(mode), nil)
	if err != nil {
		return session.Started{}, apperr.Wrap(apperr.KindTransport, op, err)
	}
	var out startResponse
	if err := c.do(op, req, &out); err != nil {
		return session.Started{}, err
	}
	return session.Started{ChatID: out.ChatID, Response: out.Response}, nil
}

func (c *Client) Send(ctx context.Context, chatID, text string) (string, error) {
	const op = "httpchannel.send"
	raw, err := json.Marshal(messageRequest{ChatID: chatID, Message: text})
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransport, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/message", bytes.NewReader(raw))
	if err != nil {
		return "", apperr.Wrap(apperr.KindTransport, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	var out messageResponse
	if err := c.do(op, req, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// do maps the server's status codes back onto error kinds so callers see
// the same taxonomy as the in-process manager.
func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := strings.TrimSpace(e.Error)
		if msg == "" {
			msg = fmt.Sprintf("server returned status %d", resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return apperr.New(apperr.KindNotFound, op, msg)
		case http.StatusBadRequest:
			return apperr.New(apperr.KindValidation, op, msg)
		case http.StatusInternalServerError:
			return apperr.New(apperr.KindModel, op, msg)
		default:
			return apperr.New(apperr.KindTransport, op, msg)
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Newf(apperr.KindTransport, op, "decode response: %v", err)
	}
	return nil
}
