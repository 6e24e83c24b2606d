package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// HTTPClient talks to the platform's REST API. Transient failures are retried
// by the underlying client; a client-side rate limiter keeps the daemon under
// the platform's global request quota.
type HTTPClient struct {
	Host  string
	Token string

	client  *retryablehttp.Client
	limiter *rate.Limiter
}

func NewHTTPClient(host, token string, requestsPerSecond int) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 15 * time.Second
	return &HTTPClient{
		Host:    host,
		Token:   token,
		client:  rc,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type apiMessage struct {
	Content string `json:"content,omitempty"`
	Embed   *Embed `json:"embed,omitempty"`
}

type apiModAction struct {
	UserID string `json:"user_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type apiOverwrite struct {
	Deny   []string `json:"deny"`
	Reason string   `json:"reason,omitempty"`
}

func (c *HTTPClient) Member(ctx context.Context, communityID, userID string) (*Member, error) {
	var out Member
	found, err := c.get(ctx, fmt.Sprintf("/communities/%s/members/%s", communityID, userID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) BotMember(ctx context.Context, communityID string) (*Member, error) {
	var out Member
	found, err := c.get(ctx, fmt.Sprintf("/communities/%s/members/@me", communityID), &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bot is not a member of community %s", communityID)
	}
	return &out, nil
}

func (c *HTTPClient) Role(ctx context.Context, communityID, roleID string) (*Role, error) {
	var out Role
	found, err := c.get(ctx, fmt.Sprintf("/communities/%s/roles/%s", communityID, roleID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Permissions(ctx context.Context, communityID, userID string) (Permissions, error) {
	var out Permissions
	_, err := c.get(ctx, fmt.Sprintf("/communities/%s/members/%s/permissions", communityID, userID), &out)
	return out, err
}

func (c *HTTPClient) ChannelPermissions(ctx context.Context, communityID, channelID, userID string) (Permissions, error) {
	var out Permissions
	_, err := c.get(ctx, fmt.Sprintf("/communities/%s/channels/%s/permissions/%s", communityID, channelID, userID), &out)
	return out, err
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/communities/%s/channels/%s/messages/%s", communityID, channelID, messageID), nil, nil)
}

func (c *HTTPClient) AddRole(ctx context.Context, communityID, userID, roleID, reason string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/communities/%s/members/%s/roles/%s", communityID, userID, roleID), apiModAction{Reason: reason}, nil)
}

func (c *HTTPClient) RemoveRole(ctx context.Context, communityID, userID, roleID, reason string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/communities/%s/members/%s/roles/%s", communityID, userID, roleID), apiModAction{Reason: reason}, nil)
}

func (c *HTTPClient) DenySendOverwrite(ctx context.Context, communityID, channelID, userID, reason string) error {
	body := apiOverwrite{Deny: []string{"send_messages"}, Reason: reason}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/communities/%s/channels/%s/permissions/%s", communityID, channelID, userID), body, nil)
}

func (c *HTTPClient) Kick(ctx context.Context, communityID, userID, reason string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/communities/%s/members/%s", communityID, userID), apiModAction{Reason: reason}, nil)
}

func (c *HTTPClient) Ban(ctx context.Context, communityID, userID, reason string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/communities/%s/bans", communityID), apiModAction{UserID: userID, Reason: reason}, nil)
}

func (c *HTTPClient) Unban(ctx context.Context, communityID, userID, reason string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/communities/%s/bans/%s", communityID, userID), apiModAction{Reason: reason}, nil)
}

func (c *HTTPClient) ResolveInvite(ctx context.Context, code string) (*Invite, error) {
	var out Invite
	found, err := c.get(ctx, fmt.Sprintf("/invites/%s", code), &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("invite not found: %s", code)
	}
	return &out, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, communityID, channelID, text string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/communities/%s/channels/%s/messages", communityID, channelID), apiMessage{Content: text}, nil)
}

func (c *HTTPClient) SendEmbed(ctx context.Context, communityID, channelID string, embed Embed) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/communities/%s/channels/%s/messages", communityID, channelID), apiMessage{Embed: &embed}, nil)
}

func (c *HTTPClient) SendDM(ctx context.Context, userID, text string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%s/messages", userID), apiMessage{Content: text}, nil)
}

// get unmarshals a JSON response into out; a 404 is reported as found=false,
// not as an error.
func (c *HTTPClient) get(ctx context.Context, path string, out any) (bool, error) {
	err := c.do(ctx, http.MethodGet, path, nil, out)
	if err == errNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

var errNotFound = fmt.Errorf("not found")

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.Host+"/api/v1"+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("platform API request failed: %s %s: status=%d body=%s", method, path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parsing platform API response: %w", err)
		}
	}
	return nil
}
