package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"imbridge/internal/model"
)

// HTTPClient talks JSON to the backend's lookup API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout, // 避免单个查询拖住整批
		},
	}
}

type uinResponse struct {
	Uin string `json:"uin"`
}

type messagesBySeqRequest struct {
	Peer  model.Peer `json:"peer"`
	Seq   string     `json:"seq"`
	Count int        `json:"count"`
}

type messagesResponse struct {
	MsgList []model.RawMessage `json:"msgList"`
}

func (c *HTTPClient) GroupMemberUin(ctx context.Context, groupCode, uid string) (string, error) {
	var resp uinResponse
	path := fmt.Sprintf("/groups/%s/members/%s", url.PathEscape(groupCode), url.PathEscape(uid))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.Uin == "" {
		return "", ErrNotFound
	}
	return resp.Uin, nil
}

func (c *HTTPClient) UserUin(ctx context.Context, uid string) (string, error) {
	var resp uinResponse
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(uid)+"/uin", nil, &resp); err != nil {
		return "", err
	}
	if resp.Uin == "" {
		return "", ErrNotFound
	}
	return resp.Uin, nil
}

func (c *HTTPClient) MessagesBySeq(ctx context.Context, peer model.Peer, seq string, count int) ([]model.RawMessage, error) {
	var resp messagesResponse
	req := messagesBySeqRequest{Peer: peer, Seq: seq, Count: count}
	if err := c.do(ctx, http.MethodPost, "/messages/by-seq", req, &resp); err != nil {
		return nil, err
	}
	return resp.MsgList, nil
}

func (c *HTTPClient) CachedMember(ctx context.Context, groupCode, uid string) (model.GroupMember, error) {
	var member model.GroupMember
	path := fmt.Sprintf("/groups/%s/members/%s/cached", url.PathEscape(groupCode), url.PathEscape(uid))
	if err := c.do(ctx, http.MethodGet, path, nil, &member); err != nil {
		return model.GroupMember{}, err
	}
	return member, nil
}

func (c *HTTPClient) QuitGroup(ctx context.Context, groupCode string) error {
	return c.do(ctx, http.MethodPost, "/groups/"+url.PathEscape(groupCode)+"/quit", nil, nil)
}

func (c *HTTPClient) ClearBuddyRequestUnread(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/buddy-requests/clear-unread", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 500 {
		// 可重试错误
		return fmt.Errorf("backend lookup 5xx: %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend lookup error: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
