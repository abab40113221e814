package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type verifyErrResp struct {
	Error string `json:"error"`
}

// RemoteVerifier 调用认证服务的 /v1/auth/verify
type RemoteVerifier struct {
	client    *http.Client
	verifyURL string
}

// NewRemoteVerifier authBaseURL 不要带路径，例如 http://localhost:3001
func NewRemoteVerifier(authBaseURL string, client *http.Client) *RemoteVerifier {
	if client == nil {
		client = &http.Client{Timeout: 1200 * time.Millisecond}
	}
	return &RemoteVerifier{
		client:    client,
		verifyURL: strings.TrimRight(authBaseURL, "/") + "/v1/auth/verify",
	}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("%w: build verify request: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// 包含超时
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		var e verifyErrResp
		_ = json.NewDecoder(resp.Body).Decode(&e) // 尽力解析错误信息
		if e.Error == "" {
			e.Error = "invalid token"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, e.Error)
	default:
		return nil, fmt.Errorf("%w: verify returned %d", ErrUpstream, resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("%w: invalid verify response: %v", ErrUpstream, err)
	}
	if id.Type != "" && id.Type != "access" {
		return nil, fmt.Errorf("%w: access token required", ErrUnauthorized)
	}
	if id.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrUnauthorized)
	}
	return &id, nil
}
