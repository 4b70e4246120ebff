// Package apiclient 是 LocalBrowser HTTP 接口的类型化客户端。
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/projectdiscovery/retryablehttp-go"

	"github.com/hitushen/localbrowser/internal/models"
)

const (
	requestTimeout = 30 * time.Second
	// 只对连接层错误重试，非 2xx 状态码直接返回给调用方。
	retryMax     = 2
	retryWaitMin = 200 * time.Millisecond
	retryWaitMax = time.Second
)

// StatusError 表示服务端返回了非 2xx 状态码。
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client 访问某个服务端的接口，例如 http://192.168.1.10:5000。
type Client struct {
	base string
	http *retryablehttp.Client
}

// New 创建客户端。httpClient 为 nil 时使用 retryablehttp 的连接池客户端。
func New(baseURL string, httpClient *http.Client) *Client {
	rc := retryablehttp.NewClient(retryablehttp.Options{
		HttpClient:      httpClient,
		Timeout:         requestTimeout,
		RetryMax:        retryMax,
		RetryWaitMin:    retryWaitMin,
		RetryWaitMax:    retryWaitMax,
		RespReadLimit:   4096,
		NoAdjustTimeout: true,
	})
	return &Client{base: strings.TrimRight(baseURL, "/"), http: rc}
}

// BaseURL 返回服务端基础地址。
func (c *Client) BaseURL() string {
	return c.base
}

// Ping 调用 /healthz 确认服务端在线。
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// List 列出 rel 目录的直接子项。
func (c *Client) List(ctx context.Context, rel string) ([]models.DirectoryEntry, error) {
	return c.entries(ctx, "/api/list", url.Values{"path": {rel}})
}

// Search 按名称搜索整个共享目录。
func (c *Client) Search(ctx context.Context, term string) ([]models.DirectoryEntry, error) {
	return c.entries(ctx, "/api/search", url.Values{"term": {term}})
}

// FileContent 读取文件内容；.txt/.csv 为 UTF-8 文本，其他类型为原始字节。
func (c *Client) FileContent(ctx context.Context, rel string) ([]byte, error) {
	resp, err := c.get(ctx, "/api/file-content", url.Values{"path": {rel}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

func (c *Client) entries(ctx context.Context, path string, query url.Values) ([]models.DirectoryEntry, error) {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []models.DirectoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req, err := retryablehttp.FromRequest(httpReq)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}
	return resp, nil
}

// readStatusError 兼容两种错误格式：JSON {"error": "..."} 与纯文本。
func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}
