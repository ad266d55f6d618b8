package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/wfmtrader/pkg/ratelimit"
)

// Options 客户端参数
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	UserAgent  string
	Headers    map[string]string // 每个请求都会带上（language / platform 等）
	Limiter    ratelimit.RateLimiter
}

type Client struct {
	client  *resty.Client
	limiter ratelimit.RateLimiter
	ua      string
	headers map[string]string
}

func NewClient(opts Options) *Client {
	host := strings.TrimSuffix(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "wfmtrader"
	}

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// 只重试限流与网关错误；401/403 交给调用方判定致命
			if err != nil || resp == nil {
				return false
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code == http.StatusBadGateway ||
				code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
		}).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				if ra := resp.Header().Get("Retry-After"); ra != "" {
					if d, err := time.ParseDuration(ra + "s"); err == nil {
						return d, nil
					}
				}
				return 2 * time.Second, nil
			}
			return 0, nil
		})

	return &Client{client: client, limiter: opts.Limiter, ua: opts.UserAgent, headers: opts.Headers}
}

// SetHeader 设置客户端级 Header（例如登录后的 Authorization）
func (c *Client) SetHeader(key, value string) {
	c.client.SetHeader(key, value)
}

type RequestOptions struct {
	Headers map[string]string
	Data    any
	Params  map[string]any
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", c.ua)
	for k, v := range c.headers {
		r.SetHeader(k, v)
	}
	return r
}

// DoRequest 发起请求；非 2xx 响应返回 *HTTPError，out 只在成功时解码
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) (*resty.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}
	}

	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Params != nil {
			rc.SetQueryParamsFromValues(toValues(opt.Params))
		}
		if opt.Data != nil {
			rc.SetHeader("Content-Type", "application/json")
			rc.SetBody(opt.Data)
		}
	}
	if out != nil {
		rc.SetResult(out)
	}

	var (
		resp *resty.Response
		err  error
	)
	switch strings.ToUpper(method) {
	case http.MethodGet:
		resp, err = rc.Get(endpoint)
	case http.MethodPost:
		resp, err = rc.Post(endpoint)
	case http.MethodDelete:
		resp, err = rc.Delete(endpoint)
	case http.MethodPut:
		resp, err = rc.Put(endpoint)
	case http.MethodPatch:
		resp, err = rc.Patch(endpoint)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
	return resp, ParseHTTPError(method, endpoint, resp, err)
}

func toValues(m map[string]any) map[string][]string {
	v := make(map[string][]string, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case []string:
			v[k] = t
		default:
			v[k] = []string{fmt.Sprint(val)}
		}
	}
	return v
}

// HTTPError 非 2xx 响应
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %v", e.Method, e.Path, e.Status, e.Body)
}

// StatusOf 取出错误中的 HTTP 状态码，传输层错误返回 0
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// ParseHTTPError 把传输错误与非 2xx 响应统一成带堆栈的 error
func ParseHTTPError(method, endpoint string, resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, endpoint)
	}
	if resp == nil || resp.IsSuccess() {
		return nil
	}
	var body any
	b := resp.Body()
	_ = json.Unmarshal(b, &body)
	if body == nil {
		body = string(b)
	}
	return errors.WithStack(&HTTPError{Method: method, Path: endpoint, Status: resp.StatusCode(), Body: body})
}
