package azdo

import (
	"azdoexport/internal/logging"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// apiVersion is the REST api-version sent on core and identity calls.
// Analytics calls carry their version in the OData path instead.
const apiVersion = "7.0"

// Endpoint selects one of the three API families an organization exposes.
type Endpoint int

const (
	// EndpointCore is dev.azure.com: projects, process configuration, teams.
	EndpointCore Endpoint = iota
	// EndpointAnalytics is analytics.dev.azure.com: OData aggregates.
	EndpointAnalytics
	// EndpointIdentity is vssps.dev.azure.com: the organization graph.
	EndpointIdentity
)

func (e Endpoint) String() string {
	switch e {
	case EndpointAnalytics:
		return "analytics"
	case EndpointIdentity:
		return "identity"
	default:
		return "core"
	}
}

// ListResponse is the envelope the service wraps around every collection.
type ListResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

// wireError is the JSON error body the service returns on failures.
type wireError struct {
	Message string `json:"message"`
	TypeKey string `json:"typeKey"`
}

type options struct {
	baseURL      string
	analyticsURL string
	identityURL  string
	userAgent    string
	log          *logging.Logger
}

type Option func(*options)

// WithBaseURL overrides the core endpoint, primarily for tests.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithAnalyticsURL overrides the analytics endpoint, primarily for tests.
func WithAnalyticsURL(u string) Option {
	return func(o *options) { o.analyticsURL = u }
}

// WithIdentityURL overrides the identity endpoint, primarily for tests.
func WithIdentityURL(u string) Option {
	return func(o *options) { o.identityURL = u }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

func WithLogger(log *logging.Logger) Option {
	return func(o *options) { o.log = log }
}

// Client talks to the three API families of one organization with one
// credential. All methods are safe for concurrent use.
type Client struct {
	HTTP *http.Client

	organization string
	bases        map[Endpoint]*url.URL
	userAgent    string
	log          *logging.Logger
}

// traceRoundTripper emits one trace record per request and response,
// including latency, when trace logging is enabled.
type traceRoundTripper struct {
	base http.RoundTripper
	log  *logging.Logger
}

func (t *traceRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.log.Enabled(logging.LevelTrace) {
		return t.base.RoundTrip(req)
	}
	t.log.Trace("http.request",
		logging.F("method", req.Method),
		logging.F("url", req.URL.String()))
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if err != nil {
		t.log.Trace("http.error",
			logging.F("method", req.Method),
			logging.F("url", req.URL.String()),
			logging.F("duration_ms", dur.Milliseconds()),
			logging.Err(err))
		return resp, err
	}
	t.log.Trace("http.response",
		logging.F("method", req.Method),
		logging.F("url", req.URL.String()),
		logging.F("status", resp.StatusCode),
		logging.F("duration_ms", dur.Milliseconds()))
	return resp, err
}

// basicAuthTransport sends a PAT as basic auth with an empty username.
type basicAuthTransport struct {
	base http.RoundTripper
	cred *Credential
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.cred.authorization())
	return t.base.RoundTrip(clone)
}

func NewClient(organization string, cred *Credential, opts ...Option) (*Client, error) {
	if strings.TrimSpace(organization) == "" {
		return nil, fmt.Errorf("azdo client: organization required")
	}
	if cred == nil {
		return nil, fmt.Errorf("azdo client: credential required")
	}

	o := &options{
		baseURL:      "https://dev.azure.com/" + organization,
		analyticsURL: "https://analytics.dev.azure.com/" + organization,
		identityURL:  "https://vssps.dev.azure.com/" + organization,
		userAgent:    "azdoexport",
	}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.log == nil {
		o.log = logging.New(logging.LevelError, io.Discard)
	}

	bases := make(map[Endpoint]*url.URL, 3)
	for ep, raw := range map[Endpoint]string{
		EndpointCore:      o.baseURL,
		EndpointAnalytics: o.analyticsURL,
		EndpointIdentity:  o.identityURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("azdo client: invalid %s url: %w", ep, err)
		}
		bases[ep] = u
	}

	transport := http.RoundTripper(http.DefaultTransport)
	transport = &traceRoundTripper{base: transport, log: o.log.Named("http")}
	switch cred.Scheme {
	case SchemeBearer:
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.secret, Expiry: cred.ExpiresOn})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	default:
		transport = &basicAuthTransport{base: transport, cred: cred}
	}

	return &Client{
		HTTP: &http.Client{
			Transport: transport,
			// The service answers bad credentials with a 302 to a sign-in
			// page; surface the 302 instead of following it.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		organization: organization,
		bases:        bases,
		userAgent:    o.userAgent,
		log:          o.log,
	}, nil
}

func (c *Client) Organization() string { return c.organization }

// GetJSON issues a GET against one endpoint and decodes the JSON response
// into out (out may be nil to discard the body). Path elements are joined
// and escaped; the api-version parameter is added for core and identity
// calls unless the query already carries one.
func (c *Client) GetJSON(ctx context.Context, ep Endpoint, query url.Values, out any, elem ...string) error {
	_, err := c.get(ctx, ep, query, out, elem...)
	return err
}

// GetPage is GetJSON plus the continuation token that paging list APIs
// return in the X-MS-ContinuationToken header. An empty token means the
// last page.
func (c *Client) GetPage(ctx context.Context, ep Endpoint, query url.Values, out any, elem ...string) (string, error) {
	header, err := c.get(ctx, ep, query, out, elem...)
	if err != nil {
		return "", err
	}
	return header.Get("X-MS-ContinuationToken"), nil
}

func (c *Client) get(ctx context.Context, ep Endpoint, query url.Values, out any, elem ...string) (http.Header, error) {
	u := c.bases[ep].JoinPath(elem...)

	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	if ep != EndpointAnalytics && q.Get("api-version") == "" {
		q.Set("api-version", apiVersion)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("azdo client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, requestErrorFromResponse(resp, body)
	}
	if !jsonContentType(resp.Header.Get("Content-Type")) {
		// A 2xx HTML body is the sign-in page: the credential was not
		// accepted for this endpoint.
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Message:    "non-JSON response, the credential was not accepted",
		}
	}
	if out == nil {
		return resp.Header, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("azdo client: decode response: %w", err)
	}
	return resp.Header, nil
}

// GetList issues a GET for a collection and unwraps the {count, value}
// envelope.
func GetList[T any](ctx context.Context, c *Client, ep Endpoint, query url.Values, elem ...string) ([]T, error) {
	var resp ListResponse[T]
	if err := c.GetJSON(ctx, ep, query, &resp, elem...); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// ValidateConnection probes the organization with the client's credential.
func (c *Client) ValidateConnection(ctx context.Context) error {
	return c.GetJSON(ctx, EndpointCore, nil, nil, "_apis", "connectionData")
}

func requestErrorFromResponse(resp *http.Response, body []byte) *RequestError {
	re := &RequestError{StatusCode: resp.StatusCode}
	var we wireError
	if jsonContentType(resp.Header.Get("Content-Type")) && json.Unmarshal(body, &we) == nil {
		re.Message = we.Message
		re.TypeKey = we.TypeKey
	}
	return re
}

func jsonContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
