package announce

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultUsername = "Pickup Matchmaking"
	maxContentLen   = 2000
)

var (
	ErrDisabled           = crerr.New("announce webhook is not configured")
	errAnnounceTransient  = crerr.New("announce transient failure")
	errAnnounceBadRequest = crerr.New("announce rejected payload")
)

type ClientConfig struct {
	WebhookURL string
	Username   string
	Timeout    time.Duration
	// HTTPClient is optional; tests point it at an in-memory listener.
	HTTPClient     *fasthttp.Client
	CircuitBreaker resilience.CircuitBreakerConfig
	Logger         *logging.Logger
}

// Client posts community-wide announcements to a chat webhook.
type Client struct {
	http       *fasthttp.Client
	webhookURL string
	username   string
	timeout    time.Duration
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL != "" {
		if err := validateWebhookURL(webhookURL); err != nil {
			return nil, crerr.Wrap(err, "invalid ANNOUNCE_WEBHOOK_URL")
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "pickup-matchmaking",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		}
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = defaultUsername
	}

	return &Client{
		http:       httpClient,
		webhookURL: webhookURL,
		username:   username,
		timeout:    timeout,
		breaker:    resilience.NewCircuitBreaker("announce", cfg.CircuitBreaker),
		logger:     logger.Named("announce"),
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

func (c *Client) AnnounceChallenge(ctx context.Context, item challenge.Challenge) error {
	return c.post(ctx, ChallengeMessage(item))
}

func (c *Client) AnnounceMatch(ctx context.Context, match gameserver.Match) error {
	return c.post(ctx, MatchMessage(match))
}

// ChallengeMessage renders the announcement for a newly issued challenge.
func ChallengeMessage(item challenge.Challenge) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("**")
	_, _ = buf.WriteString(item.InitiatorTeamName)
	_, _ = buf.WriteString("** has challenged **")
	_, _ = buf.WriteString(targetDescription(item))
	_, _ = buf.WriteString("** to a **")
	_, _ = buf.WriteString(strings.ToUpper(string(item.Format)))
	_, _ = buf.WriteString("** match. Challenge ID: `")
	_, _ = buf.WriteString(item.ID)
	_, _ = buf.WriteString("`")
	return buf.String()
}

// MatchMessage renders the announcement for a completed handoff.
func MatchMessage(match gameserver.Match) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("Match ready: **")
	_, _ = buf.WriteString(match.HomeName)
	_, _ = buf.WriteString("**")
	if match.AwayName != "" {
		_, _ = buf.WriteString(" vs **")
		_, _ = buf.WriteString(match.AwayName)
		_, _ = buf.WriteString("**")
	}
	_, _ = fmt.Fprintf(buf, " on %s (%s, %s)", match.Assignment.Server.Name, match.Assignment.Map, match.Assignment.Format.Label())
	return buf.String()
}

func targetDescription(item challenge.Challenge) string {
	switch {
	case item.OpponentTeamName != "":
		return item.OpponentTeamName
	case item.TargetKind == challenge.TargetBroadcast:
		return "all teams"
	case item.TargetName != "":
		return item.TargetName
	default:
		return item.TargetID
	}
}

func (c *Client) post(ctx context.Context, content string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "announce circuit breaker rejected request", "state", c.breaker.State())
		return crerr.Wrap(err, "announce webhook is temporarily unavailable")
	}

	err := c.send(ctx, content)
	c.recordCircuitResult(err)
	if err != nil {
		c.logger.WarnContext(ctx, "announce webhook failed", "error", err)
	}
	return err
}

func (c *Client) send(ctx context.Context, content string) error {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	body, err := sonic.Marshal(webhookPayload{Content: content, Username: c.username})
	if err != nil {
		return crerr.Wrap(err, "marshal webhook payload")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.webhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyRaw(body)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return crerr.Mark(crerr.Wrap(err, "post webhook"), errAnnounceTransient)
	}

	status := resp.StatusCode()
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == fasthttp.StatusTooManyRequests || status >= 500:
		return crerr.Mark(crerr.Newf("webhook status=%d body=%s", status, abbreviate(resp.Body())), errAnnounceTransient)
	default:
		return crerr.Mark(crerr.Newf("webhook status=%d body=%s", status, abbreviate(resp.Body())), errAnnounceBadRequest)
	}
}

func (c *Client) recordCircuitResult(err error) {
	if err != nil && crerr.Is(err, errAnnounceTransient) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func validateWebhookURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return crerr.Wrapf(err, "parse %q", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return crerr.Newf("unsupported scheme %q; expected http or https", parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return crerr.New("empty host")
	}
	return nil
}

func abbreviate(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "...(truncated)"
}
