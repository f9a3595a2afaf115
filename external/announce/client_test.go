package announce

import (
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/gameserver"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/resilience"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type webhookRecorder struct {
	mu       sync.Mutex
	status   int
	payloads []webhookPayload
}

func (r *webhookRecorder) handle(ctx *fasthttp.RequestCtx) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var payload webhookPayload
	if err := sonic.Unmarshal(ctx.PostBody(), &payload); err == nil {
		r.payloads = append(r.payloads, payload)
	}
	ctx.SetStatusCode(r.status)
}

func newTestClient(t *testing.T, recorder *webhookRecorder, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: recorder.handle}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client, err := NewClient(ClientConfig{
		WebhookURL: "http://hooks.local/api/webhooks/1/token",
		Timeout:    time.Second,
		HTTPClient: &fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return ln.Dial() },
		},
		CircuitBreaker: breaker,
		Logger:         logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClient_AnnounceChallenge(t *testing.T) {
	t.Parallel()

	recorder := &webhookRecorder{status: fasthttp.StatusNoContent}
	client := newTestClient(t, recorder, resilience.CircuitBreakerConfig{})

	item := challenge.Challenge{
		ID:                "challenge_blue-lock_1790208000_abcd",
		InitiatorTeamName: "Blue Lock",
		Format:            formation.FormatEights,
		TargetKind:        challenge.TargetBroadcast,
	}
	if err := client.AnnounceChallenge(t.Context(), item); err != nil {
		t.Fatalf("announce: %v", err)
	}

	if len(recorder.payloads) != 1 {
		t.Fatalf("expected one webhook call, got %d", len(recorder.payloads))
	}
	want := "**Blue Lock** has challenged **all teams** to a **8S** match. Challenge ID: `challenge_blue-lock_1790208000_abcd`"
	if recorder.payloads[0].Content != want {
		t.Fatalf("unexpected content:\n got %q\nwant %q", recorder.payloads[0].Content, want)
	}
	if recorder.payloads[0].Username != defaultUsername {
		t.Fatalf("unexpected username %q", recorder.payloads[0].Username)
	}
}

func TestClient_ServerErrorsOpenTheBreaker(t *testing.T) {
	t.Parallel()

	recorder := &webhookRecorder{status: fasthttp.StatusBadGateway}
	client := newTestClient(t, recorder, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})
	match := gameserver.Match{HomeName: "Team 1", AwayName: "Team 2"}

	for i := 0; i < 2; i++ {
		if err := client.AnnounceMatch(t.Context(), match); err == nil {
			t.Fatalf("attempt %d: expected a webhook error", i)
		}
	}
	if err := client.AnnounceMatch(t.Context(), match); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if len(recorder.payloads) != 2 {
		t.Fatalf("open circuit must not call the webhook, got %d calls", len(recorder.payloads))
	}
}

func TestClient_BadRequestDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	recorder := &webhookRecorder{status: fasthttp.StatusBadRequest}
	client := newTestClient(t, recorder, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := 0; i < 3; i++ {
		err := client.AnnounceMatch(t.Context(), gameserver.Match{HomeName: "Blue Lock"})
		if err == nil || errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected a plain rejection, got %v", i, err)
		}
	}
}

func TestClient_Disabled(t *testing.T) {
	t.Parallel()

	client, err := NewClient(ClientConfig{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client without a webhook must be disabled")
	}
	if err := client.AnnounceMatch(t.Context(), gameserver.Match{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{WebhookURL: "ftp://hooks.local/x"}); err == nil {
		t.Fatalf("expected an invalid url error")
	}
}

func TestMatchMessage(t *testing.T) {
	t.Parallel()

	match := gameserver.Match{
		HomeName: "Blue Lock",
		AwayName: "Red Wolves",
		Assignment: gameserver.Assignment{
			Server: gameserver.Server{Name: "NA East #1"},
			Map:    "8v8_london",
			Format: formation.FormatEights,
		},
	}
	got := MatchMessage(match)
	if got != "Match ready: **Blue Lock** vs **Red Wolves** on NA East #1 (8v8_london, 8v8)" {
		t.Fatalf("unexpected message %q", got)
	}
	match.AwayName = ""
	if strings.Contains(MatchMessage(match), " vs ") {
		t.Fatalf("solo matches must not name an opponent")
	}
}
