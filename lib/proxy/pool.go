package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	random "github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/proxy")

// DefaultEchoUrl is the provider's IP echo endpoint, a 200 through the
// proxy means the port is usable.
const DefaultEchoUrl = "https://ip.decodo.com/json"

type Config struct {
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	// comma separated port list, e.g. "10001,10002"
	Ports string `json:"ports"`
	// defaults to DefaultEchoUrl
	EchoUrl string `json:"echo_url"`
	// appends a random sticky session id to the proxy username
	StickySessions bool `json:"sticky_sessions"`
}

func (c Config) Enabled() bool {
	return c.Host != ""
}

func (c Config) portList() []string {
	ports := c.Ports
	if ports == "" {
		ports = "10001"
	}
	var out []string
	for _, p := range strings.Split(ports, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EchoInfo is the interesting subset of the provider's echo response.
type EchoInfo struct {
	Proxy struct {
		Ip string `json:"ip"`
	} `json:"proxy"`
	Country struct {
		Name string `json:"name"`
	} `json:"country"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// Pool probes the configured ports once and hands out working proxy
// urls at random afterwards.
type Pool struct {
	config Config

	mu      sync.Mutex
	probed  bool
	working []string
	echo    map[string]EchoInfo
}

func NewPool(config Config) *Pool {
	return &Pool{
		config: config,
		echo:   map[string]EchoInfo{},
	}
}

func (p *Pool) username() string {
	user := p.config.User
	if p.config.StickySessions {
		id, err := random.String(8)
		if err == nil {
			user = fmt.Sprintf("%s-sessid-%s", user, id)
		}
	}
	return user
}

func (p *Pool) urlForPort(port string) string {
	return fmt.Sprintf(
		"http://%s:%s@%s:%s",
		url.QueryEscape(p.username()),
		url.QueryEscape(p.config.Password),
		p.config.Host,
		port,
	)
}

func (p *Pool) probe(ctx context.Context, port string) (EchoInfo, error) {
	ctx, span := tracer.Start(ctx, "probe")
	defer span.End()
	span.SetAttributes(attribute.String("port", port))

	echoUrl := p.config.EchoUrl
	if echoUrl == "" {
		echoUrl = DefaultEchoUrl
	}

	client := resty.New()
	client.SetProxy(p.urlForPort(port))
	client.SetTimeout(time.Second * 10)

	var info EchoInfo
	res, err := client.R().
		SetContext(ctx).
		SetResult(&info).
		Get(echoUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "echo request failed")
		return EchoInfo{}, err
	}
	if res.StatusCode() != 200 {
		err = fmt.Errorf("echo endpoint returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "echo request failed")
		return EchoInfo{}, err
	}

	return info, nil
}

func (p *Pool) probeAll(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "probeAll")
	defer span.End()

	for _, port := range p.config.portList() {
		info, err := p.probe(ctx, port)
		if err != nil {
			slog.WarnContext(ctx, "proxy port failed probe", "port", port, "err", err)
			continue
		}
		slog.InfoContext(
			ctx, "proxy port is working",
			"port", port,
			"ip", info.Proxy.Ip,
			"country", info.Country.Name,
			"city", info.City.Name,
		)
		p.working = append(p.working, port)
		p.echo[port] = info
	}
	p.probed = true
}

// Pick returns a proxy url through a known-working port, probing all
// configured ports on first use. ok is false when the pool is disabled
// or no port survived probing; callers fall back to a direct
// connection in that case.
func (p *Pool) Pick(ctx context.Context) (proxyUrl string, ok bool) {
	if !p.config.Enabled() {
		return "", false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.probed {
		p.probeAll(ctx)
	}
	if len(p.working) == 0 {
		slog.ErrorContext(ctx, "no working proxy ports found")
		return "", false
	}

	port := p.working[rand.Intn(len(p.working))]
	if info, ok := p.echo[port]; ok {
		slog.InfoContext(
			ctx, "using cached working proxy",
			"port", port,
			"ip", info.Proxy.Ip,
		)
	}
	return p.urlForPort(port), true
}
