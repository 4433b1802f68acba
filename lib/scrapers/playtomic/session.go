package playtomic

import (
	"context"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/playtomic")

const (
	// how long to wait for the grid to render before giving up on a club
	gridWaitTimeout = time.Second * 20
	// the grid keeps animating slots in after it first appears
	gridSettleDelay = time.Second * 3
)

type SessionOptions struct {
	// proxy url in user:pass@host:port form, empty means direct
	ProxyUrl string
	// devtools websocket url of an already-running browser, used by
	// tests; empty launches a local browser
	RemoteUrl string
}

// Session owns one headless browser. Sessions are not safe for
// concurrent use, workers hold their own.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// the same switches the python scraper passed to undetected
// chromedriver, minus the ones chromedp already defaults
func allocatorOptions(opts SessionOptions) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out,
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
	)
	if bin := os.Getenv("GOOGLE_CHROME_BIN"); bin != "" {
		out = append(out, chromedp.ExecPath(bin))
	}
	if opts.ProxyUrl != "" {
		out = append(out, chromedp.ProxyServer(opts.ProxyUrl))
	}
	return out
}

func NewSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	ctx, span := tracer.Start(ctx, "NewSession")
	defer span.End()
	span.SetAttributes(attribute.Bool("proxied", opts.ProxyUrl != ""))

	var cancels []context.CancelFunc

	allocCtx := ctx
	var cancel context.CancelFunc
	if opts.RemoteUrl != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteUrl)
	} else {
		allocCtx, cancel = chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	}
	cancels = append(cancels, cancel)

	tabCtx, cancel := chromedp.NewContext(allocCtx)
	cancels = append(cancels, cancel)

	// force the browser to actually start so a broken binary or proxy
	// fails here instead of on first navigation, and mask the headless
	// user agent while at it
	err := chromedp.Run(tabCtx, emulation.SetUserAgentOverride(UserAgent))
	if err != nil {
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return nil, err
	}

	return &Session{ctx: tabCtx, cancels: cancels}, nil
}

func (s *Session) Close() {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
}

// FetchGrid navigates to a club's booking page, waits for the
// availability grid to render and returns its html along with a full
// page screenshot.
func (s *Session) FetchGrid(ctx context.Context, url string) (html string, screenshot []byte, err error) {
	ctx, span := tracer.Start(ctx, "FetchGrid")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	runCtx, cancel := context.WithTimeout(s.ctx, gridWaitTimeout+gridSettleDelay+time.Second*10)
	defer cancel()
	go func() {
		// propagate caller cancellation into the tab
		select {
		case <-ctx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	err = chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(GridSelector, chromedp.ByQuery),
		chromedp.Sleep(gridSettleDelay),
		chromedp.CaptureScreenshot(&screenshot),
		chromedp.OuterHTML(GridSelector, &html, chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch grid")
		return "", nil, err
	}

	return html, screenshot, nil
}
