// Package browser implements login.Page on top of a Chrome or Chromium
// instance driven over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/spdrive/spdrive/internal/login"
)

// Timeouts for actions that are not bounded by a login timing setting.
const (
	navigateTimeout = 60 * time.Second
	actionTimeout   = 10 * time.Second
	locationTimeout = 2 * time.Second
)

// Options selects the browser binary and whether a window is shown.
type Options struct {
	Headless bool
	// ExecPath is the Chrome/Chromium executable. Empty means the usual
	// install locations and PATH are searched.
	ExecPath string
}

// Page is one browser tab. It records every URL the tab requests or
// navigates to, so the redirect can be captured even though nothing serves
// the redirect URI.
type Page struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	logger      *slog.Logger

	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	seen   []string
	notify chan struct{}
}

var _ login.Page = (*Page)(nil)

// Open launches a browser with a single tab.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Page, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)

	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("devtools error", slog.String("detail", fmt.Sprintf(format, args...)))
		}),
	)

	p := &Page{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
		notify:      make(chan struct{}, 1),
	}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			p.record(e.Request.URL)
		case *page.EventFrameNavigated:
			if e.Frame.ParentID == "" {
				p.record(e.Frame.URL)
			}
		}
	})

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser: starting: %w", err)
	}

	logger.Debug("browser started",
		slog.Bool("headless", opts.Headless),
		slog.String("exec_path", opts.ExecPath),
	)

	return p, nil
}

func (p *Page) record(url string) {
	p.mu.Lock()
	p.seen = append(p.seen, url)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Page) firstMatch(prefix string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range p.seen {
		if strings.HasPrefix(u, prefix) {
			return u, true
		}
	}

	return "", false
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if p.ctx.Err() != nil {
		return fmt.Errorf("browser: tab closed: %w", err)
	}

	return err
}

func selector(id string) string {
	return "#" + id
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, navigateTimeout, chromedp.Navigate(url))
}

// WaitFor waits until the element is visible. A timeout is reported as
// login.ErrElementNotFound.
func (p *Page) WaitFor(ctx context.Context, id string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.WaitVisible(selector(id), chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: #%s", login.ErrElementNotFound, id)
	}

	return err
}

// Type sends keystrokes to the element. A trailing login.EnterKey presses
// Enter.
func (p *Page) Type(ctx context.Context, id, text string) error {
	return p.run(ctx, actionTimeout, chromedp.SendKeys(selector(id), text, chromedp.ByQuery))
}

// Click clicks the element.
func (p *Page) Click(ctx context.Context, id string) error {
	return p.run(ctx, actionTimeout, chromedp.Click(selector(id), chromedp.ByQuery))
}

// Text returns the element's visible text.
func (p *Page) Text(ctx context.Context, id string) (string, error) {
	var text string
	if err := p.run(ctx, actionTimeout, chromedp.Text(selector(id), &text, chromedp.ByQuery)); err != nil {
		return "", err
	}

	return text, nil
}

// CaptureRedirect returns the first URL the tab requested that starts with
// prefix, waiting up to timeout for one to appear. If none was seen, the
// tab's current location is used when it matches.
func (p *Page) CaptureRedirect(ctx context.Context, prefix string, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if u, ok := p.firstMatch(prefix); ok {
			return u, nil
		}

		select {
		case <-p.notify:
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			var loc string
			if err := p.run(ctx, locationTimeout, chromedp.Location(&loc)); err == nil && strings.HasPrefix(loc, prefix) {
				return loc, nil
			}

			return "", fmt.Errorf("browser: no navigation to %s within %s", prefix, timeout)
		}
	}
}

// Close shuts the browser down. Safe to call more than once.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = chromedp.Cancel(p.ctx)
		p.tabCancel()
		p.allocCancel()
	})

	if errors.Is(p.closeErr, context.Canceled) {
		return nil
	}

	return p.closeErr
}
