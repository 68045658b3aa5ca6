package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/aluiziolira/maps-harvester/config"
)

var sessionSeq atomic.Uint64

// Chrome is a Session backed by a local Chrome started through chromedp.
type Chrome struct {
	id     uint64
	tab    *Tab
	cancel context.CancelFunc
}

// ChromeLauncher returns a Launcher that starts Chrome with cfg's browser
// settings.
func ChromeLauncher(cfg *config.Config) Launcher {
	return func(ctx context.Context) (Session, error) {
		return NewChrome(ctx, cfg)
	}
}

// NewChrome starts a browser and opens its primary tab.
func NewChrome(ctx context.Context, cfg *config.Config) (*Chrome, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.WindowSize(1366, 900),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Debug("chromedp", slog.String("detail", fmt.Sprintf(format, args...)))
		}),
	)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	id := sessionSeq.Add(1)
	slog.Debug("browser session started", slog.Uint64("session", id), slog.Bool("headless", cfg.Headless))
	return &Chrome{id: id, tab: newTab(tabCtx, tabCancel), cancel: cancel}, nil
}

func (c *Chrome) ID() uint64 { return c.id }

func (c *Chrome) Page() Page { return c.tab }

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.cancel()
	slog.Debug("browser session closed", slog.Uint64("session", c.id))
	return nil
}

// Tab is a Page bound to one chromedp target.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc

	idle     chan struct{}
	idleOnce sync.Once
}

func newTab(ctx context.Context, cancel context.CancelFunc) *Tab {
	t := &Tab{ctx: ctx, cancel: cancel, idle: make(chan struct{})}
	chromedp.ListenTarget(ctx, func(ev any) {
		if e, ok := ev.(*cdppage.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			t.idleOnce.Do(func() { close(t.idle) })
		}
	})
	return t
}

// run executes actions on the tab, bounded by ctx as well as the tab's own
// lifetime.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (t *Tab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, chromedp.Navigate(url))
}

func (t *Tab) WaitVisible(ctx context.Context, sel string) error {
	return t.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (t *Tab) Fill(ctx context.Context, sel, text string) error {
	return t.run(ctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
}

func (t *Tab) PressEnter(ctx context.Context, sel string) error {
	return t.run(ctx, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery))
}

func (t *Tab) Count(ctx context.Context, sel string) (int, error) {
	var n int
	err := t.run(ctx, chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(sel)), &n))
	return n, err
}

func (t *Tab) ScrollBy(ctx context.Context, sel string, dy int) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (el) { el.scrollBy(0, %d); return true; }
		window.scrollBy(0, %d);
		return false;
	})()`, jsString(sel), dy, dy)
	var scrolled bool
	return t.run(ctx, chromedp.Evaluate(script, &scrolled))
}

func (t *Tab) nth(ctx context.Context, sel string, index int) (*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := t.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(nodes) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrNoElement, sel, index)
	}
	return nodes[index], nil
}

func (t *Tab) Click(ctx context.Context, sel string, index int) error {
	node, err := t.nth(ctx, sel, index)
	if err != nil {
		return err
	}
	return t.run(ctx, chromedp.MouseClickNode(node))
}

// lookup is the shape returned by the presence-checking scripts.
type lookup struct {
	OK    bool   `json:"ok"`
	Value string `json:"value"`
}

func (t *Tab) evalLookup(ctx context.Context, script string) (string, bool, error) {
	var res lookup
	if err := t.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return "", false, err
	}
	return res.Value, res.OK, nil
}

func (t *Tab) Attribute(ctx context.Context, sel string, index int, name string) (string, bool, error) {
	return t.evalLookup(ctx, fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el || !el.hasAttribute(%s)) return {ok: false, value: ""};
		return {ok: true, value: el.getAttribute(%s)};
	})()`, jsString(sel), index, jsString(name), jsString(name)))
}

func (t *Tab) Text(ctx context.Context, sel string) (string, bool, error) {
	return t.evalLookup(ctx, fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? {ok: true, value: el.innerText} : {ok: false, value: ""};
	})()`, jsString(sel)))
}

func (t *Tab) InnerHTML(ctx context.Context, sel string) (string, bool, error) {
	return t.evalLookup(ctx, fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? {ok: true, value: el.innerHTML} : {ok: false, value: ""};
	})()`, jsString(sel)))
}

func (t *Tab) Content(ctx context.Context) (string, error) {
	var html string
	err := t.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (t *Tab) Location(ctx context.Context) (string, error) {
	var url string
	err := t.run(ctx, chromedp.Location(&url))
	return url, err
}

// OpenNested clicks the first element matching sel and attaches to the tab
// that the click opens.
func (t *Tab) OpenNested(ctx context.Context, sel string) (Page, error) {
	c := chromedp.FromContext(t.ctx)
	if c == nil || c.Target == nil {
		return nil, errors.New("browser: tab is not attached")
	}
	opener := c.Target.TargetID

	targets := chromedp.WaitNewTarget(t.ctx, func(info *target.Info) bool {
		return info.Type == "page" && info.OpenerID == opener
	})
	if err := t.Click(ctx, sel, 0); err != nil {
		return nil, err
	}

	var id target.ID
	select {
	case id = <-targets:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	nestedCtx, nestedCancel := chromedp.NewContext(t.ctx, chromedp.WithTargetID(id))
	nested := newTab(nestedCtx, nestedCancel)
	if err := nested.run(ctx, cdppage.SetLifecycleEventsEnabled(true)); err != nil {
		nestedCancel()
		return nil, fmt.Errorf("attach nested page: %w", err)
	}
	return nested, nil
}

// WaitNetworkIdle blocks until the tab first reports network idle.
func (t *Tab) WaitNetworkIdle(ctx context.Context) error {
	select {
	case <-t.idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

// Close closes the tab. Closing the primary tab ends the session's browser.
func (t *Tab) Close() error {
	err := chromedp.Run(t.ctx, cdppage.Close())
	t.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
