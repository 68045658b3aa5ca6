// Package browsertest provides scripted in-memory browser pages for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aluiziolira/maps-harvester/browser"
)

// Listing is one scripted search result.
type Listing struct {
	Name string
	// Fields maps selectors to the text they show once the listing is open.
	// A key with an empty value is present but blank.
	Fields map[string]string
	// HTML maps selectors to inner HTML once the listing is open.
	HTML map[string]string
	// Nested is the page its website control opens.
	Nested *Page

	ClickErr  error
	NestedErr error
	// NestedHangs makes the website control open nothing, so OpenNested
	// waits until its context is done.
	NestedHangs bool
	// Panic makes activating the listing panic with this value.
	Panic any
}

// Page is a scripted browser.Page. The zero value has no elements.
type Page struct {
	// Anchor is the result anchor selector.
	Anchor string
	// Counts is what successive Count(Anchor) calls report. The last value
	// repeats once exhausted.
	Counts   []int
	Listings []*Listing
	// Static maps selectors to text that does not depend on the open listing.
	Static map[string]string
	Markup string
	URL    string

	WaitErrs    map[string]error
	NavigateErr error
	IdleErr     error
	ContentErr  error
	// ContentHangs makes Content wait until its context is done.
	ContentHangs bool

	mu         sync.Mutex
	active     *Listing
	countCalls int

	Navigated []string
	Filled    map[string]string
	Entered   int
	Scrolls   int
	Clicks    []string
	Opened    int
	closed    bool
}

var _ browser.Page = (*Page)(nil)

func (p *Page) lookupLocked(sel string) (string, bool) {
	if p.active != nil {
		if v, ok := p.active.Fields[sel]; ok {
			return v, true
		}
	}
	v, ok := p.Static[sel]
	return v, ok
}

func (p *Page) anchorCountLocked() int {
	if len(p.Counts) == 0 {
		return len(p.Listings)
	}
	i := p.countCalls
	if i >= len(p.Counts) {
		i = len(p.Counts) - 1
	}
	return p.Counts[i]
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigated = append(p.Navigated, url)
	return p.NavigateErr
}

func (p *Page) WaitVisible(ctx context.Context, sel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.WaitErrs[sel]; ok {
		return err
	}
	if sel == p.Anchor && p.Anchor != "" {
		if p.anchorCountLocked() > 0 {
			return nil
		}
		return context.DeadlineExceeded
	}
	if _, ok := p.lookupLocked(sel); ok {
		return nil
	}
	return context.DeadlineExceeded
}

func (p *Page) Fill(ctx context.Context, sel, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Filled == nil {
		p.Filled = make(map[string]string)
	}
	p.Filled[sel] = text
	return nil
}

func (p *Page) PressEnter(ctx context.Context, sel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Entered++
	return nil
}

func (p *Page) Count(ctx context.Context, sel string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if sel == p.Anchor && p.Anchor != "" {
		n := p.anchorCountLocked()
		p.countCalls++
		return n, nil
	}
	if _, ok := p.lookupLocked(sel); ok {
		return 1, nil
	}
	return 0, nil
}

func (p *Page) ScrollBy(ctx context.Context, sel string, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls++
	return nil
}

func (p *Page) Click(ctx context.Context, sel string, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clicks = append(p.Clicks, fmt.Sprintf("%s[%d]", sel, index))

	if sel == p.Anchor && p.Anchor != "" {
		if index < 0 || index >= len(p.Listings) {
			return fmt.Errorf("%w: %s[%d]", browser.ErrNoElement, sel, index)
		}
		l := p.Listings[index]
		if l.Panic != nil {
			panic(l.Panic)
		}
		if l.ClickErr != nil {
			return l.ClickErr
		}
		p.active = l
		return nil
	}
	if _, ok := p.lookupLocked(sel); ok && index == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s[%d]", browser.ErrNoElement, sel, index)
}

func (p *Page) Attribute(ctx context.Context, sel string, index int, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if sel == p.Anchor && name == "aria-label" && index >= 0 && index < len(p.Listings) {
		return p.Listings[index].Name, true, nil
	}
	return "", false, nil
}

func (p *Page) Text(ctx context.Context, sel string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.lookupLocked(sel)
	return v, ok, nil
}

func (p *Page) InnerHTML(ctx context.Context, sel string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		if v, ok := p.active.HTML[sel]; ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	hangs := p.ContentHangs
	p.mu.Unlock()
	if hangs {
		<-ctx.Done()
		return "", ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Markup, p.ContentErr
}

func (p *Page) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, nil
}

func (p *Page) OpenNested(ctx context.Context, sel string) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	hangs := p.active != nil && p.active.NestedHangs
	p.mu.Unlock()
	if hangs {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.lookupLocked(sel); !ok || p.active == nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoElement, sel)
	}
	if p.active.NestedErr != nil {
		return nil, p.active.NestedErr
	}
	if p.active.Nested == nil {
		return nil, fmt.Errorf("%w: %s opened nothing", browser.ErrNoElement, sel)
	}
	p.Opened++
	return p.active.Nested, nil
}

func (p *Page) WaitNetworkIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.IdleErr
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// AnchorPolls reports how many times the result anchors were counted.
func (p *Page) AnchorPolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.countCalls
}

// Session is a browser.Session around a scripted Page.
type Session struct {
	SessionID uint64
	P         *Page
	CloseErr  error

	mu     sync.Mutex
	closed bool
}

var _ browser.Session = (*Session)(nil)

func (s *Session) ID() uint64 { return s.SessionID }

func (s *Session) Page() browser.Page { return s.P }

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.CloseErr
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Launcher returns a browser.Launcher yielding s, or err when err is set.
func Launcher(s *Session, err error) browser.Launcher {
	return func(context.Context) (browser.Session, error) {
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
