// Package browser drives a single interactive browsing session against the
// map search surface.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

// ErrNoElement is returned when an indexed element no longer exists.
var ErrNoElement = errors.New("browser: no such element")

// Page is one browsing context. Waits honour the deadline of the ctx they are
// given and fail with context.DeadlineExceeded when it passes; lookups that
// report presence with a bool never fail just because an element is missing.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string) error
	Fill(ctx context.Context, sel, text string) error
	PressEnter(ctx context.Context, sel string) error
	Count(ctx context.Context, sel string) (int, error)
	ScrollBy(ctx context.Context, sel string, dy int) error
	Click(ctx context.Context, sel string, index int) error
	Attribute(ctx context.Context, sel string, index int, name string) (string, bool, error)
	Text(ctx context.Context, sel string) (string, bool, error)
	InnerHTML(ctx context.Context, sel string) (string, bool, error)
	Content(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	// OpenNested activates sel and returns the page it opens. The caller
	// owns the returned page and must Close it.
	OpenNested(ctx context.Context, sel string) (Page, error)
	WaitNetworkIdle(ctx context.Context) error
	Close() error
}

// Session owns a browser and its primary page.
type Session interface {
	// ID distinguishes sessions within one process. Handles minted in one
	// session are meaningless in another.
	ID() uint64
	Page() Page
	Close() error
}

// Launcher starts a new session.
type Launcher func(ctx context.Context) (Session, error)

// WithSession launches a session, hands it to fn and tears it down however
// fn exits, panics included. A teardown failure is logged only; the work fn
// finished stays valid.
func WithSession(ctx context.Context, launch Launcher, fn func(context.Context, Session) error) error {
	s, err := launch(ctx)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			slog.Warn("close browser session", slog.Uint64("session", s.ID()), slog.Any("error", cerr))
		}
	}()

	return fn(ctx, s)
}

// DismissConsent clicks the cookie consent control if it shows up within
// timeout. Failing to find or click it is logged and otherwise ignored.
func DismissConsent(ctx context.Context, p Page, sel string, timeout time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.WaitVisible(waitCtx, sel); err != nil {
		slog.Warn("consent control not found", slog.String("selector", sel), slog.Any("error", err))
		return false
	}
	if err := p.Click(waitCtx, sel, 0); err != nil {
		slog.Warn("consent control click failed", slog.String("selector", sel), slog.Any("error", err))
		return false
	}
	slog.Debug("consent dismissed")
	return true
}

// CSSString quotes s as a CSS string for use in an attribute selector.
// Quotes, backslashes and control characters are escaped; every other rune
// is written as is.
func CSSString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == 0:
			b.WriteString(`\fffd `)
		case unicode.IsControl(r):
			fmt.Fprintf(&b, `\%x `, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
