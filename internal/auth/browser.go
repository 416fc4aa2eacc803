package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// BrowserConfig holds headless Chrome settings for interactive logins
type BrowserConfig struct {
	Bin               string
	Headless          bool
	NavigationTimeout time.Duration
}

// StepTimeout returns the per-step timeout
func (c BrowserConfig) StepTimeout() time.Duration {
	if c.NavigationTimeout == 0 {
		return 30 * time.Second
	}
	return c.NavigationTimeout
}

// Browser launches a throwaway Chrome instance per login
type Browser struct {
	cfg    BrowserConfig
	logger *logrus.Logger
}

func NewBrowser(cfg BrowserConfig, logger *logrus.Logger) *Browser {
	return &Browser{cfg: cfg, logger: logger}
}

// withPage launches Chrome, opens a blank page, runs fn and tears everything down
func (b *Browser) withPage(ctx context.Context, fn func(page *rod.Page) error) error {
	launch := launcher.New().Headless(b.cfg.Headless)
	if b.cfg.Bin != "" {
		launch = launch.Bin(b.cfg.Bin)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			b.logger.Debugf("Closing browser: %v", err)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return fn(page)
}

func (b *Browser) navigate(page *rod.Page, url string) error {
	p := page.Timeout(b.cfg.StepTimeout())
	defer p.CancelTimeout()

	b.logger.Debugf("Navigating to %s", url)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (b *Browser) fill(page *rod.Page, selector, text string) error {
	p := page.Timeout(b.cfg.StepTimeout())
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("element %s not found: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// submit presses Enter and returns once the resulting navigation has loaded.
// The navigation wait is armed before the key press so the event cannot be missed.
func (b *Browser) submit(page *rod.Page) error {
	p := page.Timeout(b.cfg.StepTimeout())
	defer p.CancelTimeout()

	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := p.Keyboard.Press(input.Enter); err != nil {
		return fmt.Errorf("submit form: %w", err)
	}
	wait()
	return nil
}

func (b *Browser) waitFor(page *rod.Page, selector string) error {
	p := page.Timeout(b.cfg.StepTimeout())
	defer p.CancelTimeout()

	if _, err := p.Element(selector); err != nil {
		return fmt.Errorf("landing element %s never appeared: %w", selector, err)
	}
	return nil
}

// LoginForm describes a username/password sign-in page
type LoginForm struct {
	URL              string
	UsernameSelector string
	PasswordSelector string
}

func (b *Browser) signIn(page *rod.Page, form LoginForm, creds Credentials) error {
	if err := b.navigate(page, form.URL); err != nil {
		return err
	}
	if err := b.fill(page, form.UsernameSelector, creds.Username); err != nil {
		return err
	}
	if err := b.fill(page, form.PasswordSelector, creds.Password); err != nil {
		return err
	}
	return b.submit(page)
}

// LocalStorageLogin signs in, opens a landing page and reads the token the
// web app stored in window.localStorage.
type LocalStorageLogin struct {
	Browser       *Browser
	Credentials   Credentials
	Form          LoginForm
	LandingURL    string
	ReadySelector string
	StorageKey    string
}

func (l *LocalStorageLogin) Authenticate(ctx context.Context) (Token, error) {
	if !l.Credentials.valid() {
		return "", fmt.Errorf("%w: missing username or password for %s", ErrAuthentication, l.Form.URL)
	}

	var token string
	err := l.Browser.withPage(ctx, func(page *rod.Page) error {
		if err := l.Browser.signIn(page, l.Form, l.Credentials); err != nil {
			return err
		}
		if l.LandingURL != "" {
			if err := l.Browser.navigate(page, l.LandingURL); err != nil {
				return err
			}
		}
		if err := l.Browser.waitFor(page, l.ReadySelector); err != nil {
			return err
		}

		res, err := page.Evaluate(rod.Eval(`(key) => window.localStorage.getItem(key)`, l.StorageKey))
		if err != nil {
			return fmt.Errorf("read local storage: %w", err)
		}
		if res != nil && !res.Value.Nil() {
			token = res.Value.Str()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if token == "" {
		return "", fmt.Errorf("%w: no %q in local storage", ErrAuthentication, l.StorageKey)
	}
	return Token(stripScheme(token)), nil
}

// HeaderLogin signs in while watching outgoing requests and keeps the last
// value of the given header, for apps that never expose the token to storage.
type HeaderLogin struct {
	Browser       *Browser
	Credentials   Credentials
	Form          LoginForm
	ReadySelector string
	Header        string
	// URLPrefix limits capture to requests whose URL starts with it
	URLPrefix string
}

func (h *HeaderLogin) Authenticate(ctx context.Context) (Token, error) {
	if !h.Credentials.valid() {
		return "", fmt.Errorf("%w: missing username or password for %s", ErrAuthentication, h.Form.URL)
	}

	var (
		mu    sync.Mutex
		token string
	)
	err := h.Browser.withPage(ctx, func(page *rod.Page) error {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		wait := page.Context(watchCtx).EachEvent(func(ev *proto.NetworkRequestWillBeSent) {
			if ev.Request == nil {
				return
			}
			if h.URLPrefix != "" && !strings.HasPrefix(ev.Request.URL, h.URLPrefix) {
				return
			}
			for key, value := range ev.Request.Headers {
				if strings.EqualFold(key, h.Header) && value.Str() != "" {
					mu.Lock()
					token = value.Str()
					mu.Unlock()
				}
			}
		})
		go wait()

		if err := h.Browser.signIn(page, h.Form, h.Credentials); err != nil {
			return err
		}
		return h.Browser.waitFor(page, h.ReadySelector)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if token == "" {
		return "", fmt.Errorf("%w: no %s header observed", ErrAuthentication, h.Header)
	}
	return Token(stripScheme(token)), nil
}
