package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"strings"
	"sync"
	"time"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var (
	_ output.ElementSource    = (*BrowserAdapter)(nil)
	_ output.StalenessChecker = (*BrowserAdapter)(nil)
	_ output.HTMLSource       = (*BrowserAdapter)(nil)
)

const (
	defaultSlowMotion = 0
	defaultTimeout    = 10 * time.Second
)

var (
	ErrInvalidURL     = errors.New("invalid url")
	ErrInvalidScope   = errors.New("invalid scope element")
	ErrBrowserClosed  = errors.New("browser is closed")
	allowedURLSchemes = map[string]bool{"http": true, "https": true, "file": true, "about": true}
)

type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
}

type BrowserConfig struct {
	Headless                bool
	SlowMotion              time.Duration
	Timeout                 time.Duration
	NoSandbox               bool
	DevTools                bool
	DisableSecurityFeatures bool
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   false,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
	}
}

// Available reports whether a local Chromium binary can be found.
func Available() bool {
	_, has := launcher.LookPath()
	return has
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")
	if cfg.DisableSecurityFeatures {
		l = l.Set("disable-web-security").
			Set("allow-running-insecure-content")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
	}, nil
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.page != nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || rawURL == "" || !allowedURLSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	p := b.page.Context(ctx).Timeout(b.timeout)
	if err := p.Navigate(u.String()); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load failed: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) FindOne(ctx context.Context, by entity.By, scope entity.Element) (entity.Element, error) {
	var (
		el  *rod.Element
		err error
	)

	switch by.Strategy {
	case entity.StrategyXPath, entity.StrategyLinkText, entity.StrategyPartialLinkText:
		xpath := toXPath(by, scope != nil)
		if scope == nil {
			el, err = b.page.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementX(xpath)
		} else {
			var s *rod.Element
			if s, err = scopeElement(scope); err == nil {
				el, err = s.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementX(xpath)
			}
		}
	case entity.StrategyJS:
		if scope == nil {
			el, err = b.page.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(by.Value))
		} else {
			var s *rod.Element
			if s, err = scopeElement(scope); err == nil {
				el, err = s.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(by.Value))
			}
		}
	default:
		var css string
		if css, err = toCSS(by); err != nil {
			return nil, err
		}
		if scope == nil {
			el, err = b.page.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(css)
		} else {
			var s *rod.Element
			if s, err = scopeElement(scope); err == nil {
				el, err = s.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(css)
			}
		}
	}
	if err != nil {
		return nil, classify(by.String(), err)
	}
	return el, nil
}

func (b *BrowserAdapter) FindAll(ctx context.Context, by entity.By, scope entity.Element) ([]entity.Element, error) {
	var (
		els rod.Elements
		err error
	)

	switch by.Strategy {
	case entity.StrategyXPath, entity.StrategyLinkText, entity.StrategyPartialLinkText:
		xpath := toXPath(by, scope != nil)
		if scope == nil {
			els, err = b.page.Context(ctx).ElementsX(xpath)
		} else {
			var s *rod.Element
			if s, err = scopeElement(scope); err == nil {
				els, err = s.Context(ctx).ElementsX(xpath)
			}
		}
	case entity.StrategyJS:
		if scope == nil {
			els, err = b.page.Context(ctx).ElementsByJS(rod.Eval(by.Value))
		} else {
			var s *rod.Element
			if s, err = scopeElement(scope); err == nil {
				els, err = s.Context(ctx).ElementsByJS(rod.Eval(by.Value))
			}
		}
	default:
		var css string
		if css, err = toCSS(by); err != nil {
			return nil, err
		}
		if scope == nil {
			els, err = b.page.Context(ctx).Elements(css)
		} else {
			var s *rod.Element
			if s, err = scopeElement(scope); err == nil {
				els, err = s.Context(ctx).Elements(css)
			}
		}
	}
	if err != nil {
		return nil, classify(by.String(), err)
	}

	result := make([]entity.Element, 0, len(els))
	for _, el := range els {
		result = append(result, el)
	}
	return result, nil
}

func (b *BrowserAdapter) Text(ctx context.Context, el entity.Element) (string, error) {
	e, err := scopeElement(el)
	if err != nil {
		return "", err
	}
	text, err := e.Context(ctx).Text()
	if err != nil {
		return "", classify("text", err)
	}
	return text, nil
}

func (b *BrowserAdapter) Visible(ctx context.Context, el entity.Element) (bool, error) {
	e, err := scopeElement(el)
	if err != nil {
		return false, err
	}
	visible, err := e.Context(ctx).Visible()
	if err != nil {
		return false, classify("visible", err)
	}
	return visible, nil
}

func (b *BrowserAdapter) IsStale(ctx context.Context, el entity.Element) (bool, error) {
	e, err := scopeElement(el)
	if err != nil {
		return false, err
	}
	res, err := e.Context(ctx).Eval(`() => !this.isConnected`)
	if err != nil {
		if errors.Is(classify("stale", err), output.ErrStaleElement) {
			return true, nil
		}
		return false, err
	}
	return res.Value.Bool(), nil
}

func (b *BrowserAdapter) HTML(ctx context.Context, scope entity.Element) (string, error) {
	if scope == nil {
		return b.page.Context(ctx).HTML()
	}
	e, err := scopeElement(scope)
	if err != nil {
		return "", err
	}
	return e.Context(ctx).HTML()
}

func (b *BrowserAdapter) CurrentURL(ctx context.Context) (string, error) {
	info, err := b.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (b *BrowserAdapter) Title(ctx context.Context) (string, error) {
	info, err := b.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.Title, nil
}

func (b *BrowserAdapter) Reload(ctx context.Context) error {
	p := b.page.Context(ctx).Timeout(b.timeout)
	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load failed: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	imgBytes, err := b.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > 1024 {
		img = imaging.Resize(img, 1024, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

func scopeElement(el entity.Element) (*rod.Element, error) {
	e, ok := el.(*rod.Element)
	if !ok || e == nil {
		return nil, fmt.Errorf("%w: %T", ErrInvalidScope, el)
	}
	return e, nil
}

// classify maps rod and CDP failures onto the element source sentinels.
func classify(what string, err error) error {
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w", what, output.ErrNoSuchElement)
	}

	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		msg := strings.ToLower(cdpErr.Message)
		if strings.Contains(msg, "could not find node") ||
			strings.Contains(msg, "does not exist") ||
			strings.Contains(msg, "cannot find context") ||
			strings.Contains(msg, "could not find object") {
			return fmt.Errorf("%s: %w: %v", what, output.ErrStaleElement, err)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
