package probe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/output"
)

// DefaultLoadTimeout bounds the network-idle wait after navigation.
const DefaultLoadTimeout = 30 * time.Second

// editorContentJS reads the first Monaco model, or "" when Monaco is absent.
const editorContentJS = `() => {
	const editor = document.querySelector('.monaco-editor');
	if (editor && window.monaco) {
		return window.monaco.editor.getModels()[0]?.getValue() || '';
	}
	return '';
}`

// Options configures a browser session.
type Options struct {
	BaseURL       string
	ScreenshotDir string
	Headless      bool
	LoadTimeout   time.Duration
	Output        *output.Writer
	Logger        *zap.Logger
}

// Session is one browser with one page. Close must be called on every path.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page

	baseURL       string
	screenshotDir string
	loadTimeout   time.Duration
	out           *output.Writer
	log           *zap.Logger
}

// Open starts Playwright, launches Chromium and opens a blank page.
func Open(opts Options) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, wberrors.Environmentf("could not start playwright (try `wbtest install`): %v", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, wberrors.Environmentf("could not launch chromium: %v", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, wberrors.Environmentf("could not open page: %v", err)
	}

	s := NewSession(page, opts)
	s.pw = pw
	s.browser = browser
	s.log.Debug("browser session opened", zap.Bool("headless", opts.Headless))
	return s, nil
}

// NewSession wraps an existing page. The caller owns the page's browser.
func NewSession(page playwright.Page, opts Options) *Session {
	s := &Session{
		page:          page,
		baseURL:       opts.BaseURL,
		screenshotDir: opts.ScreenshotDir,
		loadTimeout:   opts.LoadTimeout,
		out:           opts.Output,
		log:           opts.Logger,
	}
	if s.loadTimeout == 0 {
		s.loadTimeout = DefaultLoadTimeout
	}
	if s.out == nil {
		s.out = output.New()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Close releases the browser and the Playwright driver.
func (s *Session) Close() error {
	var errs []error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	s.log.Debug("browser session closed")
	return errors.Join(errs...)
}

// Page exposes the underlying page.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Output returns the narration writer.
func (s *Session) Output() *output.Writer {
	return s.out
}

// Navigate opens the base URL and waits for network idle.
func (s *Session) Navigate() error {
	s.out.Println("Navigating to %s...", s.baseURL)
	if _, err := s.page.Goto(s.baseURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", s.baseURL, err)
	}
	err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(s.loadTimeout.Milliseconds())),
	})
	if err != nil {
		return wberrors.Timeout("network idle", err)
	}
	return nil
}

// Settle pauses for a fixed delay so the UI can catch up.
func (s *Session) Settle(d time.Duration) {
	s.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (s *Session) locate(selector, hasText string) playwright.Locator {
	loc := s.page.Locator(selector)
	if hasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: hasText})
	}
	return loc
}

// Find returns the first visible match of the first candidate that has
// one. A miss is an element-not-found error.
func (s *Session) Find(t Target) (playwright.Locator, error) {
	for _, sel := range t.Candidates {
		loc := s.locate(sel, t.HasText).First()
		visible, err := loc.IsVisible()
		if err != nil {
			return nil, fmt.Errorf("locate %s with %q: %w", t.Description, sel, err)
		}
		if visible {
			s.log.Debug("element located", zap.String("element", t.Description), zap.String("selector", sel))
			return loc, nil
		}
	}
	return nil, wberrors.ElementNotFound(t.Description)
}

// Optional is Find for elements whose absence is an expected branch.
func (s *Session) Optional(t Target) (playwright.Locator, bool, error) {
	loc, err := s.Find(t)
	if wberrors.IsKind(err, wberrors.KindElementNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return loc, true, nil
}

// Query returns a locator over every match of all candidates.
func (s *Session) Query(t Target) playwright.Locator {
	return s.locate(t.Selector(), t.HasText)
}

// Count returns the number of matches of all candidates.
func (s *Session) Count(t Target) (int, error) {
	n, err := s.Query(t).Count()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Description, err)
	}
	return n, nil
}

// Visible returns the visible matches of t along with the total count.
func (s *Session) Visible(t Target) ([]playwright.Locator, int, error) {
	all, err := s.Query(t).All()
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", t.Description, err)
	}
	visible := make([]playwright.Locator, 0, len(all))
	for _, loc := range all {
		ok, err := loc.IsVisible()
		if err != nil {
			return nil, 0, fmt.Errorf("list %s: %w", t.Description, err)
		}
		if ok {
			visible = append(visible, loc)
		}
	}
	return visible, len(all), nil
}

// WaitVisible blocks until t is visible. Running out of time is a timeout
// error, which scenarios treat as unexpected.
func (s *Session) WaitVisible(t Target, timeout time.Duration) error {
	err := s.Query(t).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return wberrors.Timeout(t.Description, err)
	}
	return err
}

// Press sends a key chord to the focused element.
func (s *Session) Press(key string) error {
	return s.page.Keyboard().Press(key)
}

// Type types text into the focused element.
func (s *Session) Type(text string) error {
	return s.page.Keyboard().Type(text)
}

// ClickAway clicks the page body, closing menus and popovers.
func (s *Session) ClickAway() error {
	return s.page.Locator("body").Click()
}

// EditorContent returns the text of the first Monaco model.
func (s *Session) EditorContent() (string, error) {
	v, err := s.page.Evaluate(editorContentJS)
	if err != nil {
		return "", fmt.Errorf("read editor content: %w", err)
	}
	text, _ := v.(string)
	return text, nil
}

// Screenshot saves a capture under the screenshot directory and returns
// its path.
func (s *Session) Screenshot(name string, fullPage bool) (string, error) {
	if err := os.MkdirAll(s.screenshotDir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}
	path := filepath.Join(s.screenshotDir, name)
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	if err != nil {
		return "", fmt.Errorf("screenshot %s: %w", name, err)
	}
	s.log.Debug("screenshot saved", zap.String("path", path))
	return path, nil
}

// SavePageSource writes the current page HTML under the screenshot
// directory.
func (s *Session) SavePageSource(name string) (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	if err := os.MkdirAll(s.screenshotDir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}
	path := filepath.Join(s.screenshotDir, name)
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("write page source: %w", err)
	}
	return path, nil
}
