package probe

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/playwright-community/playwright-go"

	"github.com/promptworkbench/wbtest/internal/output"
)

// fakePage implements the slice of playwright.Page the session uses.
// Unused methods panic through the nil embedded interface.
type fakePage struct {
	playwright.Page

	elements map[string]*fakeLocator
	events   []string
	shots    []string
	settled  []float64

	html     string
	editor   interface{}
	gotoErr  error
	idleErr  error
	keyboard *fakeKeyboard
}

func newFakePage() *fakePage {
	p := &fakePage{elements: map[string]*fakeLocator{}}
	p.keyboard = &fakeKeyboard{page: p}
	return p
}

// visible registers selector with one visible match.
func (p *fakePage) visible(selector string) *fakeLocator {
	l := p.node(selector)
	l.isVisible = true
	l.count = 1
	return l
}

func (p *fakePage) node(selector string) *fakeLocator {
	if l, ok := p.elements[selector]; ok {
		return l
	}
	l := &fakeLocator{page: p, selector: selector, attrs: map[string]string{}, children: map[string]*fakeLocator{}}
	p.elements[selector] = l
	return l
}

func (p *fakePage) Goto(url string, _ ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.events = append(p.events, "goto:"+url)
	return nil, p.gotoErr
}

func (p *fakePage) WaitForLoadState(_ ...playwright.PageWaitForLoadStateOptions) error {
	return p.idleErr
}

func (p *fakePage) WaitForTimeout(timeout float64) {
	p.settled = append(p.settled, timeout)
}

func (p *fakePage) Locator(selector string, _ ...playwright.PageLocatorOptions) playwright.Locator {
	if l, ok := p.elements[selector]; ok {
		return l
	}
	return &fakeLocator{page: p, selector: selector}
}

func (p *fakePage) Keyboard() playwright.Keyboard {
	return p.keyboard
}

func (p *fakePage) Evaluate(_ string, _ ...interface{}) (interface{}, error) {
	return p.editor, nil
}

func (p *fakePage) Content() (string, error) {
	return p.html, nil
}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	name := ""
	if len(options) > 0 && options[0].Path != nil {
		name = filepath.Base(*options[0].Path)
	}
	p.shots = append(p.shots, name)
	return nil, nil
}

type fakeKeyboard struct {
	playwright.Keyboard
	page *fakePage
}

func (k *fakeKeyboard) Press(key string, _ ...playwright.KeyboardPressOptions) error {
	k.page.events = append(k.page.events, "key:"+key)
	return nil
}

func (k *fakeKeyboard) Type(text string, _ ...playwright.KeyboardTypeOptions) error {
	k.page.events = append(k.page.events, "type:"+text)
	return nil
}

// playwrightLocator aliases playwright.Locator so the embedded field is
// not named Locator, which would hide the interface's Locator method.
type playwrightLocator = playwright.Locator

// fakeLocator is one selector's matches. Filter returns the child keyed
// by HasText.
type fakeLocator struct {
	playwrightLocator

	page      *fakePage
	selector  string
	isVisible bool
	count     int
	text      string
	attrs     map[string]string
	tag       string
	box       *playwright.Rect
	items     []*fakeLocator
	children  map[string]*fakeLocator
	waitErr   error
	clickErr  error
}

// withText registers the HasText-filtered child of l.
func (l *fakeLocator) withText(text string) *fakeLocator {
	c := &fakeLocator{page: l.page, selector: l.selector + "|" + text, isVisible: true, count: 1, attrs: map[string]string{}}
	l.children[text] = c
	return c
}

func (l *fakeLocator) Filter(options ...playwright.LocatorFilterOptions) playwright.Locator {
	if len(options) == 0 || options[0].HasText == nil {
		return l
	}
	text := fmt.Sprint(options[0].HasText)
	if c, ok := l.children[text]; ok {
		return c
	}
	return &fakeLocator{page: l.page, selector: l.selector + "|" + text}
}

func (l *fakeLocator) First() playwright.Locator { return l }

func (l *fakeLocator) IsVisible(_ ...playwright.LocatorIsVisibleOptions) (bool, error) {
	return l.isVisible, nil
}

func (l *fakeLocator) Count() (int, error) { return l.count, nil }

func (l *fakeLocator) All() ([]playwright.Locator, error) {
	if l.items != nil {
		all := make([]playwright.Locator, len(l.items))
		for i, it := range l.items {
			all[i] = it
		}
		return all, nil
	}
	if l.count > 0 {
		return []playwright.Locator{l}, nil
	}
	return nil, nil
}

func (l *fakeLocator) WaitFor(_ ...playwright.LocatorWaitForOptions) error {
	if l.waitErr != nil {
		return l.waitErr
	}
	if !l.isVisible {
		return fmt.Errorf("waiting for %s: %w", l.selector, playwright.ErrTimeout)
	}
	return nil
}

func (l *fakeLocator) Click(options ...playwright.LocatorClickOptions) error {
	event := "click:" + l.selector
	if len(options) > 0 && options[0].Button == playwright.MouseButtonRight {
		event = "rightclick:" + l.selector
	}
	l.page.events = append(l.page.events, event)
	return l.clickErr
}

func (l *fakeLocator) Fill(value string, _ ...playwright.LocatorFillOptions) error {
	l.page.events = append(l.page.events, "fill:"+l.selector+"="+value)
	return nil
}

func (l *fakeLocator) Press(key string, _ ...playwright.LocatorPressOptions) error {
	l.page.events = append(l.page.events, "press:"+l.selector+"="+key)
	return nil
}

func (l *fakeLocator) PressSequentially(text string, _ ...playwright.LocatorPressSequentiallyOptions) error {
	l.page.events = append(l.page.events, "type:"+text)
	return nil
}

func (l *fakeLocator) InnerText(_ ...playwright.LocatorInnerTextOptions) (string, error) {
	return l.text, nil
}

func (l *fakeLocator) GetAttribute(name string, _ ...playwright.LocatorGetAttributeOptions) (string, error) {
	return l.attrs[name], nil
}

func (l *fakeLocator) BoundingBox(_ ...playwright.LocatorBoundingBoxOptions) (*playwright.Rect, error) {
	return l.box, nil
}

func (l *fakeLocator) Evaluate(_ string, _ interface{}, _ ...playwright.LocatorEvaluateOptions) (interface{}, error) {
	return l.tag, nil
}

func newTestSession(t *testing.T, page *fakePage) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	s := NewSession(page, Options{
		BaseURL:       "http://localhost:3000",
		ScreenshotDir: t.TempDir(),
		Output:        output.NewWithWriters(&buf, &buf, false),
	})
	return s, &buf
}

// zeroIntn makes generated names deterministic.
func zeroIntn(int) int { return 0 }
