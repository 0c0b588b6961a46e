package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
	"github.com/promptworkbench/wbtest/internal/suite"
)

const inventoryButtonLimit = 10

// Discovery inventories the workbench UI and saves screenshots and the
// page source. It is lenient: unexpected errors are logged, not returned.
func Discovery(sel Selectors) *Scenario {
	return &Scenario{
		Name:      suite.ProbeDiscovery,
		Strict:    false,
		Headless:  true,
		ErrorShot: "error_state.png",
		Steps: []Step{
			{Name: "load", Halt: true, Run: discoverLoad},
			{
				Name:    "project panel",
				Heading: "🔍 Analyzing Project Management Panel...",
				Run: func(s *Session) error {
					if err := reportCount(s, sel.ProjectButtons, "Found %d project-related buttons"); err != nil {
						return err
					}
					return reportCount(s, sel.FolderButtons, "Found %d folder-related buttons")
				},
			},
			{
				Name:    "editor",
				Heading: "🔍 Analyzing Editor Area...",
				Run:     func(s *Session) error { return discoverEditor(s, sel.Editor) },
			},
			{
				Name: "editor chrome",
				Run: func(s *Session) error {
					if err := reportCount(s, sel.Toolbar, "Found %d toolbar elements"); err != nil {
						return err
					}
					return reportCount(s, sel.StatusBar, "Found %d status bar elements")
				},
			},
			{
				Name:    "version controls",
				Heading: "🔍 Analyzing Version Control...",
				Run: func(s *Session) error {
					if err := reportCount(s, sel.VersionControls, "Found %d version selector elements"); err != nil {
						return err
					}
					return reportCount(s, sel.VersionButtons, "Found %d version-related buttons")
				},
			},
			{
				Name:    "inventory",
				Heading: "🔍 Complete Interactive Elements Inventory...",
				Run:     func(s *Session) error { return discoverInventory(s, sel) },
			},
			{
				Name:    "interactions",
				Heading: "🧪 Testing Basic Interactions...",
				Run:     func(s *Session) error { return discoverInteractions(s, sel) },
			},
			{Name: "final state", Run: discoverFinal},
		},
	}
}

func discoverLoad(s *Session) error {
	if err := s.Navigate(); err != nil {
		return err
	}
	s.Output().Pass("Page loaded successfully")
	if _, err := s.Screenshot("initial_load.png", true); err != nil {
		return err
	}
	s.Output().Snapshot("Initial screenshot saved")
	return nil
}

func reportCount(s *Session, t Target, format string) error {
	n, err := s.Count(t)
	if err != nil {
		return err
	}
	s.Output().Println(format, n)
	return nil
}

func discoverEditor(s *Session, editor Target) error {
	n, err := s.Count(editor)
	if err != nil {
		return err
	}
	if n == 0 {
		return wberrors.ElementNotFound(editor.Description)
	}
	s.Output().Pass("Monaco Editor detected")

	box, err := s.Query(editor).First().BoundingBox()
	if err != nil {
		return err
	}
	if box != nil {
		s.Output().Println("Editor dimensions: %gx%g", box.Width, box.Height)
	}
	return nil
}

func discoverInventory(s *Session, sel Selectors) error {
	out := s.Output()

	buttons, total, err := s.Visible(sel.Buttons)
	if err != nil {
		return err
	}
	out.Println("Buttons: %d visible out of %d total", len(buttons), total)
	for i, btn := range buttons {
		if i == inventoryButtonLimit {
			break
		}
		label, err := buttonLabel(btn, i)
		if err != nil {
			return err
		}
		out.Detail("%s", label)
	}

	inputs, total, err := s.Visible(sel.Inputs)
	if err != nil {
		return err
	}
	out.Println("")
	out.Println("Input fields: %d visible out of %d total", len(inputs), total)
	for _, in := range inputs {
		name, err := firstAttribute(in, "name", "placeholder")
		if err != nil {
			return err
		}
		if name == "" {
			name = "[unnamed]"
		}
		kind, err := inputKind(in)
		if err != nil {
			return err
		}
		out.Detail("%s (%s)", name, kind)
	}

	links, err := s.Count(sel.Links)
	if err != nil {
		return err
	}
	out.Println("")
	out.Println("Links: %d found", links)

	menus, err := s.Count(sel.Menus)
	if err != nil {
		return err
	}
	out.Println("Dropdown/Context menus: %d found", menus)
	return nil
}

func discoverInteractions(s *Session, sel Selectors) error {
	header, ok, err := s.Optional(sel.ProjectHeader)
	if err != nil {
		return err
	}
	if ok {
		if err := header.Click(); err != nil {
			return err
		}
		s.Output().Pass("Clicked project management header")
		s.Settle(time.Second)
	}

	_, ok, err = s.Optional(sel.NewButton)
	if err != nil {
		return err
	}
	if ok {
		s.Output().Pass("Found new project button")
		if _, err := s.Screenshot("before_new_project.png", false); err != nil {
			return err
		}
	}
	return nil
}

func discoverFinal(s *Session) error {
	out := s.Output()
	if _, err := s.Screenshot("final_state.png", true); err != nil {
		return err
	}
	out.Snapshot("Final screenshot saved")

	if _, err := s.SavePageSource("page_source.html"); err != nil {
		return err
	}
	out.Println("💾 Page HTML saved for analysis")

	out.Heading("✅ Discovery completed successfully!")
	out.Println("Screenshots saved in %s/", s.screenshotDir)
	return nil
}

func buttonLabel(btn playwright.Locator, i int) (string, error) {
	text, err := btn.InnerText()
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text != "" {
		return text, nil
	}
	title, err := btn.GetAttribute("title")
	if err != nil {
		return "", err
	}
	if title != "" {
		return title, nil
	}
	return fmt.Sprintf("[Button %d]", i), nil
}

// firstAttribute returns the first non-empty attribute among names.
func firstAttribute(loc playwright.Locator, names ...string) (string, error) {
	for _, name := range names {
		v, err := loc.GetAttribute(name)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}
	return "", nil
}

// inputKind is the type attribute, or the lowercase tag name for elements
// without one.
func inputKind(loc playwright.Locator) (string, error) {
	kind, err := loc.GetAttribute("type")
	if err != nil || kind != "" {
		return kind, err
	}
	tag, err := loc.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return "", err
	}
	name, _ := tag.(string)
	return name, nil
}
