package probe

import (
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/promptworkbench/wbtest/internal/suite"
)

const editorSample = "# Test Prompt\n\nThis is a test prompt for automated testing."

// ProjectManagement creates a project and a folder, types into the
// editor, opens the context menu and saves. intn seeds the random names
// and may be nil.
func ProjectManagement(sel Selectors, intn func(int) int) *Scenario {
	project := RandomName("TestProject", 6, intn)
	folder := RandomName("TestFolder", 6, intn)
	projectText := TextTarget("Created project", project)

	return &Scenario{
		Name:      suite.ProbeProjectManagement,
		Title:     "🚀 Starting Project Management Tests...",
		Strict:    true,
		ErrorShot: "project_management_error.png",
		Done:      "🎉 Project Management Tests Completed!",
		Steps: []Step{
			{Name: "load", Halt: true, Run: loadApplication},
			{
				Name:    "create project",
				Heading: "📝 Test 1: Creating new project...",
				Run: func(s *Session) error {
					return createEntry(s, sel.NewProject, sel.ProjectName, project, "Project")
				},
			},
			{
				Name:    "create folder",
				Heading: "📁 Test 2: Creating folder...",
				Run: func(s *Session) error {
					return createEntry(s, sel.NewFolder, sel.FolderName, folder, "Folder")
				},
			},
			{
				Name:    "select project",
				Heading: "📄 Test 3: Testing project selection...",
				Needs:   []string{"create project"},
				Run:     func(s *Session) error { return selectAndType(s, sel, projectText) },
			},
			{
				Name:    "context menu",
				Heading: "🖱️  Test 4: Testing context menu...",
				Needs:   []string{"create project"},
				Run:     func(s *Session) error { return openContextMenu(s, sel.ContextMenu, projectText) },
			},
			{
				Name:    "save",
				Heading: "💾 Test 5: Testing save functionality...",
				Run: func(s *Session) error {
					btn, err := s.Find(sel.Save)
					if err != nil {
						return err
					}
					if err := btn.Click(); err != nil {
						return err
					}
					s.Output().Pass("Clicked save button")
					s.Settle(2 * time.Second)
					s.Output().Pass("Save operation completed")
					return nil
				},
			},
			{
				Name: "final state",
				Run: func(s *Session) error {
					if _, err := s.Screenshot("project_management_test_final.png", true); err != nil {
						return err
					}
					s.Output().Snapshot("Final test screenshot saved")
					return nil
				},
			},
		},
	}
}

func loadApplication(s *Session) error {
	if err := s.Navigate(); err != nil {
		return err
	}
	s.Output().Pass("Application loaded")
	return nil
}

// createEntry clicks button, types name into the input that appears and
// checks the new entry shows up in the tree.
func createEntry(s *Session, button, input Target, name, kind string) error {
	out := s.Output()

	btn, err := s.Find(button)
	if err != nil {
		return err
	}
	if err := btn.Click(); err != nil {
		return err
	}
	out.Pass("Clicked %s", lowerFirst(button.Description))
	s.Settle(500 * time.Millisecond)

	field, err := s.Find(input)
	if err != nil {
		return err
	}
	if err := field.Fill(name); err != nil {
		return err
	}
	out.Pass("Entered %s name: %s", lowerFirst(kind), name)

	if err := field.Press("Enter"); err != nil {
		return err
	}
	s.Settle(time.Second)

	_, ok, err := s.Optional(TextTarget(kind, name))
	if err != nil {
		return err
	}
	if !ok {
		return Check("%s not found in list", kind)
	}
	out.Pass("%s created successfully", kind)
	return nil
}

func selectAndType(s *Session, sel Selectors, project Target) error {
	out := s.Output()

	link, err := s.Find(project)
	if err != nil {
		return err
	}
	if err := link.Click(); err != nil {
		return err
	}
	out.Pass("Selected project")
	s.Settle(time.Second)

	n, err := s.Count(sel.Editor)
	if err != nil {
		return err
	}
	if n == 0 {
		return Check("Monaco editor not found")
	}
	out.Pass("Monaco editor is active")

	textarea, err := s.Find(sel.EditorInput)
	if err != nil {
		return err
	}
	if err := textarea.Click(); err != nil {
		return err
	}
	if err := textarea.PressSequentially(editorSample); err != nil {
		return err
	}
	out.Pass("Successfully typed in editor")
	s.Settle(time.Second)
	return nil
}

func openContextMenu(s *Session, menu, project Target) error {
	entry, err := s.Find(project)
	if err != nil {
		return err
	}
	if err := entry.Click(playwright.LocatorClickOptions{Button: playwright.MouseButtonRight}); err != nil {
		return err
	}
	s.Settle(500 * time.Millisecond)

	if _, err := s.Find(menu); err != nil {
		return err
	}
	s.Output().Pass("Context menu appeared")

	if err := s.ClickAway(); err != nil {
		return err
	}
	s.Settle(500 * time.Millisecond)
	s.Output().Pass("Context menu closed")
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'A' && c <= 'Z' {
		return string(c+'a'-'A') + s[1:]
	}
	return s
}
