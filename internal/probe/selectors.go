package probe

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Target is a UI element located through an ordered list of candidate
// selectors. The first candidate with a visible match wins. HasText
// narrows every candidate to elements containing that text.
type Target struct {
	Description string   `yaml:"description"`
	Candidates  []string `yaml:"candidates"`
	HasText     string   `yaml:"has_text,omitempty"`
}

// Selector joins the candidates into one selector list, used where every
// match counts rather than the first.
func (t Target) Selector() string {
	return strings.Join(t.Candidates, ", ")
}

// TextTarget matches an element whose text is exactly text.
func TextTarget(description, text string) Target {
	return Target{
		Description: description,
		Candidates:  []string{`text="` + text + `"`},
	}
}

// Selectors holds the targets used by every probe step.
type Selectors struct {
	// Discovery inventory.
	ProjectButtons  Target `yaml:"project_buttons"`
	FolderButtons   Target `yaml:"folder_buttons"`
	Toolbar         Target `yaml:"toolbar"`
	StatusBar       Target `yaml:"status_bar"`
	VersionControls Target `yaml:"version_controls"`
	VersionButtons  Target `yaml:"version_buttons"`
	Buttons         Target `yaml:"buttons"`
	Inputs          Target `yaml:"inputs"`
	Links           Target `yaml:"links"`
	Menus           Target `yaml:"menus"`
	ProjectHeader   Target `yaml:"project_header"`
	NewButton       Target `yaml:"new_button"`

	// Editor.
	Editor      Target `yaml:"editor"`
	EditorInput Target `yaml:"editor_input"`

	// Project tree.
	NewProject  Target `yaml:"new_project"`
	ProjectName Target `yaml:"project_name"`
	NewFolder   Target `yaml:"new_folder"`
	FolderName  Target `yaml:"folder_name"`
	ContextMenu Target `yaml:"context_menu"`

	// Saving and versions.
	Save            Target `yaml:"save"`
	Description     Target `yaml:"description"`
	Confirm         Target `yaml:"confirm"`
	VersionSelector Target `yaml:"version_selector"`
	VersionOptions  Target `yaml:"version_options"`
	Compare         Target `yaml:"compare"`
	DiffViewer      Target `yaml:"diff_viewer"`
}

// DefaultSelectors returns the selectors for the Prompt Workbench UI.
func DefaultSelectors() Selectors {
	return Selectors{
		ProjectButtons: Target{
			Description: "Project buttons",
			Candidates:  []string{"[data-testid]", "button"},
			HasText:     "项目",
		},
		FolderButtons: Target{
			Description: "Folder buttons",
			Candidates:  []string{"button"},
			HasText:     "文件夹",
		},
		Toolbar: Target{
			Description: "Toolbar",
			Candidates:  []string{`[data-testid*="toolbar"]`, ".toolbar", ".editor-toolbar"},
		},
		StatusBar: Target{
			Description: "Status bar",
			Candidates:  []string{`[data-testid*="status"]`, ".status", ".editor-status"},
		},
		VersionControls: Target{
			Description: "Version selector elements",
			Candidates:  []string{"select", `[data-testid*="version"]`},
		},
		VersionButtons: Target{
			Description: "Version buttons",
			Candidates:  []string{"button"},
			HasText:     "版本",
		},
		Buttons: Target{Description: "Buttons", Candidates: []string{"button"}},
		Inputs:  Target{Description: "Input fields", Candidates: []string{"input", "textarea", "select"}},
		Links:   Target{Description: "Links", Candidates: []string{"a[href]"}},
		Menus: Target{
			Description: "Dropdown/Context menus",
			Candidates:  []string{`[role="menu"]`, ".dropdown", ".context-menu"},
		},
		ProjectHeader: Target{Description: "Project management header", Candidates: []string{"text=项目管理"}},
		NewButton: Target{
			Description: "New button",
			Candidates:  []string{`button[title*="新建"]`, `button:has-text("新建")`},
		},

		Editor:      Target{Description: "Monaco editor", Candidates: []string{".monaco-editor"}},
		EditorInput: Target{Description: "Editor textarea", Candidates: []string{".monaco-editor textarea"}},

		NewProject: Target{
			Description: "New project button",
			Candidates:  []string{`button[title*="新建项目"]`, `button:has([data-lucide="plus"])`},
		},
		ProjectName: Target{
			Description: "Project input field",
			Candidates:  []string{`input[placeholder*="项目名称"]`, `input[placeholder*="项目"]`},
		},
		NewFolder: Target{
			Description: "New folder button",
			Candidates:  []string{`button[title*="新建文件夹"]`, `button:has([data-lucide="folder-plus"])`},
		},
		FolderName: Target{
			Description: "Folder input field",
			Candidates:  []string{`input[placeholder*="文件夹名称"]`, `input[placeholder*="文件夹"]`},
		},
		ContextMenu: Target{
			Description: "Context menu",
			Candidates:  []string{`[role="menu"]`, ".context-menu", `div:has-text("重命名"):has-text("删除")`},
		},

		Save: Target{
			Description: "Save button",
			Candidates:  []string{`button:has-text("保存")`, `button[title*="保存"]`, `button:has([data-lucide="save"])`},
		},
		Description: Target{
			Description: "Version description input",
			Candidates:  []string{`input[placeholder*="描述"]`, `textarea[placeholder*="描述"]`},
		},
		Confirm: Target{
			Description: "Confirm button",
			Candidates:  []string{`button:has-text("确定")`, `button:has-text("保存")`, `button:has-text("确认")`},
		},
		VersionSelector: Target{
			Description: "Version selector",
			Candidates:  []string{"select", `[data-testid*="version"]`, `button:has-text("v")`},
		},
		VersionOptions: Target{
			Description: "Version options",
			Candidates:  []string{"option", `[role="option"]`, `div:has-text("v1")`, `div:has-text("v2")`},
		},
		Compare: Target{
			Description: "Compare button",
			Candidates:  []string{`button:has-text("比较")`, `button:has-text("diff")`, `button[title*="比较"]`},
		},
		DiffViewer: Target{
			Description: "Diff viewer",
			Candidates:  []string{".diff-viewer", `[class*="diff"]`, ".react-diff-viewer"},
		},
	}
}

// LoadSelectors reads a YAML file of selector overrides on top of the
// defaults. Targets absent from the file keep their default candidates.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("failed to read selectors file: %w", err)
	}

	var overrides map[string]Target
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return sel, fmt.Errorf("failed to parse selectors file: %w", err)
	}

	byKey := sel.byKey()
	for key, t := range overrides {
		dst, ok := byKey[key]
		if !ok {
			return sel, fmt.Errorf("selectors file: unknown target %q", key)
		}
		if len(t.Candidates) == 0 {
			return sel, fmt.Errorf("selectors file: target %q has no candidates", key)
		}
		if t.Description == "" {
			t.Description = dst.Description
		}
		*dst = t
	}
	return sel, nil
}

func (s *Selectors) byKey() map[string]*Target {
	return map[string]*Target{
		"project_buttons":  &s.ProjectButtons,
		"folder_buttons":   &s.FolderButtons,
		"toolbar":          &s.Toolbar,
		"status_bar":       &s.StatusBar,
		"version_controls": &s.VersionControls,
		"version_buttons":  &s.VersionButtons,
		"buttons":          &s.Buttons,
		"inputs":           &s.Inputs,
		"links":            &s.Links,
		"menus":            &s.Menus,
		"project_header":   &s.ProjectHeader,
		"new_button":       &s.NewButton,
		"editor":           &s.Editor,
		"editor_input":     &s.EditorInput,
		"new_project":      &s.NewProject,
		"project_name":     &s.ProjectName,
		"new_folder":       &s.NewFolder,
		"folder_name":      &s.FolderName,
		"context_menu":     &s.ContextMenu,
		"save":             &s.Save,
		"description":      &s.Description,
		"confirm":          &s.Confirm,
		"version_selector": &s.VersionSelector,
		"version_options":  &s.VersionOptions,
		"compare":          &s.Compare,
		"diff_viewer":      &s.DiffViewer,
	}
}
