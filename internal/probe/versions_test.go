package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wberrors "github.com/promptworkbench/wbtest/internal/errors"
)

const versionOptionsSelector = `option, [role="option"], div:has-text("v1"), div:has-text("v2")`

func versionPage(t *testing.T) *fakePage {
	t.Helper()
	page := newFakePage()
	page.visible(`button[title*="新建项目"]`)
	page.visible(`input[placeholder*="项目名称"]`)
	page.visible(`text="VersionTest_1000"`)
	page.visible(".monaco-editor")
	page.visible(".monaco-editor textarea")
	page.visible(`button:has-text("保存")`)
	page.visible(`input[placeholder*="描述"]`)
	page.visible(`button:has-text("确定")`)
	page.visible("select")
	page.node(versionOptionsSelector).items = []*fakeLocator{
		{page: page, selector: "option-v2", text: "v2 - Added risk management", isVisible: true},
		{page: page, selector: "option-v1", text: "v1 - Initial", isVisible: true},
	}
	page.editor = firstVersionContent
	return page
}

func outcomeMap(outcomes []Outcome) map[string]Status {
	m := make(map[string]Status, len(outcomes))
	for _, o := range outcomes {
		m[o.Step] = o.Status
	}
	return m
}

func TestVersionControl_HappyPath(t *testing.T) {
	page := versionPage(t)
	s, buf := newTestSession(t, page)

	sc := VersionControl(DefaultSelectors(), zeroIntn)
	outcomes, err := Guard(context.Background(), s, sc)
	require.NoError(t, err)
	require.Len(t, outcomes, len(sc.Steps))
	for _, o := range outcomes {
		assert.Equal(t, Passed, o.Status, "step %s", o.Step)
	}

	assert.Contains(t, page.events, "key:Control+a")
	assert.Contains(t, page.events, "type:"+firstVersionContent)
	assert.Contains(t, page.events, "key:Control+End")
	assert.Contains(t, page.events, "type:"+secondVersionContent)
	assert.Contains(t, page.events, `fill:input[placeholder*="描述"]=Initial trading strategy prompt`)
	assert.Contains(t, page.events, `fill:input[placeholder*="描述"]=Added risk management and market conditions`)
	assert.Contains(t, page.events, "click:option-v1")
	assert.NotContains(t, page.events, "click:option-v2")
	assert.Equal(t, []string{"version_control_test_final.png"}, page.shots)

	got := buf.String()
	for _, want := range []string{
		"✅ Created test project: VersionTest_1000",
		"✅ Selected test project",
		"✅ Added content to editor",
		"✅ Saved version v1 with description",
		"✅ Modified content for v2",
		"✅ Found 2 version options",
		"✅ Selected version 1",
		"✅ Version switching works - content changed to v1",
		"Version comparison feature not visible",
		"🎉 Version Control Tests Completed!",
	} {
		assert.Contains(t, got, want)
	}
}

func TestVersionControl_EditorTimeoutFails(t *testing.T) {
	page := versionPage(t)
	delete(page.elements, ".monaco-editor")
	s, buf := newTestSession(t, page)

	outcomes, err := Guard(context.Background(), s, VersionControl(DefaultSelectors(), zeroIntn))
	require.Error(t, err)
	assert.True(t, wberrors.IsKind(err, wberrors.KindTimeout))

	assert.Equal(t, "select project", outcomes[len(outcomes)-1].Step)
	assert.Equal(t, []string{"version_control_error.png"}, page.shots)
	assert.Contains(t, buf.String(), "❌ Error during version-control: timed out waiting for Monaco editor")
	assert.NotContains(t, buf.String(), "Completed")
}

func TestVersionControl_NoEditorTextareaEndsEarly(t *testing.T) {
	page := versionPage(t)
	delete(page.elements, ".monaco-editor textarea")
	s, buf := newTestSession(t, page)

	outcomes, err := Guard(context.Background(), s, VersionControl(DefaultSelectors(), zeroIntn))
	require.NoError(t, err)

	assert.Equal(t, Missing, outcomes[len(outcomes)-1].Status)
	assert.Equal(t, "first version", outcomes[len(outcomes)-1].Step)
	assert.Empty(t, page.shots)
	assert.Contains(t, buf.String(), "❌ Editor textarea not found")
	assert.NotContains(t, buf.String(), "Completed")
}

func TestVersionControl_NoProjectButtonEndsEarly(t *testing.T) {
	page := versionPage(t)
	delete(page.elements, `button[title*="新建项目"]`)
	s, _ := newTestSession(t, page)

	outcomes, err := Guard(context.Background(), s, VersionControl(DefaultSelectors(), zeroIntn))
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	assert.Equal(t, Missing, outcomeMap(outcomes)["create project"])
}

func TestVersionControl_ContentChecks(t *testing.T) {
	tests := []struct {
		name    string
		content interface{}
		status  Status
		want    string
	}{
		{"still second version", firstVersionContent + secondVersionContent, Passed, "Content found but may not have switched versions"},
		{"empty editor", "", Failed, "❌ Could not retrieve editor content"},
		{"no monaco", nil, Failed, "❌ Could not retrieve editor content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := versionPage(t)
			page.editor = tt.content
			s, buf := newTestSession(t, page)

			outcomes, err := Guard(context.Background(), s, VersionControl(DefaultSelectors(), zeroIntn))
			require.NoError(t, err)
			assert.Equal(t, tt.status, outcomeMap(outcomes)["verify content"])
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestVersionControl_SaveWithoutDialog(t *testing.T) {
	page := versionPage(t)
	delete(page.elements, `input[placeholder*="描述"]`)
	s, buf := newTestSession(t, page)

	_, err := Guard(context.Background(), s, VersionControl(DefaultSelectors(), zeroIntn))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✅ Version v1 saved without description dialog")
	assert.Contains(t, buf.String(), "✅ Version v2 saved without description dialog")
}

func TestVersionControl_CompareView(t *testing.T) {
	page := versionPage(t)
	page.visible(`button:has-text("比较")`)
	s, buf := newTestSession(t, page)

	outcomes, err := Guard(context.Background(), s, VersionControl(DefaultSelectors(), zeroIntn))
	require.NoError(t, err)
	assert.Equal(t, Missing, outcomeMap(outcomes)["compare"])
	assert.Contains(t, buf.String(), "✅ Found and clicked diff/compare button")
	assert.Contains(t, buf.String(), "❌ Diff viewer not found")

	page = versionPage(t)
	page.visible(`button:has-text("比较")`)
	page.visible(".diff-viewer")
	s, buf = newTestSession(t, page)

	outcomes, err = Guard(context.Background(), s, VersionControl(DefaultSelectors(), zeroIntn))
	require.NoError(t, err)
	assert.Equal(t, Passed, outcomeMap(outcomes)["compare"])
	assert.Contains(t, buf.String(), "✅ Diff viewer displayed")
}
