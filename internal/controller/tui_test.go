package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUI_WaitPrintsBufferedOutput(t *testing.T) {
	var buf bytes.Buffer

	tui := NewTUI(&buf)
	ctx := context.Background()

	require.NoError(t, tui.Start(ctx, WithMode(ModeList)))
	require.NoError(t, tui.DisplayPackages(ctx, []PackageRow{{Package: "core_user", Functions: 1, Callable: 1}}))

	if buf.Len() != 0 {
		t.Fatalf("output written before Wait: %q", buf.String())
	}

	tui.Wait(ctx)
	tui.Close(ctx)

	assert.Contains(t, buf.String(), "core_user")

	// The buffer is drained by Wait.
	buf.Reset()
	tui.Wait(ctx)
	assert.Empty(t, buf.String())
}

func TestTUI_DisplayCallResult(t *testing.T) {
	var buf bytes.Buffer

	tui := NewTUI(&buf)
	ctx := context.Background()

	require.NoError(t, tui.DisplayCallResult(ctx, "core_webservice_get_site_info", []byte(`{"release":"4.3"}`)))
	tui.Wait(ctx)

	assert.Contains(t, buf.String(), "core_webservice_get_site_info")
	assert.Contains(t, buf.String(), `{"release":"4.3"}`)
}

func TestTUI_CanceledContext(t *testing.T) {
	var buf bytes.Buffer

	tui := NewTUI(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, tui.DisplayExtraction(ctx, ExtractionSummary{}), context.Canceled)
	tui.Wait(ctx)
	assert.Empty(t, buf.String())
}

func TestPagerModel(t *testing.T) {
	content := strings.Repeat("line\n", 50)
	model := newPagerModel(ModeExtract.title(), content, 80, 10)

	assert.Nil(t, model.Init())
	assert.Contains(t, model.View(), "moodlekit - Extraction")
	assert.True(t, model.viewport.AtTop())

	next, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	model = next.(pagerModel)
	assert.True(t, model.viewport.AtBottom())

	next, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	model = next.(pagerModel)
	assert.Equal(t, 40, model.viewport.Width)
	assert.Equal(t, 17, model.viewport.Height)

	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	model = next.(pagerModel)
	assert.True(t, model.quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, model.View())
}
