package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/config"
)

func flagValue(flags []allocatorFlag, name string) (any, bool) {
	var value any
	found := false
	for _, f := range flags {
		if f.Name == name {
			value, found = f.Value, true
		}
	}
	return value, found
}

func TestAllocatorFlags(t *testing.T) {
	t.Run("Headless", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Headless: true})
		_, overridden := flagValue(flags, "headless")
		assert.False(t, overridden)
		v, _ := flagValue(flags, "enable-automation")
		assert.Equal(t, false, v)
		v, _ = flagValue(flags, "disable-gpu")
		assert.Equal(t, true, v)
	})

	t.Run("Headed", func(t *testing.T) {
		v, ok := flagValue(allocatorFlags(config.BrowserConfig{}), "headless")
		require.True(t, ok)
		assert.Equal(t, false, v)
	})

	t.Run("CacheDisabled", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{DisableCache: true})
		for _, name := range []string{"disable-cache", "disk-cache-size", "media-cache-size"} {
			_, ok := flagValue(flags, name)
			assert.True(t, ok, name)
		}
	})

	t.Run("IgnoreTLSErrors", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{IgnoreTLSErrors: true})
		_, ok := flagValue(flags, "ignore-certificate-errors")
		assert.True(t, ok)
		_, ok = flagValue(flags, "allow-insecure-localhost")
		assert.True(t, ok)
	})

	t.Run("CustomArgs", func(t *testing.T) {
		flags := allocatorFlags(config.BrowserConfig{Args: []string{"--lang=fr", "--mute-audio", "--"}})
		v, _ := flagValue(flags, "lang")
		assert.Equal(t, "fr", v)
		v, _ = flagValue(flags, "mute-audio")
		assert.Equal(t, true, v)
		_, ok := flagValue(flags, "")
		assert.False(t, ok)
	})

	t.Run("Viewport", func(t *testing.T) {
		v, _ := flagValue(allocatorFlags(config.BrowserConfig{Viewport: map[string]int{"width": 1280, "height": 720}}), "window-size")
		assert.Equal(t, "1280,720", v)

		_, ok := flagValue(allocatorFlags(config.BrowserConfig{Viewport: map[string]int{"width": 1280}}), "window-size")
		assert.False(t, ok)
	})

	t.Run("OptionsExtendDefaults", func(t *testing.T) {
		cfg := config.BrowserConfig{ExecPath: "/usr/bin/chromium", Headless: true}
		opts := DefaultAllocatorOptions(cfg)
		assert.Len(t, opts, len(chromedp.DefaultExecAllocatorOptions)+1+len(allocatorFlags(cfg)))
	})
}

func TestDownloadBehavior(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads", "today")
	params, err := downloadBehavior(dir)
	require.NoError(t, err)

	assert.Equal(t, browser.SetDownloadBehaviorBehaviorAllow, params.Behavior)
	assert.Equal(t, dir, params.DownloadPath)
	assert.DirExists(t, dir)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	_, err = downloadBehavior(filepath.Join(blocker, "downloads"))
	assert.ErrorContains(t, err, "failed to create download directory")
}

func TestKeyEvent(t *testing.T) {
	enter := keyEvent(input.KeyDown, "Enter", 0)
	assert.Equal(t, "Enter", enter.Code)
	assert.EqualValues(t, 13, enter.WindowsVirtualKeyCode)
	assert.Equal(t, "\r", enter.Text)

	up := keyEvent(input.KeyUp, "Enter", 0)
	assert.Empty(t, up.Text)

	a := keyEvent(input.KeyDown, "a", input.ModifierShift)
	assert.Equal(t, "a", a.Text)
	assert.EqualValues(t, 'A', a.WindowsVirtualKeyCode)
	assert.Equal(t, input.ModifierShift, a.Modifiers)

	assert.Equal(t, input.ModifierCtrl, modifierFor("Control"))
	assert.Equal(t, input.Modifier(0), modifierFor("Enter"))
}

func TestScripts(t *testing.T) {
	wrapped := wrapScript("return arguments[0] + 1;", []any{41})
	assert.Equal(t, "(function() {\nreturn arguments[0] + 1;\n}).apply(null, [41])", wrapped)
	assert.Contains(t, wrapScript("return 1;", nil), ".apply(null, [])")

	annotate := annotateScript(`say "hi"`)
	assert.Contains(t, annotate, `"`+schemas.ActionTextBoxID+`"`)
	assert.Contains(t, annotate, `"say \"hi\""`)
	assert.Contains(t, clearAnnotationScript(), schemas.ActionTextBoxID)
}

// recordingExecutor counts which executor path an element used.
type recordingExecutor struct {
	foreground, background int
	err                    error
}

func (r *recordingExecutor) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	r.foreground++
	return r.err
}

func (r *recordingExecutor) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	r.background++
	return r.err
}

func TestElementExecutorPaths(t *testing.T) {
	rec := &recordingExecutor{}
	el := &Element{exec: rec, node: &cdp.Node{LocalName: "button"}, logger: zaptest.NewLogger(t)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, el.Highlight(ctx))
	require.NoError(t, el.Unhighlight(ctx))
	assert.Equal(t, 1, rec.foreground)
	assert.Equal(t, 1, rec.background)

	rec.err = errors.New("target closed")
	_, err := el.Text(context.Background())
	assert.ErrorContains(t, err, "failed to read text")
	assert.ErrorIs(t, err, rec.err)

	err = el.Click(context.Background())
	assert.ErrorContains(t, err, "failed to click button")
}
