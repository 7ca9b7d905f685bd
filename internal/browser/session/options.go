// internal/browser/session/options.go
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/crow/internal/config"
)

// allocatorFlag is one Chrome command line switch.
type allocatorFlag struct {
	Name  string
	Value any
}

// allocatorFlags lists the switches derived from the browser configuration,
// in the order they are applied on top of chromedp's defaults.
func allocatorFlags(cfg config.BrowserConfig) []allocatorFlag {
	flags := []allocatorFlag{
		// The overlay is ours to draw; hide the automation infobar.
		{"enable-automation", false},
		{"disable-extensions", true},
		{"disable-gpu", cfg.Headless},
	}
	// The defaults already start headless; only override when asked not to.
	if !cfg.Headless {
		flags = append(flags, allocatorFlag{"headless", false})
	}

	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			allocatorFlag{"ignore-certificate-errors", true},
			allocatorFlag{"allow-insecure-localhost", true},
		)
	}

	if cfg.DisableCache {
		flags = append(flags,
			allocatorFlag{"disable-cache", true},
			allocatorFlag{"disk-cache-size", "0"},
			allocatorFlag{"media-cache-size", "0"},
		)
	}

	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		flags = append(flags, allocatorFlag{"window-size", fmt.Sprintf("%d,%d", w, h)})
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, allocatorFlag{name, parts[1]})
		} else {
			flags = append(flags, allocatorFlag{name, true})
		}
	}

	// Containers on Linux rarely grant the sandbox the privileges it needs.
	if runtime.GOOS == "linux" {
		flags = append(flags,
			allocatorFlag{"no-sandbox", true},
			allocatorFlag{"disable-dev-shm-usage", true},
		)
	}
	return flags
}

// DefaultAllocatorOptions assembles the exec allocator options for a
// session from the browser configuration.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	return opts
}

// downloadBehavior lets the browser save downloads into dir, which is
// created when missing.
func downloadBehavior(dir string) (*browser.SetDownloadBehaviorParams, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid download directory %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).WithDownloadPath(abs), nil
}
