// File: cmd/page.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/browser/session"
	"github.com/xkilldash9x/crow/internal/browser/snapshot"
	"github.com/xkilldash9x/crow/internal/config"
	"github.com/xkilldash9x/crow/internal/interact"
	"github.com/xkilldash9x/crow/internal/retry"
	"github.com/xkilldash9x/crow/internal/selector"
)

// openedPage bundles a driver with the runner, observer and actor bound to
// it.
type openedPage struct {
	driver   schemas.Driver
	closer   io.Closer
	runner   *interact.Runner
	observer *interact.Observer
	actor    *interact.Actor
}

func (p *openedPage) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// pageOptions are the flags shared by every command that loads a page.
type pageOptions struct {
	static bool
	// page is a page module file or the name of a configured page.
	page string
}

// isRemote reports whether target must be fetched over the network.
func isRemote(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// loadPageCatalog loads every page module configured under pages, keyed by
// page name.
func loadPageCatalog(pc config.PagesConfig) (map[string]*schemas.PageElementMap, error) {
	pages := make(map[string]*schemas.PageElementMap)
	if pc.Dir != "" {
		var err error
		if pages, err = selector.LoadPageMaps(pc.Dir); err != nil {
			return nil, err
		}
	}
	for _, file := range pc.Files {
		page, err := selector.LoadPageMap(file)
		if err != nil {
			return nil, err
		}
		if _, dup := pages[page.Name]; dup {
			return nil, schemas.NewInvalidArgumentError(page.Name, "page is defined more than once")
		}
		pages[page.Name] = page
	}
	return pages, nil
}

// loadPageMap returns the page element map named by ref, or nil when ref is
// empty. ref is either a page module file or the name of a page configured
// under pages.dir or pages.files.
func loadPageMap(pc config.PagesConfig, ref string) (*schemas.PageElementMap, error) {
	if ref == "" {
		return nil, nil
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return selector.LoadPageMap(ref)
	}
	pages, err := loadPageCatalog(pc)
	if err != nil {
		return nil, err
	}
	page, ok := pages[ref]
	if !ok {
		known := slices.Sorted(maps.Keys(pages))
		return nil, fmt.Errorf("page %q is neither a file nor a configured page (known pages: %s)", ref, strings.Join(known, ", "))
	}
	return page, nil
}

// openPage loads target either in a live browser session or, for local
// files and --static runs, in the static document driver.
func openPage(ctx context.Context, cfg config.Interface, target string, po pageOptions, logger *zap.Logger) (*openedPage, error) {
	page, err := loadPageMap(cfg.Pages(), po.page)
	if err != nil {
		return nil, err
	}

	var (
		driver schemas.Driver
		closer io.Closer
	)
	if isRemote(target) && !po.static {
		s, err := session.New(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Navigate(ctx, target); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open %s: %w", target, err)
		}
		driver, closer = s, s
	} else {
		d, err := snapshot.Open(ctx, logger, target)
		if err != nil {
			return nil, err
		}
		driver, closer = d, d
	}

	resolver, err := selector.NewResolver(logger, cfg.Selector().CacheSize)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// The on-page overlay only helps someone watching a real window.
	ic := cfg.Interaction()
	if po.static || !isRemote(target) {
		ic.ShowActionText = false
	}

	runner := interact.NewRunner(driver, resolver, ic, logger).WithPage(page)
	engine := retry.NewEngine(logger, retry.WithSleeper(driver))
	observer := interact.NewObserver(runner, engine, retry.FromConfig(cfg.Retry()), logger).WithDownloadDir(ic.DownloadDir)
	actor := interact.NewActor(runner, ic.ScreenshotDir, logger)

	return &openedPage{driver: driver, closer: closer, runner: runner, observer: observer, actor: actor}, nil
}
