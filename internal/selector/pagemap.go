package selector

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/crow/api/schemas"
)

// ParsePageMap decodes one page module. Entries are either a bare selector
// body or a mapping of selector attributes. Unknown top-level keys are
// rejected so that typos surface at load time.
func ParsePageMap(data []byte) (*schemas.PageElementMap, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var page schemas.PageElementMap
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode page map: %w", err)
	}
	for symbol, spec := range page.Elements {
		if strings.HasPrefix(symbol, schemas.SymbolMarker) {
			return nil, schemas.NewInvalidArgumentError(symbol, "page element names must not carry the symbol marker")
		}
		if spec.Selector == "" {
			return nil, schemas.NewInvalidArgumentError(symbol, "page element has an empty selector")
		}
	}
	if page.Elements == nil {
		page.Elements = map[string]schemas.Spec{}
	}
	return &page, nil
}

// LoadPageMap reads a page module from disk. A page without a name is named
// after its file.
func LoadPageMap(path string) (*schemas.PageElementMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page map %s: %w", path, err)
	}
	page, err := ParsePageMap(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if page.Name == "" {
		page.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return page, nil
}

// LoadPageMaps loads every *.yaml and *.yml file in dir, keyed by page name.
func LoadPageMaps(dir string) (map[string]*schemas.PageElementMap, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read page directory %s: %w", dir, err)
	}
	pages := make(map[string]*schemas.PageElementMap)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		page, err := LoadPageMap(filepath.Join(dir, entry.Name()))
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
