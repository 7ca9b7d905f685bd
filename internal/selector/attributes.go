package selector

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/crow/api/schemas"
)

// Attribute names accepted by Attribute and SetAttribute.
const (
	AttrSelector               = "selector"
	AttrLocateStrategy         = "locateStrategy"
	AttrIndex                  = "index"
	AttrAbortOnFailure         = "abortOnFailure"
	AttrTimeout                = "timeout"
	AttrRetryInterval          = "retryInterval"
	AttrSuppressNotFoundErrors = "suppressNotFoundErrors"
	AttrNeedVisible            = "needVisible"
	AttrNeedHighlight          = "needHighlight"
	AttrName                   = "name"
)

var whitelist = map[string]struct{}{
	AttrSelector: {}, AttrLocateStrategy: {}, AttrIndex: {}, AttrAbortOnFailure: {},
	AttrTimeout: {}, AttrRetryInterval: {}, AttrSuppressNotFoundErrors: {},
	AttrNeedVisible: {}, AttrNeedHighlight: {}, AttrName: {},
}

// IsAttribute reports whether name is a recognized selector attribute.
func IsAttribute(name string) bool {
	_, ok := whitelist[name]
	return ok
}

// Attributes lists the recognized attribute names in sorted order.
func Attributes() []string {
	names := make([]string, 0, len(whitelist))
	for name := range whitelist {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attribute reads one attribute of sel.
func Attribute(sel schemas.Selector, name string) (any, error) {
	switch name {
	case AttrSelector:
		return sel.Selector, nil
	case AttrLocateStrategy:
		return sel.LocateStrategy, nil
	case AttrIndex:
		return sel.Index, nil
	case AttrAbortOnFailure:
		return sel.AbortOnFailure, nil
	case AttrTimeout:
		return sel.Timeout, nil
	case AttrRetryInterval:
		return sel.RetryInterval, nil
	case AttrSuppressNotFoundErrors:
		return sel.SuppressNotFoundErrors, nil
	case AttrNeedVisible:
		return sel.NeedVisible, nil
	case AttrNeedHighlight:
		return sel.NeedHighlight, nil
	case AttrName:
		return sel.Name, nil
	}
	return nil, schemas.NewInvalidArgumentError(name, "is not a valid selector attribute")
}

// SetAttribute returns a copy of sel with one attribute replaced. Unknown
// names and values of the wrong type are rejected.
func SetAttribute(sel schemas.Selector, name string, value any) (schemas.Selector, error) {
	if !IsAttribute(name) {
		return sel, schemas.NewInvalidArgumentError(name, "is not a valid selector attribute")
	}
	wrongType := func(want string) error {
		return schemas.NewInvalidArgumentError(name, fmt.Sprintf("expected %s, got %T", want, value))
	}

	switch name {
	case AttrSelector, AttrName:
		s, ok := value.(string)
		if !ok {
			return sel, wrongType("a string")
		}
		if name == AttrSelector {
			sel.Selector = s
		} else {
			sel.Name = s
		}
	case AttrLocateStrategy:
		var st schemas.LocateStrategy
		switch v := value.(type) {
		case string:
			st = schemas.LocateStrategy(v)
		case schemas.LocateStrategy:
			st = v
		default:
			return sel, wrongType("a locate strategy")
		}
		if !st.Valid() {
			return sel, schemas.NewInvalidArgumentError(name, fmt.Sprintf("unsupported value %q", st))
		}
		sel.LocateStrategy = st
	case AttrIndex:
		i, ok := value.(int)
		if !ok {
			return sel, wrongType("an integer")
		}
		sel.Index = i
	case AttrTimeout, AttrRetryInterval:
		d, err := schemas.ParseDuration(value)
		if err != nil {
			return sel, schemas.NewInvalidArgumentError(name, err.Error())
		}
		if name == AttrTimeout {
			sel.Timeout = d
		} else {
			sel.RetryInterval = d
		}
	default:
		b, ok := value.(bool)
		if !ok {
			return sel, wrongType("a boolean")
		}
		switch name {
		case AttrAbortOnFailure:
			sel.AbortOnFailure = b
		case AttrSuppressNotFoundErrors:
			sel.SuppressNotFoundErrors = b
		case AttrNeedVisible:
			sel.NeedVisible = b
		case AttrNeedHighlight:
			sel.NeedHighlight = b
		}
	}
	return sel, nil
}

// SetAttributes applies a set of overrides in sorted key order.
func SetAttributes(sel schemas.Selector, attrs map[string]any) (schemas.Selector, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	for _, k := range keys {
		if sel, err = SetAttribute(sel, k, attrs[k]); err != nil {
			return sel, err
		}
	}
	return sel, nil
}
