package schemas

import (
	"context"
	"strings"
	"time"
)

// -- Browser Driver Interfaces --

// Driver is the browser collaborator every interaction goes through. One
// Driver represents one live session; callers issue operations against it
// strictly in sequence.
type Driver interface {
	// FindAll returns every element matching sel in document order. The
	// selector index is ignored.
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
	IsPresent(ctx context.Context, sel Selector) (bool, error)
	IsVisible(ctx context.Context, sel Selector) (bool, error)
	IsSelected(ctx context.Context, sel Selector) (bool, error)

	// WaitForElementPresent blocks until at least one match exists or the
	// selector timeout elapses, in which case a *NotFoundError is returned.
	WaitForElementPresent(ctx context.Context, sel Selector) error
	// WaitForElementVisible is WaitForElementPresent for visible matches.
	WaitForElementVisible(ctx context.Context, sel Selector) error

	// Execute runs script in the page. When res is non-nil the script's
	// return value is decoded into it.
	Execute(ctx context.Context, script string, args []any, res any) error
	Pause(ctx context.Context, d time.Duration) error

	// Annotate shows text in the on-page diagnostic overlay.
	Annotate(ctx context.Context, text string) error
	ClearAnnotation(ctx context.Context) error

	CurrentURL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Refresh(ctx context.Context) error

	WindowHandles(ctx context.Context) ([]string, error)
	CurrentWindow(ctx context.Context) (string, error)
	SwitchToWindow(ctx context.Context, handle string) error
	CloseWindow(ctx context.Context) error

	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error

	SaveScreenshot(ctx context.Context, path string) error
}

// Element is a live handle returned by Driver.FindAll.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value; ok is false when the attribute
	// is absent.
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	Value(ctx context.Context) (string, error)
	// CSSValue returns the computed value of a style property.
	CSSValue(ctx context.Context, property string) (string, error)
	SetValue(ctx context.Context, value string) error
	Clear(ctx context.Context) error
	Click(ctx context.Context) error
	MoveTo(ctx context.Context) error

	// Highlight scrolls the element into view and outlines it.
	Highlight(ctx context.Context) error
	Unhighlight(ctx context.Context) error
}

// Sleeper is the subset of Driver the retry engine needs.
type Sleeper interface {
	Pause(ctx context.Context, d time.Duration) error
}

// ActionTextBoxID is the DOM id of the diagnostic overlay drivers maintain
// for Annotate.
const ActionTextBoxID = "crow-action-text-box"

// Outline styles applied by Element.Highlight and Element.Unhighlight.
const (
	HighlightOutline = "3px dashed red"
	ClearedOutline   = "0px dashed transparent"
)

var booleanAttributes = map[string]bool{
	"checked": true, "selected": true, "disabled": true, "readonly": true,
	"required": true, "multiple": true, "hidden": true, "autofocus": true,
	"open": true,
}

// IsBooleanAttribute reports whether name is an HTML boolean attribute.
// Drivers report present boolean attributes as "true".
func IsBooleanAttribute(name string) bool {
	return booleanAttributes[strings.ToLower(name)]
}
