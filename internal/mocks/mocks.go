// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Interaction() config.InteractionConfig {
	args := m.Called()
	return args.Get(0).(config.InteractionConfig)
}

func (m *MockConfig) Gather() config.GatherConfig {
	args := m.Called()
	return args.Get(0).(config.GatherConfig)
}

func (m *MockConfig) Retry() config.RetryConfig {
	args := m.Called()
	return args.Get(0).(config.RetryConfig)
}

func (m *MockConfig) Selector() config.SelectorConfig {
	args := m.Called()
	return args.Get(0).(config.SelectorConfig)
}

func (m *MockConfig) Pages() config.PagesConfig {
	args := m.Called()
	return args.Get(0).(config.PagesConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool) {
	m.Called(b)
}

func (m *MockConfig) SetBrowserExecPath(path string) {
	m.Called(path)
}

func (m *MockConfig) SetInteractionWaitAfter(d time.Duration) {
	m.Called(d)
}

func (m *MockConfig) SetInteractionShowActionText(b bool) {
	m.Called(b)
}

// -- Driver Mock --

// MockDriver mocks schemas.Driver.
type MockDriver struct {
	mock.Mock
}

var _ schemas.Driver = (*MockDriver)(nil)

func (m *MockDriver) FindAll(ctx context.Context, sel schemas.Selector) ([]schemas.Element, error) {
	args := m.Called(ctx, sel)
	els, _ := args.Get(0).([]schemas.Element)
	return els, args.Error(1)
}

func (m *MockDriver) IsPresent(ctx context.Context, sel schemas.Selector) (bool, error) {
	args := m.Called(ctx, sel)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) IsVisible(ctx context.Context, sel schemas.Selector) (bool, error) {
	args := m.Called(ctx, sel)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) IsSelected(ctx context.Context, sel schemas.Selector) (bool, error) {
	args := m.Called(ctx, sel)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) WaitForElementPresent(ctx context.Context, sel schemas.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockDriver) WaitForElementVisible(ctx context.Context, sel schemas.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockDriver) Execute(ctx context.Context, script string, args []any, res any) error {
	return m.Called(ctx, script, args, res).Error(0)
}

func (m *MockDriver) Pause(ctx context.Context, d time.Duration) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDriver) Annotate(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockDriver) ClearAnnotation(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) Back(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) WindowHandles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	handles, _ := args.Get(0).([]string)
	return handles, args.Error(1)
}

func (m *MockDriver) CurrentWindow(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) SwitchToWindow(ctx context.Context, handle string) error {
	return m.Called(ctx, handle).Error(0)
}

func (m *MockDriver) CloseWindow(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) KeyDown(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockDriver) KeyUp(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockDriver) SaveScreenshot(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

// -- Element Mock --

// MockElement mocks schemas.Element.
type MockElement struct {
	mock.Mock
}

var _ schemas.Element = (*MockElement)(nil)

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockElement) Value(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) CSSValue(ctx context.Context, property string) (string, error) {
	args := m.Called(ctx, property)
	return args.String(0), args.Error(1)
}

func (m *MockElement) SetValue(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) MoveTo(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Highlight(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Unhighlight(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
