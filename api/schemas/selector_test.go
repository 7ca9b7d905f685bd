package schemas_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/crow/api/schemas"
)

func TestLocateStrategy(t *testing.T) {
	assert.True(t, schemas.StrategyXPath.Valid())
	assert.True(t, schemas.StrategyUnknown.Valid())
	assert.False(t, schemas.LocateStrategy("link text").Valid())

	assert.True(t, schemas.StrategyCSS.Explicit())
	assert.False(t, schemas.StrategyUnknown.Explicit())
}

func TestSelectorString(t *testing.T) {
	sel := schemas.Selector{Selector: "#save", LocateStrategy: schemas.StrategyCSS}
	assert.Equal(t, "#save [css selector]", sel.String())

	sel.Name = "save button"
	sel.Index = 2
	assert.Equal(t, "save button (#save) [css selector] #2", sel.String())
	assert.True(t, sel.HasIndex())

	bare := sel.WithoutIndex()
	assert.False(t, bare.HasIndex())
	assert.Equal(t, 2, sel.Index, "WithoutIndex must not modify the receiver")
}

func TestParseInput(t *testing.T) {
	assert.Equal(t, schemas.Symbol("@login"), schemas.ParseInput("@login"))
	assert.Equal(t, schemas.Raw("//a"), schemas.ParseInput("//a"))
	assert.Equal(t, "login", schemas.Symbol("@login").Name())
	assert.Equal(t, "login", schemas.Symbol("login").Name())
}

func TestSpecUnmarshalYAML(t *testing.T) {
	t.Run("Scalar", func(t *testing.T) {
		var s schemas.Spec
		require.NoError(t, yaml.Unmarshal([]byte(`"#user"`), &s))
		assert.Equal(t, "#user", s.Selector)
		assert.Nil(t, s.Index)
	})

	t.Run("Mapping", func(t *testing.T) {
		src := `
selector: //button
locateStrategy: xpath
index: 3
timeout: 1500
retryInterval: 250ms
needVisible: false
name: submit
`
		var s schemas.Spec
		require.NoError(t, yaml.Unmarshal([]byte(src), &s))
		assert.Equal(t, "//button", s.Selector)
		assert.Equal(t, schemas.StrategyXPath, s.LocateStrategy)
		require.NotNil(t, s.Index)
		assert.Equal(t, 3, *s.Index)
		require.NotNil(t, s.Timeout)
		assert.Equal(t, 1500*time.Millisecond, *s.Timeout)
		require.NotNil(t, s.RetryInterval)
		assert.Equal(t, 250*time.Millisecond, *s.RetryInterval)
		require.NotNil(t, s.NeedVisible)
		assert.False(t, *s.NeedVisible)
		assert.Nil(t, s.NeedHighlight)
		assert.Equal(t, "submit", s.Name)
	})

	t.Run("Errors", func(t *testing.T) {
		cases := map[string]string{
			"UnknownKey":  "selector: a\ncolour: red\n",
			"BadStrategy": "selector: a\nlocateStrategy: link text\n",
			"BadIndex":    "selector: a\nindex: two\n",
			"BadBool":     "selector: a\nneedVisible: maybe\n",
			"BadDuration": "selector: a\ntimeout: soon\n",
			"NotAMapping": "- a\n- b\n",
			"BadSelector": "selector: [a]\n",
		}
		for name, src := range cases {
			t.Run(name, func(t *testing.T) {
				var s schemas.Spec
				err := yaml.Unmarshal([]byte(src), &s)
				assert.ErrorIs(t, err, schemas.ErrInvalidArgument)
			})
		}
	})
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   any
		want time.Duration
	}{
		{time.Second, time.Second},
		{250, 250 * time.Millisecond},
		{int64(10), 10 * time.Millisecond},
		{1.5, 1500 * time.Microsecond},
		{"2s", 2 * time.Second},
	}
	for _, tc := range cases {
		got, err := schemas.ParseDuration(tc.in)
		require.NoError(t, err, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}

	_, err := schemas.ParseDuration(true)
	assert.Error(t, err)
	_, err = schemas.ParseDuration("later")
	assert.Error(t, err)
}

func TestPageElementMapLookup(t *testing.T) {
	var nilPage *schemas.PageElementMap
	_, ok := nilPage.Lookup("x")
	assert.False(t, ok)
	assert.Nil(t, nilPage.Symbols())

	page := &schemas.PageElementMap{Name: "login", Elements: map[string]schemas.Spec{
		"user": {Selector: "#user"},
		"pass": {Selector: "#pass"},
	}}
	spec, ok := page.Lookup("user")
	require.True(t, ok)
	assert.Equal(t, "#user", spec.Selector)
	assert.ElementsMatch(t, []string{"user", "pass"}, page.Symbols())
}

func TestErrorClassification(t *testing.T) {
	sel := schemas.Selector{Selector: "#cart", LocateStrategy: schemas.StrategyCSS, Timeout: time.Second}
	cause := errors.New("context deadline exceeded")

	testCases := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{"InvalidArgument", schemas.NewInvalidArgumentError("index", "must be positive"), schemas.ErrInvalidArgument, `invalid argument "index"`},
		{"UnknownSymbolNoPage", &schemas.UnknownSymbolError{Symbol: "@cart"}, schemas.ErrUnknownSymbol, "no page element map supplied"},
		{"UnknownSymbol", &schemas.UnknownSymbolError{Symbol: "@cart", Page: "shop", Available: []string{"a", "b"}}, schemas.ErrUnknownSymbol, "available: a, b"},
		{"Incompatible", &schemas.IncompatibleStrategiesError{First: sel, Second: schemas.Selector{Selector: "//a", LocateStrategy: schemas.StrategyXPath}}, schemas.ErrIncompatibleStrategies, "different locate strategies"},
		{"NotFound", schemas.NewNotFoundError(sel, true, cause), schemas.ErrNotFound, "was not visible after 1s"},
		{"RetryExhausted", &schemas.RetryExhaustedError{Description: "click", Attempts: 3, TimedOut: true, Err: cause}, schemas.ErrRetryExhausted, "failed after 3 attempts due to timeout"},
		{"Callback", &schemas.CallbackFailureError{Description: "each", Index: 1, Err: cause}, schemas.ErrCallbackFailure, "element #2"},
		{"Assertion", &schemas.AssertionError{Assertion: "AssertText", Message: "mismatch", Detail: "Raw Strings:"}, schemas.ErrAssertion, "AssertText: mismatch\nRaw Strings:"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("step failed: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
			assert.Contains(t, tc.err.Error(), tc.contains)
		})
	}

	// Causes stay reachable through the typed wrappers.
	assert.ErrorIs(t, schemas.NewNotFoundError(sel, false, cause), cause)
	assert.ErrorIs(t, &schemas.RetryExhaustedError{Err: cause}, cause)

	var nf *schemas.NotFoundError
	require.ErrorAs(t, fmt.Errorf("x: %w", schemas.NewNotFoundError(sel, false, nil)), &nf)
	assert.Equal(t, "element #cart [css selector] was not present after 1s", nf.Error())
}
