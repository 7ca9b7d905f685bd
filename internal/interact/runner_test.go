package interact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crow/api/schemas"
	"github.com/xkilldash9x/crow/internal/mocks"
	"github.com/xkilldash9x/crow/internal/selector"
)

// recorder collects the order in which protocol steps happen.
type recorder struct{ steps []string }

func (r *recorder) add(step string) func(mock.Arguments) {
	return func(mock.Arguments) { r.steps = append(r.steps, step) }
}

func mockedElement(rec *recorder, name string) *mocks.MockElement {
	el := new(mocks.MockElement)
	el.On("Highlight", mock.Anything).Run(rec.add("highlight "+name)).Return(nil)
	el.On("Unhighlight", mock.Anything).Run(rec.add("unhighlight "+name)).Return(nil)
	return el
}

func mockedDriver(rec *recorder, els ...schemas.Element) *mocks.MockDriver {
	d := new(mocks.MockDriver)
	d.On("Annotate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		rec.steps = append(rec.steps, "annotate "+args.String(1))
	}).Return(nil)
	d.On("ClearAnnotation", mock.Anything).Run(rec.add("clear")).Return(nil)
	d.On("WaitForElementVisible", mock.Anything, mock.Anything).Return(nil)
	d.On("FindAll", mock.Anything, mock.Anything).Return(els, nil)
	d.On("Pause", mock.Anything, testInteraction.WaitAfter).Run(rec.add("pause")).Return(nil).Maybe()
	return d
}

func TestForFirst_Protocol(t *testing.T) {
	rec := &recorder{}
	first, second := mockedElement(rec, "1"), mockedElement(rec, "2")
	d := mockedDriver(rec, first, second)
	r := newRunner(t, d)

	var got schemas.Element
	err := r.ForFirst(bg, schemas.Raw("li.item"), "Click", func(_ context.Context, el schemas.Element) error {
		got = el
		rec.steps = append(rec.steps, "callback")
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, []string{
		`annotate For the first matching "li.item #1": Click`,
		"highlight 1",
		"callback",
		"pause",
		"unhighlight 1",
		"clear",
	}, rec.steps)
	second.AssertNotCalled(t, "Highlight", mock.Anything)
}

func TestForFirst_CallbackErrorStillUnhighlights(t *testing.T) {
	rec := &recorder{}
	el := mockedElement(rec, "1")
	d := mockedDriver(rec, el)
	r := newRunner(t, d)

	boom := errors.New("boom")
	err := r.ForFirst(bg, schemas.Raw("li.item"), "Click", func(context.Context, schemas.Element) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	el.AssertCalled(t, "Unhighlight", mock.Anything)
	d.AssertNotCalled(t, "Pause", mock.Anything, mock.Anything)
}

func TestForFirst_PauseAndHighlightFailuresAreIgnored(t *testing.T) {
	el := new(mocks.MockElement)
	el.On("Highlight", mock.Anything).Return(errors.New("detached"))
	el.On("Unhighlight", mock.Anything).Return(errors.New("detached"))

	d := new(mocks.MockDriver)
	d.On("Annotate", mock.Anything, mock.Anything).Return(errors.New("no body"))
	d.On("ClearAnnotation", mock.Anything).Return(nil)
	d.On("WaitForElementVisible", mock.Anything, mock.Anything).Return(nil)
	d.On("FindAll", mock.Anything, mock.Anything).Return([]schemas.Element{el}, nil)
	d.On("Pause", mock.Anything, mock.Anything).Return(context.DeadlineExceeded)

	called := false
	err := newRunner(t, d).ForFirst(bg, schemas.Raw("#save"), "Click", func(context.Context, schemas.Element) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	d.AssertExpectations(t)
}

func TestForFirst_NoOverlayWhenDisabled(t *testing.T) {
	rec := &recorder{}
	el := mockedElement(rec, "1")
	d := mockedDriver(rec, el)
	r := newRunner(t, d)
	r.cfg.ShowActionText = false

	require.NoError(t, r.ForFirst(bg, schemas.Raw("#save"), "Click", func(context.Context, schemas.Element) error { return nil },
		WithWaitAfter(0)))
	d.AssertNotCalled(t, "Annotate", mock.Anything, mock.Anything)
	d.AssertNotCalled(t, "ClearAnnotation", mock.Anything)
	d.AssertNotCalled(t, "Pause", mock.Anything, mock.Anything)
}

func TestForFirst_EmptySuppressedMatch(t *testing.T) {
	d := newDriver(t)
	r := newRunner(t, d)

	spec := schemas.Spec{Selector: "#missing", SuppressNotFoundErrors: selector.Ptr(true)}
	called := false
	err := r.ForFirst(bg, spec, "Click", func(_ context.Context, el schemas.Element) error {
		called = true
		assert.Nil(t, el)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestForFirst_ResolutionErrors(t *testing.T) {
	r := newRunner(t, newDriver(t))
	noop := func(context.Context, schemas.Element) error { return nil }

	err := r.ForFirst(bg, schemas.Symbol("@submit"), "Click", noop)
	assert.ErrorIs(t, err, schemas.ErrUnknownSymbol)

	page := &schemas.PageElementMap{Name: "orders", Elements: map[string]schemas.Spec{
		"save": {Selector: "#save"},
	}}
	err = r.WithPage(page).ForFirst(bg, schemas.Symbol("@save"), "Click", noop)
	assert.NoError(t, err)

	err = r.WithPage(page).ForFirst(bg, schemas.Symbol("@cancel"), "Click", noop)
	assert.ErrorIs(t, err, schemas.ErrUnknownSymbol)
}

func TestForAll_HighlightsEveryElementAroundTheCallback(t *testing.T) {
	rec := &recorder{}
	d := mockedDriver(rec, mockedElement(rec, "1"), mockedElement(rec, "2"))
	r := newRunner(t, d)

	err := r.ForAll(bg, schemas.Raw("li.item"), "Count", func(_ context.Context, els []schemas.Element) error {
		rec.steps = append(rec.steps, "callback")
		assert.Len(t, els, 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`annotate For all the matching "li.item #1": Count`,
		"highlight 1", "highlight 2",
		"callback",
		"pause",
		"unhighlight 1", "unhighlight 2",
		"clear",
	}, rec.steps)
}

func TestForEach_ContinuesPastFailures(t *testing.T) {
	d := newDriver(t)
	r := newRunner(t, d)

	var visited []int
	err := r.ForEach(bg, schemas.Raw("li.item"), "Check", func(_ context.Context, _ schemas.Element, i int) error {
		visited = append(visited, i)
		if i == 1 || i == 3 {
			return errors.New("bad element")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, visited)
	assert.ErrorIs(t, err, schemas.ErrCallbackFailure)

	var failure *schemas.CallbackFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 1, failure.Index)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Len(t, joined.Unwrap(), 2)

	// One pause for the whole iteration.
	assert.Len(t, eventsOf(d, "pause"), 1)

	annotations := eventsOf(d, "annotate")
	require.Len(t, annotations, 5)
	assert.Equal(t, `For the #3 matching "li.item #1": Check`, annotations[2].Detail)
}

func TestForEach_NilCallback(t *testing.T) {
	d := newDriver(t)
	require.NoError(t, newRunner(t, d).ForEach(bg, schemas.Raw("li.item"), "Show", nil))

	html, err := d.HTML()
	require.NoError(t, err)
	assert.NotContains(t, html, schemas.HighlightOutline)
	assert.NotContains(t, html, schemas.ActionTextBoxID)
}

func TestForEach_StopsOnCancel(t *testing.T) {
	d := newDriver(t)
	ctx, cancel := context.WithCancel(bg)

	var visited int
	err := newRunner(t, d).ForEach(ctx, schemas.Raw("li.item"), "Check", func(context.Context, schemas.Element, int) error {
		visited++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, visited)
}

func TestTexts(t *testing.T) {
	d := newDriver(t)
	r := newRunner(t, d)

	t.Run("ForAllTexts", func(t *testing.T) {
		texts, err := AllTexts(bg, r, schemas.Raw("li.item"), "Read", func(_ context.Context, texts []string) ([]string, error) {
			return texts, nil
		}, WithWaitAfter(0))
		require.NoError(t, err)
		assert.Equal(t, []string{"Apple", "Banana", "Cherry", "Date", "Elderberry"}, texts)
	})

	t.Run("ForEachText", func(t *testing.T) {
		var got []string
		err := r.ForEachText(bg, schemas.Raw("li.item"), "Read", func(_ context.Context, text string, i int) error {
			got = append(got, text)
			if text == "Cherry" {
				return errors.New("no cherries")
			}
			return nil
		})
		assert.ErrorIs(t, err, schemas.ErrCallbackFailure)
		assert.Len(t, got, 5)
	})

	t.Run("First", func(t *testing.T) {
		v, err := First(bg, r, schemas.Raw("#name"), "Read value", func(ctx context.Context, el schemas.Element) (string, error) {
			return el.Value(ctx)
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada", v)
	})
}

func TestForGiven(t *testing.T) {
	rec := &recorder{}
	el := mockedElement(rec, "1")
	d := mockedDriver(rec)
	r := newRunner(t, d)

	err := r.ForGiven(bg, el, "Click", func(context.Context, schemas.Element) error {
		rec.steps = append(rec.steps, "callback")
		return nil
	}, WithWaitAfter(time.Duration(0)), WithHighlight(false))
	require.NoError(t, err)
	assert.Equal(t, []string{"annotate Click", "callback", "clear"}, rec.steps)
}
