package form

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseview/internal/core"
	applog "expenseview/internal/log"
)

type fakeCreator struct {
	mu    sync.Mutex
	got   []core.NewExpense
	block chan struct{}
	fn    func(core.NewExpense) (core.Expense, error)
}

func (f *fakeCreator) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	f.mu.Lock()
	f.got = append(f.got, e)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.fn(e)
}

type fakeAppender struct {
	appended []core.Expense
	err      error
}

func (f *fakeAppender) AppendLocal(ctx context.Context, e core.Expense) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, e)
	return nil
}

type fakeEvents struct {
	created []core.Expense
	err     error
	during  func(ctx context.Context)
}

func (f *fakeEvents) ExpenseCreated(ctx context.Context, e core.Expense) error {
	f.created = append(f.created, e)
	if f.during != nil {
		f.during(ctx)
	}
	return f.err
}

func echo(id string) func(core.NewExpense) (core.Expense, error) {
	return func(n core.NewExpense) (core.Expense, error) {
		return core.Expense{ID: id, Date: n.Date, Description: n.Description, Category: n.Category, Amount: n.Amount}, nil
	}
}

func coffee() core.Draft {
	return core.Draft{Date: "2024-01-01", Description: "Coffee", Category: "Food", Amount: "3.50"}
}

func newTestController(creator *fakeCreator, appender *fakeAppender, opts ...Option) *Controller {
	opts = append(opts, WithLogger(applog.New(applog.Config{Output: io.Discard})))
	return NewController(creator, appender, opts...)
}

func TestSubmitSuccessResetsAndHidesForm(t *testing.T) {
	creator := &fakeCreator{fn: echo("abc123")}
	appender := &fakeAppender{}
	events := &fakeEvents{}
	c := newTestController(creator, appender, WithEvents(events))

	c.Toggle()
	c.SetDraft(coffee())

	created, err := c.Submit(context.Background())
	require.NoError(t, err)

	want := core.Expense{ID: "abc123", Date: "2024-01-01", Description: "Coffee", Category: "Food", Amount: 3.5}
	assert.Equal(t, want, created)
	assert.Equal(t, []core.Expense{want}, appender.appended)
	assert.Equal(t, []core.Expense{want}, events.created)

	view := c.View()
	assert.False(t, view.Visible)
	assert.True(t, view.Draft.IsEmpty())
	assert.Empty(t, view.Alert)
	assert.False(t, view.InFlight)
}

func TestSubmitRejectedKeepsDraftAndRaisesAlert(t *testing.T) {
	creator := &fakeCreator{fn: func(core.NewExpense) (core.Expense, error) {
		return core.Expense{}, &core.SubmitError{Status: http.StatusBadRequest, Err: core.ErrUnexpectedStatus}
	}}
	appender := &fakeAppender{}
	c := newTestController(creator, appender)

	c.Toggle()
	c.SetDraft(coffee())

	_, err := c.Submit(context.Background())
	var se *core.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)

	view := c.View()
	assert.True(t, view.Visible)
	assert.Equal(t, coffee(), view.Draft)
	assert.Equal(t, AlertSubmitFailed, view.Alert)
	assert.Empty(t, appender.appended)

	c.DismissAlert()
	assert.Empty(t, c.View().Alert)
}

func TestTransportFailureIsWrapped(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	creator := &fakeCreator{fn: func(core.NewExpense) (core.Expense, error) { return core.Expense{}, boom }}
	c := newTestController(creator, &fakeAppender{})
	c.SetDraft(coffee())

	_, err := c.Submit(context.Background())
	var se *core.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Zero(t, se.Status)
	assert.ErrorIs(t, err, boom)
}

func TestSubmitCoercesAmount(t *testing.T) {
	creator := &fakeCreator{fn: echo("x")}
	c := newTestController(creator, &fakeAppender{})

	d := coffee()
	d.Amount = "12.50"
	c.SetDraft(d)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, creator.got, 1)
	assert.Equal(t, 12.5, creator.got[0].Amount)
}

func TestSubmitNonNumericAmountIsSentAsNaN(t *testing.T) {
	creator := &fakeCreator{fn: echo("x")}
	c := newTestController(creator, &fakeAppender{})

	d := coffee()
	d.Amount = "abc"
	c.SetDraft(d)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, creator.got, 1)
	assert.True(t, math.IsNaN(creator.got[0].Amount))
}

func TestSubmitIncompleteDraftSendsNothing(t *testing.T) {
	creator := &fakeCreator{fn: echo("x")}
	c := newTestController(creator, &fakeAppender{})
	c.Toggle()
	require.NoError(t, c.Set(core.FieldDescription, "Coffee"))

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, core.ErrMissingField)
	assert.Empty(t, creator.got)
	assert.Empty(t, c.View().Alert)
	assert.True(t, c.View().Visible)
}

func TestSubmitInFlightRejectsSecondCall(t *testing.T) {
	creator := &fakeCreator{fn: echo("x"), block: make(chan struct{})}
	c := newTestController(creator, &fakeAppender{})
	c.SetDraft(coffee())

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return c.View().InFlight }, time.Second, 5*time.Millisecond)
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(creator.block)
	require.NoError(t, <-done)
	assert.False(t, c.View().InFlight)
	assert.Len(t, creator.got, 1)
}

func TestSubmitDraftInFlightKeepsOutstandingDraft(t *testing.T) {
	creator := &fakeCreator{fn: echo("x"), block: make(chan struct{})}
	c := newTestController(creator, &fakeAppender{})

	rent := core.Draft{Date: "2024-01-01", Description: "Rent", Category: "Home", Amount: "900"}
	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitDraft(context.Background(), rent)
		done <- err
	}()
	require.Eventually(t, func() bool { return c.View().InFlight }, time.Second, 5*time.Millisecond)

	_, err := c.SubmitDraft(context.Background(), coffee())
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.Equal(t, rent, c.View().Draft)

	close(creator.block)
	require.NoError(t, <-done)
	require.Len(t, creator.got, 1)
	assert.Equal(t, "Rent", creator.got[0].Description)
}

func TestSubmitDraftSendsGivenDraft(t *testing.T) {
	creator := &fakeCreator{fn: echo("x")}
	c := newTestController(creator, &fakeAppender{})
	c.SetDraft(core.Draft{Description: "stale"})

	created, err := c.SubmitDraft(context.Background(), coffee())
	require.NoError(t, err)
	assert.Equal(t, "Coffee", created.Description)
	assert.True(t, c.View().Draft.IsEmpty())
}

func TestPublishRunsAfterSubmitSlotIsReleased(t *testing.T) {
	var inFlight bool
	var deadline bool
	c := newTestController(&fakeCreator{fn: echo("x")}, &fakeAppender{})
	c.events = &fakeEvents{during: func(ctx context.Context) {
		inFlight = c.View().InFlight
		_, deadline = ctx.Deadline()
	}}
	c.SetDraft(coffee())

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, inFlight)
	assert.True(t, deadline)
}

func TestAppendFailureDoesNotFailSubmit(t *testing.T) {
	c := newTestController(&fakeCreator{fn: echo("x")}, &fakeAppender{err: errors.New("stopped")},
		WithEvents(&fakeEvents{err: errors.New("broker down")}))
	c.SetDraft(coffee())

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, c.View().Draft.IsEmpty())
}

func TestToggleAndSet(t *testing.T) {
	c := newTestController(&fakeCreator{fn: echo("x")}, &fakeAppender{})
	assert.True(t, c.Toggle().Visible)
	require.NoError(t, c.Set(core.FieldAmount, "4"))
	assert.ErrorIs(t, c.Set("colour", "red"), core.ErrUnknownField)
	assert.False(t, c.Toggle().Visible)
	assert.Equal(t, "4", c.View().Draft.Amount)
}
