// Package form holds the add-expense form: the draft being typed, whether the
// form is open, the outstanding-submit flag and the last failure alert.
package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"expenseview/internal/core"
	applog "expenseview/internal/log"
	"expenseview/internal/metrics"
	"expenseview/internal/remote"
)

// AlertSubmitFailed is shown after a rejected or failed create.
const AlertSubmitFailed = "Failed to add expense"

// publishTimeout bounds the expense.created notification.
const publishTimeout = 5 * time.Second

// ErrSubmitInFlight is returned when Submit is called while another submit
// is still outstanding.
var ErrSubmitInFlight = errors.New("submit already in flight")

// Appender receives created records. The synchronizer implements it.
type Appender interface {
	AppendLocal(ctx context.Context, e core.Expense) error
}

// Events is notified after a successful create. Failures are logged and do
// not affect the submit outcome.
type Events interface {
	ExpenseCreated(ctx context.Context, e core.Expense) error
}

// View is what the form partial renders.
type View struct {
	Draft    core.Draft
	Visible  bool
	InFlight bool
	Alert    string
}

// Controller is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	draft   core.Draft
	visible bool
	alert   string

	inFlight atomic.Bool

	creator  remote.ExpenseCreator
	appender Appender
	events   Events
	logger   *applog.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithEvents publishes successful creates to ev.
func WithEvents(ev Events) Option {
	return func(c *Controller) { c.events = ev }
}

// WithLogger sets the logger.
func WithLogger(l *applog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController returns a hidden, empty form.
func NewController(creator remote.ExpenseCreator, appender Appender, opts ...Option) *Controller {
	c := &Controller{creator: creator, appender: appender}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = applog.New(applog.DefaultConfig())
	}
	c.logger = c.logger.WithComponent(applog.ComponentForm)
	return c
}

// View returns the current form state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Draft:    c.draft,
		Visible:  c.visible,
		InFlight: c.inFlight.Load(),
		Alert:    c.alert,
	}
}

// Toggle opens or closes the form. The draft is kept; the alert is cleared.
func (c *Controller) Toggle() View {
	c.mu.Lock()
	c.visible = !c.visible
	c.alert = ""
	c.mu.Unlock()
	return c.View()
}

// Set updates one draft field.
func (c *Controller) Set(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Set(field, value)
}

// SetDraft replaces the whole draft.
func (c *Controller) SetDraft(d core.Draft) {
	c.mu.Lock()
	c.draft = d
	c.mu.Unlock()
}

// DismissAlert clears the failure alert.
func (c *Controller) DismissAlert() {
	c.mu.Lock()
	c.alert = ""
	c.mu.Unlock()
}

// Submit sends the current draft. On success the record is appended to the
// cache and the form is reset and hidden. On failure the draft and
// visibility are left untouched and the alert is raised; the returned error
// is a *core.SubmitError. A draft with empty fields is rejected with
// core.ErrMissingField before any request is made.
func (c *Controller) Submit(ctx context.Context) (core.Expense, error) {
	return c.submit(ctx, nil)
}

// SubmitDraft stores d as the draft and sends it. The draft is only replaced
// once the submit slot is claimed, so a call that gets ErrSubmitInFlight
// leaves the outstanding submit's input alone.
func (c *Controller) SubmitDraft(ctx context.Context, d core.Draft) (core.Expense, error) {
	return c.submit(ctx, &d)
}

func (c *Controller) submit(ctx context.Context, d *core.Draft) (core.Expense, error) {
	created, err := c.create(ctx, d)
	if err != nil {
		return core.Expense{}, err
	}
	c.publish(ctx, created)
	return created, nil
}

// create runs with the in-flight flag held.
func (c *Controller) create(ctx context.Context, d *core.Draft) (core.Expense, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return core.Expense{}, ErrSubmitInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	if d != nil {
		c.draft = *d
	}
	draft := c.draft
	c.mu.Unlock()

	if err := draft.Validate(); err != nil {
		c.logger.DebugContext(ctx, "Draft incomplete",
			applog.FieldErrorType, applog.ErrorTypeValidation,
			applog.FieldError, err.Error())
		return core.Expense{}, err
	}

	created, err := c.creator.CreateExpense(ctx, draft.NewExpense())
	metrics.ObserveSubmit(err)
	if err != nil {
		var se *core.SubmitError
		if !errors.As(err, &se) {
			se = &core.SubmitError{Err: err}
		}
		c.mu.Lock()
		c.alert = AlertSubmitFailed
		c.mu.Unlock()

		fields := applog.NewFields().
			WithOperation(applog.OpCreate).
			WithError(se).
			WithDraft(draft)
		fields[applog.FieldStatusCode] = se.Status
		c.logger.ErrorContext(ctx, "Failed to add expense", fields.ToSlice()...)
		return core.Expense{}, se
	}

	if err := c.appender.AppendLocal(ctx, created); err != nil {
		c.logger.WarnContext(ctx, "Created expense not appended to cache",
			applog.FieldOperation, applog.OpAppend,
			applog.FieldExpenseID, created.ID,
			applog.FieldError, err.Error())
	}

	c.mu.Lock()
	c.draft = core.Draft{}
	c.visible = false
	c.alert = ""
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Expense created",
		applog.NewFields().WithOperation(applog.OpCreate).WithExpense(created).ToSlice()...)
	return created, nil
}

// publish runs after the in-flight flag is released and is bounded by
// publishTimeout.
func (c *Controller) publish(ctx context.Context, created core.Expense) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := c.events.ExpenseCreated(ctx, created); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish expense event",
			applog.FieldExpenseID, created.ID,
			applog.FieldError, err.Error())
	}
}
