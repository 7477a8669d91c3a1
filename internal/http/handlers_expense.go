package http

import (
	"errors"
	"net/http"

	"expenseview/internal/core"
	"expenseview/internal/form"
	applog "expenseview/internal/log"
)

// handleExpenses re-renders the table on revalidation and after a create.
// While the last load failed the page is asked to reload into the error
// view. The error view polls with error=1 and gets 204 until a load
// succeeds again.
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	polling := r.URL.Query().Get("error") == "1"

	switch {
	case polling && snap.Err != nil:
		NewHTMXResponse().Status(http.StatusNoContent).Write(w)
		return
	case polling, snap.Err != nil:
		NewHTMXResponse().Status(http.StatusNoContent).Refresh().Write(w)
		return
	}

	s.writeTemplate(w, r, NewHTMXResponse(), "expenses", newPageData(snap, s.forms.View(), s.refresh))
}

func (s *Server) handleToggleForm(w http.ResponseWriter, r *http.Request) {
	view := s.forms.Toggle()
	s.writeTemplate(w, r, NewHTMXResponse(), "form", newFormData(view))
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	s.forms.DismissAlert()
	s.writeTemplate(w, r, NewHTMXResponse(), "form", newFormData(s.forms.View()))
}

// handleCreateExpense submits the posted draft. A rejected or failed create
// still answers 200 with the form partial so the retained input and the
// alert are swapped in.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(ctx, "Invalid expense form",
			applog.FieldErrorType, applog.ErrorTypeValidation,
			applog.FieldError, err.Error())
		if parser.TooLarge() {
			RequestTooLargeError("Form data too large").Write(w)
			return
		}
		BadRequestError("Invalid form data").Write(w)
		return
	}
	s.logger.DebugContext(ctx, "Expense form received", "format", parser.Format())

	created, err := s.forms.SubmitDraft(ctx, parser.Draft())
	var se *core.SubmitError
	switch {
	case err == nil:
		s.writeTemplate(w, r, NewHTMXResponse().TriggerExpenseCreated(created.ID), "form", newFormData(s.forms.View()))
	case errors.As(err, &se):
		s.writeTemplate(w, r, NewHTMXResponse().TriggerExpenseFailed(form.AlertSubmitFailed), "form", newFormData(s.forms.View()))
	case errors.Is(err, form.ErrSubmitInFlight):
		ConflictError("A submission is already in progress").Write(w)
	case errors.Is(err, core.ErrMissingField):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		s.logger.ErrorContext(ctx, "Unexpected submit failure",
			applog.FieldErrorType, applog.ErrorTypeInternal,
			applog.FieldError, err.Error())
		InternalServerError("Failed to add expense").Write(w)
	}
}
