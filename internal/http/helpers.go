package http

import (
	"strings"
	"time"

	"expenseview/internal/cache"
	"expenseview/internal/core"
	"expenseview/internal/form"
)

// ErrorLoadingExpenses is the only thing shown while the list cannot be loaded.
const ErrorLoadingExpenses = "Error loading expenses."

type expenseRow struct {
	ID          string
	Date        string
	Description string
	Category    string
	Amount      string
}

type fieldData struct {
	Name  string
	Label string
	Type  string
	Step  string
	Value string
}

type formData struct {
	Visible  bool
	InFlight bool
	Alert    string
	Fields   []fieldData
}

type pageData struct {
	Form           formData
	Expenses       []expenseRow
	ShowTotal      bool
	Total          string
	RefreshSeconds int
}

type errorPageData struct {
	Error          string
	RefreshSeconds int
}

func refreshSeconds(d time.Duration) int {
	if s := int(d / time.Second); s > 0 {
		return s
	}
	return 1
}

func newPageData(snap cache.Snapshot, view form.View, refresh time.Duration) pageData {
	rows := make([]expenseRow, 0, len(snap.Expenses))
	for _, e := range snap.Expenses {
		rows = append(rows, expenseRow{
			ID:          e.ID,
			Date:        e.Date,
			Description: e.Description,
			Category:    e.Category,
			Amount:      core.FormatAmount(e.Amount),
		})
	}
	return pageData{
		Form:           newFormData(view),
		Expenses:       rows,
		ShowTotal:      snap.ShowTotal(),
		Total:          core.FormatAmount(snap.Total()),
		RefreshSeconds: refreshSeconds(refresh),
	}
}

func newFormData(view form.View) formData {
	fields := make([]fieldData, 0, len(core.Fields()))
	for _, name := range core.Fields() {
		value, _ := view.Draft.Get(name)
		fd := fieldData{Name: name, Label: fieldLabel(name), Type: "text", Value: value}
		switch name {
		case core.FieldDate:
			fd.Type = "date"
		case core.FieldAmount:
			fd.Type = "number"
			fd.Step = "0.01"
		}
		fields = append(fields, fd)
	}
	return formData{
		Visible:  view.Visible,
		InFlight: view.InFlight,
		Alert:    view.Alert,
		Fields:   fields,
	}
}

// fieldLabel capitalizes the first letter of a field name.
func fieldLabel(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// sanitizeInput removes control characters. Whitespace is kept as typed.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
