package web

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"portal/internal/format"
	"portal/internal/models"
)

// Field input types.
const (
	inputText        = "text"
	inputNumber      = "number"
	inputEmail       = "email"
	inputTel         = "tel"
	inputDate        = "date"
	inputTime        = "time"
	inputPassword    = "password"
	inputSelect      = "select"
	inputMultiSelect = "multiselect"
	inputTextarea    = "textarea"
)

// Pre-formatters applied to a field before submission.
const (
	formatDNI   = "dni"
	formatPhone = "phone"
)

type Option struct {
	Value string
	Label string
}

// Field describes one form input and how its value travels to the backend.
type Field struct {
	Name        string
	Label       string
	Type        string
	Required    bool
	Options     []Option
	Placeholder string
	Format      string
	// Integer sends the value as a number when it parses as one.
	Integer bool
	// Nullable sends an empty value as null.
	Nullable bool
	// OmitEmpty leaves an empty value out of the payload (passwords on edit).
	OmitEmpty bool
}

type fieldView struct {
	Field
	Value    string
	Selected map[string]bool
	Errors   []string
	Hint     string
}

// formPage is what the form template renders.
type formPage struct {
	Title  string
	Action string
	// Method is POST or PUT; PUT travels as _method.
	Method string
	Cancel string
	Fields []fieldView
	Usage  *usageView
	// Picker, when set, replaces the form by a GET selection step.
	Picker *pickerView
	Errors []string
}

type pickerView struct {
	Action  string
	Name    string
	Label   string
	Options []Option
}

// formSpec builds the form markup and the backend payload for one entity.
type formSpec interface {
	fill(ctx context.Context, page *formPage, values url.Values, errs models.FieldErrors) error
	normalize(values url.Values)
	payload(values url.Values) any
}

// optionSource loads the choices of a select when the form is shown.
type optionSource func(ctx context.Context) ([]Option, error)

// fieldForm is the plain one-input-per-field form used by most entities.
type fieldForm struct {
	fields  []Field
	options map[string]optionSource
}

func (f fieldForm) fill(ctx context.Context, page *formPage, values url.Values, errs models.FieldErrors) error {
	fields := append([]Field(nil), f.fields...)
	for i := range fields {
		src, ok := f.options[fields[i].Name]
		if !ok {
			continue
		}
		opts, err := src(ctx)
		if err != nil {
			return err
		}
		fields[i].Options = opts
	}
	page.Fields = fieldViews(fields, values, errs)
	page.Errors = unclaimedErrors(errs, fields)
	return nil
}

func (f fieldForm) normalize(values url.Values) {
	normalizeFields(f.fields, values)
}

func (f fieldForm) payload(values url.Values) any {
	return fieldPayload(f.fields, values)
}

func fieldViews(fields []Field, values url.Values, errs models.FieldErrors) []fieldView {
	views := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		fv := fieldView{Field: f, Value: values.Get(f.Name), Errors: errs[f.Name]}
		if f.Type == inputMultiSelect {
			fv.Selected = make(map[string]bool)
			for _, v := range values[f.Name] {
				fv.Selected[v] = true
			}
		}
		switch {
		case f.Format == formatPhone:
			fv.Hint = format.PhoneHint(fv.Value)
		case f.Type == inputEmail:
			fv.Hint = format.EmailHint(fv.Value)
		}
		views = append(views, fv)
	}
	return views
}

// unclaimedErrors lists backend messages for fields the form does not show.
func unclaimedErrors(errs models.FieldErrors, fields []Field) []string {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}
	var out []string
	for _, name := range errs.Fields() {
		base := strings.SplitN(name, ".", 2)[0]
		if known[name] || known[base] {
			continue
		}
		out = append(out, errs[name]...)
	}
	return out
}

func normalizeFields(fields []Field, values url.Values) {
	for _, f := range fields {
		if _, ok := values[f.Name]; !ok {
			continue
		}
		v := strings.TrimSpace(values.Get(f.Name))
		switch f.Format {
		case formatDNI:
			v = format.DNI(v)
		case formatPhone:
			v = format.Phone(v)
		}
		if f.Type != inputMultiSelect {
			values.Set(f.Name, v)
		}
	}
}

func fieldPayload(fields []Field, values url.Values) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Type == inputMultiSelect {
			ids := make([]any, 0, len(values[f.Name]))
			for _, raw := range values[f.Name] {
				ids = append(ids, scalar(strings.TrimSpace(raw), true))
			}
			out[f.Name] = ids
			continue
		}

		v := strings.TrimSpace(values.Get(f.Name))
		switch {
		case v == "" && f.OmitEmpty:
			continue
		case v == "" && f.Nullable:
			out[f.Name] = nil
		default:
			out[f.Name] = scalar(v, f.Integer)
		}
	}
	return out
}

// scalar keeps unparseable numbers as strings so the backend reports them.
func scalar(v string, integer bool) any {
	if integer {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return v
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func conditionOptions() []Option {
	labels := map[string]string{
		models.ConditionGood:     "Bueno",
		models.ConditionRegular:  "Regular",
		models.ConditionBad:      "Malo",
		models.ConditionOutOfUse: "Fuera de servicio",
	}
	opts := make([]Option, 0, len(models.Conditions))
	for _, c := range models.Conditions {
		opts = append(opts, Option{Value: c, Label: labels[c]})
	}
	return opts
}
