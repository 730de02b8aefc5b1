// Package fill drives answering a published form: load and flatten the
// schema, collect values, validate required fields, and post the answer set.
package fill

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/formkite/formkite/client"
	"github.com/formkite/formkite/model"
)

// State follows the lifecycle of one filling session.
type State string

const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateError      State = "error"
)

// Filling is one user's in-progress answer set for one form.
type Filling struct {
	Form   client.FormDetail
	Fields []model.Field // all sections flattened, in layout order

	state      State
	values     map[string]string
	selections map[string][]string
}

// Load fetches the form schema and prepares an empty answer set. Option
// lists arrive normalized regardless of which shape the backend used.
func Load(ctx context.Context, forms *client.Forms, formKey string) (*Filling, error) {
	f := &Filling{
		state:      StateLoading,
		values:     map[string]string{},
		selections: map[string][]string{},
	}

	detail, err := forms.Get(ctx, formKey)
	if err != nil {
		f.state = StateError
		return nil, err
	}

	f.Form = detail
	for _, section := range detail.Sections {
		f.Fields = append(f.Fields, section.Fields...)
	}
	f.state = StateReady
	return f, nil
}

func (f *Filling) State() State {
	return f.state
}

// SetValue records a free-text answer (also used for number, date and file
// name values).
func (f *Filling) SetValue(fieldID, value string) {
	f.values[fieldID] = value
}

// Select adds an option to a choice field's selection set.
func (f *Filling) Select(fieldID, optionID string) {
	for _, id := range f.selections[fieldID] {
		if id == optionID {
			return
		}
	}
	f.selections[fieldID] = append(f.selections[fieldID], optionID)
}

// SelectOnly replaces the selection set, for single-choice fields.
func (f *Filling) SelectOnly(fieldID, optionID string) {
	f.selections[fieldID] = []string{optionID}
}

func (f *Filling) Deselect(fieldID, optionID string) {
	kept := f.selections[fieldID][:0]
	for _, id := range f.selections[fieldID] {
		if id != optionID {
			kept = append(kept, id)
		}
	}
	f.selections[fieldID] = kept
}

// Validate checks required fields in layout order and reports only the
// first failure. One message at a time is all the form page shows.
func (f *Filling) Validate() error {
	for _, field := range f.Fields {
		if !field.Required {
			continue
		}
		if model.IsChoiceType(field.Type) {
			if len(f.selections[field.ID]) == 0 {
				return errors.Errorf("%s: select at least one option", field.Label)
			}
			continue
		}
		if strings.TrimSpace(f.values[field.ID]) == "" {
			return errors.Errorf("%s is required", field.Label)
		}
	}
	return nil
}

// Answers assembles one answer per field: selected option ids for choice
// fields, the raw value otherwise. File fields carry only the filename;
// content goes through the separate upload call.
func (f *Filling) Answers() []model.Answer {
	answers := make([]model.Answer, 0, len(f.Fields))
	for _, field := range f.Fields {
		a := model.Answer{FieldID: field.ID}
		if model.IsChoiceType(field.Type) {
			a.OptionIDs = append([]string(nil), f.selections[field.ID]...)
		} else {
			a.Value = f.values[field.ID]
		}
		answers = append(answers, a)
	}
	return answers
}

// Submit validates and posts the full answer set in one request. On failure
// the filling stays usable so the user can fix things and try again.
func (f *Filling) Submit(ctx context.Context, responses *client.Responses) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	f.state = StateSubmitting
	responseID, err := responses.Submit(ctx, f.Form.Key, f.Answers())
	if err != nil {
		f.state = StateError
		return "", err
	}
	f.state = StateSubmitted
	return responseID, nil
}
