// Package builder holds the draft state behind the form editor: an ordered
// field list mutated by drag-and-drop operations, snapshotted to a storage
// slot after every change so an interrupted session can be picked up again.
package builder

import (
	"encoding/json"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/formkite/formkite/client"
	"github.com/formkite/formkite/model"
)

// Question is one field as the editor holds it.
type Question struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Label           string   `json:"label"`
	Description     string   `json:"description,omitempty"`
	ShowDescription bool     `json:"showDescription,omitempty"`
	Required        bool     `json:"required"`
	Options         []string `json:"options,omitempty"`
	DateFormat      string   `json:"dateFormat,omitempty"`
	FileNote        string   `json:"fileNote,omitempty"`
}

// Draft is the auto-save snapshot shape. The key names are part of the
// stored format, do not rename them.
type Draft struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visible     bool       `json:"visible"`
	Questions   []Question `json:"questions"`
}

const (
	defaultOption   = "Option 1"
	defaultDateFmt  = "DD/MM/YYYY"
	defaultFileNote = "Upload a single file. The filename is recorded with your answer."
)

type Editor struct {
	store client.Storage
	draft Draft
}

// New rehydrates a previously auto-saved draft when one exists, otherwise
// starts blank with visibility on.
func New(store client.Storage) *Editor {
	e := &Editor{store: store, draft: Draft{Visible: true}}
	if raw, ok := store.Get(client.SlotDraft); ok {
		draft := Draft{}
		if err := json.Unmarshal([]byte(raw), &draft); err == nil {
			e.draft = draft
		}
	}
	return e
}

func (e *Editor) Draft() Draft {
	return e.draft
}

// NextAllowed reports whether the editor may advance from the config tab to
// the layout tab. A blank title blocks it.
func (e *Editor) NextAllowed() bool {
	return strings.TrimSpace(e.draft.Name) != ""
}

func (e *Editor) SetName(name string) {
	e.draft.Name = name
	e.autosave()
}

func (e *Editor) SetDescription(description string) {
	e.draft.Description = description
	e.autosave()
}

func (e *Editor) SetVisible(visible bool) {
	e.draft.Visible = visible
	e.autosave()
}

// InsertAt adds a fresh field of the given type at the drop index, with
// type-appropriate defaults already filled in.
func (e *Editor) InsertAt(fieldType string, index int) (Question, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Question{}, err
	}

	q := Question{ID: id.String(), Type: fieldType, Label: "Untitled question"}
	switch {
	case model.IsChoiceType(fieldType):
		q.Options = []string{defaultOption}
	case fieldType == model.FieldDate:
		q.DateFormat = defaultDateFmt
	case fieldType == model.FieldFile:
		q.FileNote = defaultFileNote
	}

	if index < 0 {
		index = 0
	}
	if index > len(e.draft.Questions) {
		index = len(e.draft.Questions)
	}
	e.draft.Questions = append(e.draft.Questions, Question{})
	copy(e.draft.Questions[index+1:], e.draft.Questions[index:])
	e.draft.Questions[index] = q

	e.autosave()
	return q, nil
}

// Move reorders an existing field to the drop index.
func (e *Editor) Move(from, to int) error {
	n := len(e.draft.Questions)
	if from < 0 || from >= n || to < 0 || to >= n {
		return errors.Errorf("move out of range: %d -> %d of %d", from, to, n)
	}
	q := e.draft.Questions[from]
	rest := append(e.draft.Questions[:from], e.draft.Questions[from+1:]...)
	e.draft.Questions = append(rest[:to], append([]Question{q}, rest[to:]...)...)
	e.autosave()
	return nil
}

// Duplicate appends a copy of the field under a new identifier.
func (e *Editor) Duplicate(id string) (Question, error) {
	q, err := e.find(id)
	if err != nil {
		return Question{}, err
	}

	newId, err := uuid.NewV4()
	if err != nil {
		return Question{}, err
	}
	copied := *q
	copied.ID = newId.String()
	copied.Options = append([]string(nil), q.Options...)

	e.draft.Questions = append(e.draft.Questions, copied)
	e.autosave()
	return copied, nil
}

func (e *Editor) Remove(id string) error {
	for i, q := range e.draft.Questions {
		if q.ID == id {
			e.draft.Questions = append(e.draft.Questions[:i], e.draft.Questions[i+1:]...)
			e.autosave()
			return nil
		}
	}
	return errors.Errorf("no field %s", id)
}

func (e *Editor) SetLabel(id, label string) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	q.Label = label
	e.autosave()
	return nil
}

func (e *Editor) SetFieldDescription(id, description string) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	q.Description = description
	e.autosave()
	return nil
}

func (e *Editor) ToggleDescription(id string) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	q.ShowDescription = !q.ShowDescription
	e.autosave()
	return nil
}

func (e *Editor) SetRequired(id string, required bool) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	q.Required = required
	e.autosave()
	return nil
}

func (e *Editor) SetDateFormat(id, format string) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	q.DateFormat = format
	e.autosave()
	return nil
}

func (e *Editor) AddOption(id string) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	q.Options = append(q.Options, defaultOption)
	e.autosave()
	return nil
}

func (e *Editor) SetOption(id string, index int, text string) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(q.Options) {
		return errors.Errorf("option index %d out of range", index)
	}
	q.Options[index] = text
	e.autosave()
	return nil
}

// RemoveOption refuses to delete the last remaining option: a choice field
// with an empty option list cannot be answered.
func (e *Editor) RemoveOption(id string, index int) error {
	q, err := e.find(id)
	if err != nil {
		return err
	}
	if len(q.Options) <= 1 {
		return errors.New("a choice field keeps at least one option")
	}
	if index < 0 || index >= len(q.Options) {
		return errors.Errorf("option index %d out of range", index)
	}
	q.Options = append(q.Options[:index], q.Options[index+1:]...)
	e.autosave()
	return nil
}

func (e *Editor) find(id string) (*Question, error) {
	for i := range e.draft.Questions {
		if e.draft.Questions[i].ID == id {
			return &e.draft.Questions[i], nil
		}
	}
	return nil, errors.Errorf("no field %s", id)
}

func (e *Editor) autosave() {
	buf, err := json.Marshal(e.draft)
	if err != nil {
		return
	}
	e.store.Set(client.SlotDraft, string(buf))
}

// Preview snapshots the current payload for the preview page to pick up.
func (e *Editor) Preview() {
	buf, err := json.Marshal(e.payload(model.StatusDraft))
	if err != nil {
		return
	}
	e.store.Set(client.SlotPreview, string(buf))
}
