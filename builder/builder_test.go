package builder_test

import (
	"testing"

	"github.com/formkite/formkite/builder"
	"github.com/formkite/formkite/client"
	"github.com/formkite/formkite/model"
)

func TestNextAllowedNeedsTitle(t *testing.T) {
	e := builder.New(client.NewMemoryStorage())

	if e.NextAllowed() {
		t.Error("blank editor allowed next")
	}
	e.SetName("   ")
	if e.NextAllowed() {
		t.Error("whitespace title allowed next")
	}
	e.SetName("Weekly Checkin")
	if !e.NextAllowed() {
		t.Error("titled editor blocked")
	}
}

func TestInsertDefaultsPerType(t *testing.T) {
	e := builder.New(client.NewMemoryStorage())

	radio, err := e.InsertAt(model.FieldRadio, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(radio.Options) != 1 || radio.Options[0] != "Option 1" {
		t.Errorf("radio options = %v", radio.Options)
	}

	date, _ := e.InsertAt(model.FieldDate, 1)
	if date.DateFormat != "DD/MM/YYYY" {
		t.Errorf("date format = %q", date.DateFormat)
	}

	file, _ := e.InsertAt(model.FieldFile, 2)
	if file.FileNote == "" {
		t.Error("file field has no note")
	}

	text, _ := e.InsertAt(model.FieldShortText, 99)
	if text.Options != nil || text.DateFormat != "" {
		t.Errorf("text field carries choice defaults: %+v", text)
	}
	if text.Label != "Untitled question" {
		t.Errorf("label = %q", text.Label)
	}
}

func TestInsertAtIndex(t *testing.T) {
	e := builder.New(client.NewMemoryStorage())
	first, _ := e.InsertAt(model.FieldShortText, 0)
	second, _ := e.InsertAt(model.FieldShortText, 0)

	qs := e.Draft().Questions
	if qs[0].ID != second.ID || qs[1].ID != first.ID {
		t.Errorf("order = %s, %s", qs[0].ID, qs[1].ID)
	}
}

func TestMove(t *testing.T) {
	e := builder.New(client.NewMemoryStorage())
	a, _ := e.InsertAt(model.FieldShortText, 0)
	b, _ := e.InsertAt(model.FieldShortText, 1)
	c, _ := e.InsertAt(model.FieldShortText, 2)

	if err := e.Move(0, 2); err != nil {
		t.Fatal(err)
	}
	qs := e.Draft().Questions
	want := []string{b.ID, c.ID, a.ID}
	for i, id := range want {
		if qs[i].ID != id {
			t.Errorf("after move qs[%d] = %s, want %s", i, qs[i].ID, id)
		}
	}

	if err := e.Move(0, 5); err == nil {
		t.Error("out of range move succeeded")
	}
}

func TestDuplicateGetsFreshId(t *testing.T) {
	e := builder.New(client.NewMemoryStorage())
	q, _ := e.InsertAt(model.FieldCheckbox, 0)
	e.SetLabel(q.ID, "Pick some")
	e.AddOption(q.ID)

	copied, err := e.Duplicate(q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if copied.ID == q.ID {
		t.Error("duplicate kept the source id")
	}
	if copied.Label != "Pick some" || len(copied.Options) != 2 {
		t.Errorf("duplicate = %+v", copied)
	}

	// mutating the copy's options must not touch the original
	e.SetOption(copied.ID, 0, "changed")
	orig := e.Draft().Questions[0]
	if orig.Options[0] == "changed" {
		t.Error("duplicate shares the option slice")
	}
}

func TestRemoveOptionKeepsLastOne(t *testing.T) {
	e := builder.New(client.NewMemoryStorage())
	q, _ := e.InsertAt(model.FieldDropdown, 0)

	if err := e.RemoveOption(q.ID, 0); err == nil {
		t.Error("removed the last option")
	}
	e.AddOption(q.ID)
	if err := e.RemoveOption(q.ID, 0); err != nil {
		t.Errorf("remove with two options: %s", err)
	}
}

func TestAutosaveRehydrates(t *testing.T) {
	store := client.NewMemoryStorage()

	e := builder.New(store)
	e.SetName("Weekly Checkin")
	e.SetDescription("Every Friday")
	q, _ := e.InsertAt(model.FieldLongText, 0)
	e.SetRequired(q.ID, true)

	// a new editor over the same store picks up where the old one stopped
	restored := builder.New(store)
	draft := restored.Draft()
	if draft.Name != "Weekly Checkin" || draft.Description != "Every Friday" {
		t.Errorf("draft = %+v", draft)
	}
	if len(draft.Questions) != 1 || !draft.Questions[0].Required {
		t.Errorf("questions = %+v", draft.Questions)
	}
}

func TestRehydrateIgnoresCorruptDraft(t *testing.T) {
	store := client.NewMemoryStorage()
	store.Set(client.SlotDraft, "{broken")

	e := builder.New(store)
	if len(e.Draft().Questions) != 0 || e.Draft().Name != "" {
		t.Errorf("corrupt draft produced state: %+v", e.Draft())
	}
	if !e.Draft().Visible {
		t.Error("fresh draft should default to visible")
	}
}
