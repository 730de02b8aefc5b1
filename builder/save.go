package builder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"

	"github.com/formkite/formkite/client"
	"github.com/formkite/formkite/log"
	"github.com/formkite/formkite/model"
)

// SaveResult says where the form ended up. Local means the API was not
// reachable (or there was no session) and the form went into the local
// fallback list instead.
type SaveResult struct {
	FormKey string
	Local   bool
}

func (e *Editor) payload(status string) client.FormPayload {
	fields := make([]client.LayoutField, 0, len(e.draft.Questions))
	for _, q := range e.draft.Questions {
		field := client.LayoutField{
			ID:         q.ID,
			Type:       q.Type,
			Label:      q.Label,
			Required:   q.Required,
			Options:    append([]string(nil), q.Options...),
			DateFormat: q.DateFormat,
			FileNote:   q.FileNote,
		}
		if q.ShowDescription {
			field.Description = q.Description
		}
		fields = append(fields, field)
	}

	return client.FormPayload{
		Title:       e.draft.Name,
		Description: e.draft.Description,
		Visible:     e.draft.Visible,
		Status:      status,
		Access:      model.AccessOpen,
		CreatedAt:   time.Now().UTC(),
		Fields:      fields,
	}
}

// Save persists the draft with the given target status. When a session
// exists it attempts the three-step create; any failure there, or having no
// session at all, downgrades to the local fallback list and only logs the
// API error.
func (e *Editor) Save(ctx context.Context, forms *client.Forms, session *client.Session, status string) SaveResult {
	result := SaveResult{Local: true}

	if session.Authenticated() {
		formKey, err := forms.Create(ctx, e.payload(status))
		if err == nil {
			result = SaveResult{FormKey: formKey}
		} else {
			log.Warnf("builder.save: api create failed, keeping form locally: %s", err)
		}
	}

	if result.Local {
		result.FormKey = e.saveLocal(status)
	}

	if status == model.StatusPublished {
		e.store.Remove(client.SlotDraft)
	}
	return result
}

// saveLocal appends a summary record to the local forms list slot. The
// dashboard merges these records with the API list so locally-saved forms
// still show up.
func (e *Editor) saveLocal(status string) string {
	forms := LocalForms(e.store)

	key := "local"
	if id, err := uuid.NewV4(); err == nil {
		key = "local-" + id.String()
	}
	forms = append([]client.FormSummary{{
		Key:         key,
		Title:       e.draft.Name,
		Description: e.draft.Description,
		Visible:     e.draft.Visible,
		Status:      status,
		Access:      model.AccessOpen,
		CreatedAt:   time.Now(),
		Local:       true,
	}}, forms...)

	if buf, err := json.Marshal(forms); err == nil {
		e.store.Set(client.SlotLocalForms, string(buf))
	}
	return key
}

// LocalForms reads the fallback list; corrupt stored state reads as empty.
func LocalForms(store client.Storage) []client.FormSummary {
	raw, ok := store.Get(client.SlotLocalForms)
	if !ok {
		return nil
	}
	forms := []client.FormSummary{}
	if err := json.Unmarshal([]byte(raw), &forms); err != nil {
		return nil
	}
	return forms
}

// RemoveLocal drops a record from the fallback list by key.
func RemoveLocal(store client.Storage, formKey string) {
	forms := LocalForms(store)
	kept := forms[:0]
	for _, f := range forms {
		if f.Key != formKey {
			kept = append(kept, f)
		}
	}
	if buf, err := json.Marshal(kept); err == nil {
		store.Set(client.SlotLocalForms, string(buf))
	}
}
