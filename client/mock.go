package client

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/formkite/formkite/model"
)

// MockForms is an in-memory stand-in for the forms API so the rest of the
// application can run without a live backend. Nothing survives a restart
// and nothing is reconciled against real data.
type MockForms struct {
	mu    sync.Mutex
	forms []FormSummary
}

func NewMockForms() *MockForms {
	now := time.Now()
	seed := []struct {
		key, title, status string
	}{
		{"101", "Course Feedback", model.StatusPublished},
		{"102", "Employee Onboarding", model.StatusPublished},
		{"103", "Training Needs Survey", model.StatusDraft},
		{"104", "Workshop Registration", model.StatusPublished},
		{"105", "Quarterly Self-Assessment", model.StatusDraft},
		{"106", "Exit Interview", model.StatusPublished},
	}

	m := &MockForms{}
	for i, s := range seed {
		m.forms = append(m.forms, FormSummary{
			Key:       s.key,
			Title:     s.title,
			Status:    s.status,
			Access:    model.AccessOpen,
			Visible:   true,
			CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
		})
	}
	return m
}

func (m *MockForms) List(_ context.Context, page, pageSize int, status string) (FormPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := []FormSummary{}
	for _, f := range m.forms {
		if status == "" || f.Status == status {
			filtered = append(filtered, f)
		}
	}

	result := FormPage{Total: len(filtered), Page: page, PageSize: pageSize, Items: []FormSummary{}}
	if pageSize < 1 {
		result.Items = filtered
		return result, nil
	}
	start := (page - 1) * pageSize
	if start < 0 || start >= len(filtered) {
		return result, nil
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	result.Items = filtered[start:end]
	return result, nil
}

func (m *MockForms) ToggleStatus(_ context.Context, formKey, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.forms {
		if m.forms[i].Key == formKey {
			if status == "" {
				// plain toggle when no explicit target status given
				if m.forms[i].Status == model.StatusPublished {
					status = model.StatusDraft
				} else {
					status = model.StatusPublished
				}
			}
			m.forms[i].Status = status
			return nil
		}
	}
	return errors.Errorf("form %s not found", formKey)
}

func (m *MockForms) SetAccess(_ context.Context, formKey, access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.forms {
		if m.forms[i].Key == formKey {
			m.forms[i].Access = access
			return nil
		}
	}
	return errors.Errorf("form %s not found", formKey)
}

// Clone duplicates a form under a fresh key and puts the copy at the top of
// the list, the way the dashboard expects to see it after the call.
func (m *MockForms) Clone(_ context.Context, formKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.forms {
		if f.Key == formKey {
			id, err := uuid.NewV4()
			if err != nil {
				return "", err
			}
			copy := f
			copy.Key = id.String()
			copy.Title = f.Title + " (Copy)"
			copy.Status = model.StatusDraft
			copy.CreatedAt = time.Now()
			copy.ResponseCount = 0
			m.forms = append([]FormSummary{copy}, m.forms...)
			return copy.Key, nil
		}
	}
	return "", errors.Errorf("form %s not found", formKey)
}

func (m *MockForms) Remove(_ context.Context, formKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.forms[:0]
	for _, f := range m.forms {
		if f.Key != formKey {
			kept = append(kept, f)
		}
	}
	m.forms = kept
	return nil
}
