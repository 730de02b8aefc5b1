// Package review turns the flat answer rows the admin endpoint returns into
// per-submission records the review screens can show: answers grouped by
// submission, field ids resolved to labels, option ids resolved to their
// display text, file answers detected.
package review

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/formkite/formkite/client"
	"github.com/formkite/formkite/model"
)

// Submission is one grouped submission, answers in first-seen row order.
type Submission struct {
	ResponseID  string
	UserID      string
	UserEmail   string
	SubmittedAt time.Time
	Answers     []Answer
}

// Answer is one answered field, ready for display.
type Answer struct {
	FieldID string
	Label   string
	Display string
	FileID  string
}

// Group folds flat (submission, field) rows into submissions, keeping the
// order submissions first appear in.
func Group(rows []client.AnswerRow) []Submission {
	submissions := []Submission{}
	index := map[string]int{}

	for _, row := range rows {
		i, ok := index[row.ResponseID]
		if !ok {
			i = len(submissions)
			index[row.ResponseID] = i
			submissions = append(submissions, Submission{
				ResponseID:  row.ResponseID,
				UserID:      row.UserID,
				SubmittedAt: row.SubmittedAt,
			})
		}
		submissions[i].Answers = append(submissions[i].Answers, Answer{
			FieldID: row.FieldID,
			Display: displayValue(row.Value),
		})
	}
	return submissions
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// Labeler resolves answer field ids back to the layout's fields. Stored
// field ids do not always match the layout verbatim: one service rewrites
// them with a trailing random hex segment, another changes the casing.
type Labeler struct {
	fields []model.Field
}

func NewLabeler(detail client.FormDetail) *Labeler {
	l := &Labeler{}
	for _, section := range detail.Sections {
		l.fields = append(l.fields, section.Fields...)
	}
	return l
}

// Resolve finds the layout field for an answer's field id, trying exact
// match, then case-insensitive, then suffix containment, then equality with
// any trailing hex segment stripped from both sides.
func (l *Labeler) Resolve(fieldID string) (model.Field, bool) {
	for _, f := range l.fields {
		if f.ID == fieldID {
			return f, true
		}
	}
	for _, f := range l.fields {
		if strings.EqualFold(f.ID, fieldID) {
			return f, true
		}
	}
	for _, f := range l.fields {
		if f.ID != "" && (strings.HasSuffix(fieldID, f.ID) || strings.HasSuffix(f.ID, fieldID)) {
			return f, true
		}
	}
	stripped := stripHexTail(fieldID)
	for _, f := range l.fields {
		if stripped != "" && stripHexTail(f.ID) == stripped {
			return f, true
		}
	}
	return model.Field{}, false
}

// stripHexTail removes a trailing "-abc123" style segment when it is all
// hex digits.
func stripHexTail(id string) string {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 || i == len(id)-1 {
		return id
	}
	for _, r := range id[i+1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return id
		}
	}
	return id[:i]
}

// Annotate fills in labels, option display texts and file ids on grouped
// submissions using the form's layout. Unresolvable field ids keep the raw
// id as label so the row is still shown.
func (l *Labeler) Annotate(submissions []Submission) {
	for si := range submissions {
		for ai := range submissions[si].Answers {
			a := &submissions[si].Answers[ai]

			field, ok := l.Resolve(a.FieldID)
			if !ok {
				a.Label = a.FieldID
				continue
			}
			a.Label = field.Label

			if model.IsChoiceType(field.Type) {
				a.Display = optionTexts(field, a.Display)
			}
			if field.Type == model.FieldFile {
				if id, ok := FileID(a.Display); ok {
					a.FileID = id
					a.Display = ""
				}
			}
		}
	}
}

// optionTexts maps a comma-joined list of option ids to their texts. Ids
// with no matching option pass through unchanged.
func optionTexts(field model.Field, display string) string {
	if display == "" {
		return ""
	}
	texts := map[string]string{}
	for _, opt := range field.Choices {
		texts[opt.ID] = opt.Text
	}

	parts := strings.Split(display, ", ")
	for i, part := range parts {
		if text, ok := texts[part]; ok {
			parts[i] = text
		}
	}
	return strings.Join(parts, ", ")
}

const fileTokenPrefix = "file:"

// FileID reports whether a stored answer value is a file token and returns
// the file id it carries.
func FileID(value string) (string, bool) {
	if !strings.HasPrefix(value, fileTokenPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(value, fileTokenPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// Filter keeps the items the predicate accepts.
func Filter[T any](items []T, keep func(T) bool) []T {
	kept := []T{}
	for _, item := range items {
		if keep(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

// Sort orders items by the given less function, stably.
func Sort[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// Paginate slices out one page; a pageSize below 1 means everything.
func Paginate[T any](items []T, page, pageSize int) []T {
	if pageSize < 1 {
		return items
	}
	start := (page - 1) * pageSize
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
