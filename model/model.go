package model

import "time"

// Form lifecycle status. Published forms are discoverable by learners,
// drafts are not.
const (
	StatusDraft     = "Draft"
	StatusPublished = "Published"
)

const (
	AccessOpen       = "Open"
	AccessRestricted = "Restricted"
)

const (
	RoleAdmin   = "Admin"
	RoleLearner = "Learner"
)

// Field type tags. The choice types carry an option list, the rest a free
// text value.
const (
	FieldShortText   = "short_text"
	FieldLongText    = "long_text"
	FieldDate        = "date"
	FieldDropdown    = "dropdown"
	FieldRadio       = "radio"
	FieldCheckbox    = "checkbox"
	FieldMultiSelect = "multiselect"
	FieldNumber      = "number"
	FieldFile        = "file"
)

// IsChoiceType reports whether values for the field are option-id sets
// rather than free text.
func IsChoiceType(fieldType string) bool {
	switch fieldType {
	case FieldDropdown, FieldRadio, FieldCheckbox, FieldMultiSelect:
		return true
	}
	return false
}

type Form struct {
	Key         string     `json:"formKey"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Visible     bool       `json:"visible"`
	Status      string     `json:"status"`
	Access      string     `json:"access"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Sections    []Section  `json:"sections,omitempty"`
}

type Section struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

type Field struct {
	ID          string   `json:"fieldId"`
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Choices     []Option `json:"choices,omitempty"`
	DateFormat  string   `json:"dateFormat,omitempty"`
	FileNote    string   `json:"fileNote,omitempty"`
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Response struct {
	ID          string    `json:"responseId"`
	FormKey     string    `json:"formKey"`
	FormTitle   string    `json:"formTitle,omitempty"`
	UserID      string    `json:"userId"`
	SubmittedAt time.Time `json:"submittedAt"`
	Answers     []Answer  `json:"answers,omitempty"`
}

// Answer holds either a free-text value or a set of selected option ids,
// never both.
type Answer struct {
	FieldID   string   `json:"fieldId"`
	Value     string   `json:"answerValue,omitempty"`
	OptionIDs []string `json:"optionIds,omitempty"`
}

type User struct {
	ID        string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page is the envelope every paged list endpoint returns.
type Page struct {
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Items    []any `json:"items"`
}
