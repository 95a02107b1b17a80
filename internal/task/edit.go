package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 500
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = fmt.Errorf("title must be at most %d characters", MaxTitleLen)
	ErrDescriptionTooLong = fmt.Errorf("description must be at most %d characters", MaxDescriptionLen)
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidDueDate     = errors.New("invalid due date")
	ErrEmptyEdit          = errors.New("nothing to update")
)

// Edit is a typed set of task field changes. Nil fields are left untouched
// on update. ClearDescription and ClearDueDate send an explicit null.
type Edit struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *Status
	Priority         *Priority
	DueDate          *time.Time
	ClearDueDate     bool
}

// StatusEdit is the single-field update issued by a kanban move.
func StatusEdit(s Status) Edit {
	return Edit{Status: &s}
}

// IsEmpty reports whether the edit changes nothing.
func (e Edit) IsEmpty() bool {
	return e.Title == nil && e.Description == nil && !e.ClearDescription &&
		e.Status == nil && e.Priority == nil && e.DueDate == nil && !e.ClearDueDate
}

// Validate checks the fields that are set.
func (e Edit) Validate() error {
	if e.Title != nil {
		if strings.TrimSpace(*e.Title) == "" {
			return ErrTitleRequired
		}
		if utf8.RuneCountInString(*e.Title) > MaxTitleLen {
			return ErrTitleTooLong
		}
	}
	if e.Description != nil && utf8.RuneCountInString(*e.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if e.Status != nil && !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *e.Status)
	}
	if e.Priority != nil && !e.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, *e.Priority)
	}
	return nil
}

// ValidateCreate is Validate plus the fields a new task must carry.
func (e Edit) ValidateCreate() error {
	if e.Title == nil {
		return ErrTitleRequired
	}
	return e.Validate()
}

// MarshalJSON emits only the fields that are set, with explicit nulls for
// cleared optional fields.
func (e Edit) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	if e.Title != nil {
		body["title"] = *e.Title
	}
	switch {
	case e.Description != nil:
		body["description"] = *e.Description
	case e.ClearDescription:
		body["description"] = nil
	}
	if e.Status != nil {
		body["status"] = *e.Status
	}
	if e.Priority != nil {
		body["priority"] = *e.Priority
	}
	switch {
	case e.DueDate != nil:
		body["due_date"] = e.DueDate.UTC().Format(time.RFC3339)
	case e.ClearDueDate:
		body["due_date"] = nil
	}
	return json.Marshal(body)
}

// Apply returns t with the edit applied. Used by the in-memory test backend.
func (e Edit) Apply(t Task) Task {
	if e.Title != nil {
		t.Title = *e.Title
	}
	if e.Description != nil {
		d := *e.Description
		t.Description = &d
	} else if e.ClearDescription {
		t.Description = nil
	}
	if e.Status != nil {
		t.Status = *e.Status
	}
	if e.Priority != nil {
		t.Priority = *e.Priority
	}
	if e.DueDate != nil {
		d := *e.DueDate
		t.DueDate = &d
	} else if e.ClearDueDate {
		t.DueDate = nil
	}
	return t
}

// Draft is raw form input. Every field is a string as typed by the user.
type Draft struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
}

// NewDraft returns an empty form with the server defaults preselected.
func NewDraft() Draft {
	return Draft{Status: string(StatusTodo), Priority: string(PriorityMedium)}
}

// DraftFrom prefills a form from an existing task.
func DraftFrom(t Task) Draft {
	d := Draft{
		Title:       t.Title,
		Description: t.Desc(),
		Status:      string(t.Status),
		Priority:    string(t.Priority),
	}
	if d.Status == "" {
		d.Status = string(StatusTodo)
	}
	if d.Priority == "" {
		d.Priority = string(PriorityMedium)
	}
	if t.DueDate != nil {
		d.DueDate = t.DueDate.UTC().Format("2006-01-02")
	}
	return d
}

// Validate converts the draft into a full Edit. The title is trimmed, an
// empty description or due date becomes an explicit null, and a date-only
// due date is normalized to midnight UTC.
func (d Draft) Validate() (Edit, error) {
	title := strings.TrimSpace(d.Title)
	desc := strings.TrimSpace(d.Description)

	status := Status(strings.TrimSpace(d.Status))
	if status == "" {
		status = StatusTodo
	}
	priority := Priority(strings.TrimSpace(d.Priority))
	if priority == "" {
		priority = PriorityMedium
	}

	e := Edit{Title: &title, Status: &status, Priority: &priority}
	if desc == "" {
		e.ClearDescription = true
	} else {
		e.Description = &desc
	}

	due, err := ParseDueDate(d.DueDate)
	if err != nil {
		return Edit{}, err
	}
	if due == nil {
		e.ClearDueDate = true
	} else {
		e.DueDate = due
	}

	if err := e.ValidateCreate(); err != nil {
		return Edit{}, err
	}
	return e, nil
}

// ParseDueDate accepts "", YYYY-MM-DD, or a date-time with or without a zone.
func ParseDueDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	if t, err := ParseTimestamp(v); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDueDate, v)
}
