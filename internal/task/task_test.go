package task

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterKey_DistinctPerPair(t *testing.T) {
	seen := map[string]Filter{}
	statuses := append([]Status{""}, Statuses()...)
	priorities := append([]Priority{""}, Priorities()...)
	for _, s := range statuses {
		for _, p := range priorities {
			f := Filter{Status: s, Priority: p}
			key := f.Key()
			assert.True(t, strings.HasPrefix(key, TasksKeyPrefix), key)
			prev, dup := seen[key]
			assert.False(t, dup, "key %q shared by %v and %v", key, prev, f)
			seen[key] = f
		}
	}
	assert.Len(t, seen, 20)
	assert.False(t, strings.HasPrefix(StatsKey, TasksKeyPrefix))
}

func TestFilterQuery_OmitsEmpty(t *testing.T) {
	assert.Equal(t, "", Filter{}.Query().Encode())
	assert.Equal(t, "priority=high&status=todo", Filter{Status: StatusTodo, Priority: PriorityHigh}.Query().Encode())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, Status(""), s)

	s, err = ParseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("blocked")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParsePriority("urgent")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestUnknownEnumsDecodeAndFallBack(t *testing.T) {
	var tk Task
	err := json.Unmarshal([]byte(`{"id":1,"title":"x","status":"archived","priority":"whenever","created_at":"2024-01-01T00:00:00Z"}`), &tk)
	require.NoError(t, err)
	assert.False(t, tk.Status.Valid())
	assert.Equal(t, "archived", tk.Status.Label())
	assert.Equal(t, "○", tk.Status.Icon())
	assert.False(t, tk.Priority.Valid())
}

func TestDraftValidate_NormalizesForm(t *testing.T) {
	d := Draft{Title: "  Write report  ", Description: "   ", Priority: "high", DueDate: "2025-03-01"}
	e, err := d.Validate()
	require.NoError(t, err)

	assert.Equal(t, "Write report", *e.Title)
	assert.Nil(t, e.Description)
	assert.True(t, e.ClearDescription)
	assert.Equal(t, StatusTodo, *e.Status)
	assert.Equal(t, PriorityHigh, *e.Priority)
	require.NotNil(t, e.DueDate)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *e.DueDate)

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "2025-03-01T00:00:00Z", body["due_date"])
	assert.Contains(t, body, "description")
	assert.Nil(t, body["description"])
}

func TestDraftValidate_Errors(t *testing.T) {
	cases := []struct {
		name  string
		draft Draft
		want  error
	}{
		{"empty title", Draft{Title: "   "}, ErrTitleRequired},
		{"long title", Draft{Title: strings.Repeat("a", MaxTitleLen+1)}, ErrTitleTooLong},
		{"long description", Draft{Title: "t", Description: strings.Repeat("d", MaxDescriptionLen+1)}, ErrDescriptionTooLong},
		{"bad status", Draft{Title: "t", Status: "blocked"}, ErrInvalidStatus},
		{"bad priority", Draft{Title: "t", Priority: "urgent"}, ErrInvalidPriority},
		{"bad date", Draft{Title: "t", DueDate: "next week"}, ErrInvalidDueDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.draft.Validate()
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDraftFrom_RoundTripsDate(t *testing.T) {
	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	desc := "body"
	d := DraftFrom(Task{ID: 3, Title: "t", Description: &desc, Status: StatusDone, DueDate: &due})
	assert.Equal(t, "2025-06-30", d.DueDate)
	assert.Equal(t, "body", d.Description)
	assert.Equal(t, string(PriorityMedium), d.Priority)
}

func TestStatusEdit_MarshalsSingleField(t *testing.T) {
	raw, err := json.Marshal(StatusEdit(StatusDone))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"done"}`, string(raw))
	assert.False(t, StatusEdit(StatusDone).IsEmpty())
	assert.True(t, Edit{}.IsEmpty())
}

func TestDueIndicator(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	label, overdue := Task{DueDate: &past}.DueIndicator(now)
	assert.NotEmpty(t, label)
	assert.True(t, overdue)

	_, overdue = Task{DueDate: &future}.DueIndicator(now)
	assert.False(t, overdue)

	label, overdue = Task{}.DueIndicator(now)
	assert.Empty(t, label)
	assert.False(t, overdue)
}

func TestStatsPercent(t *testing.T) {
	s := Stats{TotalTasks: 4}
	assert.Equal(t, 25, s.Percent(1))
	assert.Equal(t, 0, Stats{}.Percent(3))
}

func TestTaskDecode_ZonelessTimestampsAreUTC(t *testing.T) {
	var tk Task
	err := json.Unmarshal([]byte(`{"id":3,"title":"x","status":"todo","priority":"low",
		"due_date":"2025-06-01T00:00:00","created_at":"2025-05-01T10:20:30.123456","updated_at":null}`), &tk)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tk.ID)
	assert.Equal(t, "x", tk.Title)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 20, 30, 123456000, time.UTC), tk.CreatedAt)
	require.NotNil(t, tk.DueDate)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *tk.DueDate)
	assert.Nil(t, tk.UpdatedAt)
}

func TestTaskDecode_ZonedTimestampsKeepOffset(t *testing.T) {
	var tk Task
	err := json.Unmarshal([]byte(`{"id":1,"title":"x","created_at":"2025-05-01T10:20:30+02:00","updated_at":"2025-05-02T00:00:00Z"}`), &tk)
	require.NoError(t, err)
	assert.True(t, tk.CreatedAt.Equal(time.Date(2025, 5, 1, 8, 20, 30, 0, time.UTC)))
	require.NotNil(t, tk.UpdatedAt)
	assert.Nil(t, tk.DueDate)
}

func TestTaskDecode_BadTimestamp(t *testing.T) {
	var tk Task
	err := json.Unmarshal([]byte(`{"id":1,"created_at":"yesterday"}`), &tk)
	assert.Error(t, err)
}

func TestParseDueDate_AcceptsZoneless(t *testing.T) {
	d, err := ParseDueDate("2025-03-01T09:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), *d)
}
