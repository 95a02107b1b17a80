package task

import (
	"net/url"
)

// TasksKeyPrefix is the cache namespace for every task-list query.
const TasksKeyPrefix = "tasks"

// StatsKey is the cache key of the aggregate stats query.
const StatsKey = "taskStats"

// Filter constrains a task-list query. Zero values mean "no constraint".
type Filter struct {
	Status   Status
	Priority Priority
}

// Key is the cache key for the list under this filter. Distinct filters
// always produce distinct keys, all under TasksKeyPrefix.
func (f Filter) Key() string {
	return TasksKeyPrefix + "/" + orAny(string(f.Status)) + "/" + orAny(string(f.Priority))
}

// Query renders the filter as URL query parameters. Empty constraints are
// omitted.
func (f Filter) Query() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		v.Set("priority", string(f.Priority))
	}
	return v
}

// Matches reports whether t satisfies the filter.
func (f Filter) Matches(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return true
}

// String is a short description for headers and logs.
func (f Filter) String() string {
	return "status=" + orAny(string(f.Status)) + " priority=" + orAny(string(f.Priority))
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}
