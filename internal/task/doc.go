// Package task defines the task data model shared by the API client, the
// cache and the views: tasks, their status and priority enums, list filters,
// aggregate stats, and the typed edit structures that form input is
// validated into before it reaches the server.
package task
