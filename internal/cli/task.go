package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/imkarma/taskboard/internal/kanban"
	"github.com/imkarma/taskboard/internal/task"
	"github.com/imkarma/taskboard/internal/worker"
)

var (
	taskDescription string
	taskStatus      string
	taskPriority    string
	taskDue         string
	taskTitle       string
	taskClearDesc   bool
	taskClearDue    bool
	taskTo          string
	taskWorkers     int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage tasks",
	Long:  "Create, list, edit, move and delete tasks on the remote task service.",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskCreate,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status and priority",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Change fields of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskUpdate,
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete one or more tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskDelete,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [id...] --to <status>",
	Short: "Move tasks to another kanban column",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskMove,
}

func init() {
	taskCreateCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "Task description")
	taskCreateCmd.Flags().StringVarP(&taskStatus, "status", "s", string(task.StatusTodo), "Status: todo, in_progress, done")
	taskCreateCmd.Flags().StringVarP(&taskPriority, "priority", "p", string(task.PriorityMedium), "Priority: low, medium, high, critical")
	taskCreateCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD)")

	taskListCmd.Flags().StringVarP(&taskStatus, "status", "s", "", "Only tasks with this status")
	taskListCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "Only tasks with this priority")

	taskUpdateCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "New title")
	taskUpdateCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "New description")
	taskUpdateCmd.Flags().StringVarP(&taskStatus, "status", "s", "", "New status")
	taskUpdateCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "New priority")
	taskUpdateCmd.Flags().StringVar(&taskDue, "due", "", "New due date (YYYY-MM-DD)")
	taskUpdateCmd.Flags().BoolVar(&taskClearDesc, "clear-desc", false, "Remove the description")
	taskUpdateCmd.Flags().BoolVar(&taskClearDue, "clear-due", false, "Remove the due date")

	taskDeleteCmd.Flags().IntVarP(&taskWorkers, "workers", "w", 4, "Deletes to run at once")

	taskMoveCmd.Flags().StringVar(&taskTo, "to", "", "Destination status: todo, in_progress, done")
	taskMoveCmd.Flags().IntVarP(&taskWorkers, "workers", "w", 4, "Moves to run at once")
	_ = taskMoveCmd.MarkFlagRequired("to")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskMoveCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	d := task.Draft{
		Title:       strings.Join(args, " "),
		Description: taskDescription,
		Status:      taskStatus,
		Priority:    taskPriority,
		DueDate:     taskDue,
	}
	t, err := b.Save(context.Background(), d, 0)
	if err != nil {
		return failure(err, "Failed to save task")
	}

	fmt.Printf("Created task #%d: %s [%s]\n", t.ID, t.Title, t.Priority)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	if err := b.View.SetStatus(task.Status(taskStatus)); err != nil {
		return err
	}
	if err := b.View.SetPriority(task.Priority(taskPriority)); err != nil {
		return err
	}

	tasks, err := b.List(context.Background())
	if err != nil {
		return failure(err, "Failed to load tasks")
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	now := time.Now()
	for _, t := range tasks {
		due := ""
		if label, overdue := t.DueIndicator(now); label != "" {
			if overdue {
				due = " " + redStyle.Render("⚠ overdue "+label)
			} else {
				due = " " + dimStyle.Render("due "+label)
			}
		}
		fmt.Printf("#%-4d %-12s %-8s %s%s\n", t.ID, t.Status, t.Priority, t.Title, due)
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	t, err := b.Client.GetTask(context.Background(), id)
	if err != nil {
		return failure(err, "Failed to load task")
	}

	fmt.Printf("Task #%d\n", t.ID)
	fmt.Printf("  Title:    %s\n", t.Title)
	fmt.Printf("  Status:   %s\n", statusStyle(t.Status).Render(t.Status.Label()))
	fmt.Printf("  Priority: %s\n", priorityStyle(t.Priority).Render(t.Priority.Label()))
	if t.Desc() != "" {
		fmt.Printf("  Desc:     %s\n", t.Desc())
	}
	if label, overdue := t.DueIndicator(time.Now()); label != "" {
		if overdue {
			fmt.Printf("  Due:      %s\n", redStyle.Render(label+" (overdue)"))
		} else {
			fmt.Printf("  Due:      %s\n", label)
		}
	}
	fmt.Printf("  Created:  %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	if t.UpdatedAt != nil {
		fmt.Printf("  Updated:  %s\n", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// editFromFlags builds an edit holding only the flags the user set.
func editFromFlags(cmd *cobra.Command) (task.Edit, error) {
	var e task.Edit
	f := cmd.Flags()
	if f.Changed("title") {
		title := strings.TrimSpace(taskTitle)
		e.Title = &title
	}
	if f.Changed("desc") {
		desc := strings.TrimSpace(taskDescription)
		e.Description = &desc
	}
	if taskClearDesc {
		e.Description = nil
		e.ClearDescription = true
	}
	if f.Changed("status") {
		s, err := task.ParseStatus(taskStatus)
		if err != nil {
			return task.Edit{}, err
		}
		e.Status = &s
	}
	if f.Changed("priority") {
		p, err := task.ParsePriority(taskPriority)
		if err != nil {
			return task.Edit{}, err
		}
		e.Priority = &p
	}
	if f.Changed("due") {
		due, err := task.ParseDueDate(taskDue)
		if err != nil {
			return task.Edit{}, err
		}
		e.DueDate = due
	}
	if taskClearDue {
		e.DueDate = nil
		e.ClearDueDate = true
	}
	return e, nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	e, err := editFromFlags(cmd)
	if err != nil {
		return err
	}
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	t, err := b.Mutations.Update(context.Background(), id, e)
	if err != nil {
		return failure(err, "Failed to save task")
	}

	fmt.Printf("Updated task #%d: %s [%s, %s]\n", t.ID, t.Title, t.Status, t.Priority)
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()
	if len(ids) == 1 {
		if err := b.Delete(ctx, ids[0]); err != nil {
			return failure(err, "Failed to delete task")
		}
		fmt.Printf("Deleted task #%d\n", ids[0])
		return nil
	}

	results := b.Mutations.DeleteMany(ctx, ids, taskWorkers)
	return report(results, "Deleted", "Failed to delete task")
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	to, err := task.ParseStatus(taskTo)
	if err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("--to is required (todo, in_progress or done)")
	}
	b, done, err := mustBoard()
	if err != nil {
		return err
	}
	defer done()

	ctx := context.Background()
	if len(ids) == 1 {
		t, out, err := b.Move(ctx, ids[0], to)
		if err != nil {
			return failure(err, "Failed to move task")
		}
		switch out {
		case kanban.Moved:
			fmt.Printf("Moved task #%d to %s\n", t.ID, t.Status.Label())
		case kanban.SameColumn:
			fmt.Printf("Task #%d is already in %s\n", t.ID, to.Label())
		}
		return nil
	}

	results := b.Mutations.UpdateMany(ctx, ids, task.StatusEdit(to), taskWorkers)
	return report(results, "Moved to "+to.Label()+":", "Failed to move task")
}

// report prints one line per bulk result and fails when any job failed.
func report(results []worker.Result, verb, fallback string) error {
	for _, r := range results {
		if r.OK() {
			fmt.Printf("  %s #%d %s\n", greenStyle.Render("✓"), r.TaskID, dimStyle.Render(r.Duration.Round(time.Millisecond).String()))
			continue
		}
		fmt.Printf("  %s #%d %s\n", redStyle.Render("✗"), r.TaskID, failure(r.Error, fallback))
	}
	failed := worker.Failed(results)
	fmt.Printf("%s %d of %d tasks\n", verb, len(results)-len(failed), len(results))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d tasks failed", len(failed), len(results))
	}
	return nil
}
