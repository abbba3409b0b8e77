package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stride-app/stride/internal/domain"
)

func init() {
	taskAddCmd.Flags().StringVarP(&taskPriority, "priority", "p", "M", "Priority: L, M or H")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD)")
	taskAddCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	taskListCmd.Flags().StringVar(&taskListDue, "due", "", "Only tasks due on this date (YYYY-MM-DD)")
	taskDoneCmd.Flags().StringVar(&taskDoneDate, "date", "", "Complete as of this date instead of today (YYYY-MM-DD)")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd)
	rootCmd.AddCommand(taskCmd)
}

var (
	taskPriority    string
	taskDue         string
	taskDescription string
	taskListDue     string
	taskDoneDate    string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage and complete tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks, open first",
	RunE:    runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done ID",
	Short: "Complete a task and collect XP",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	owner, err := resolveUser(ctx, d.Store)
	if err != nil {
		return err
	}
	priority, err := domain.ParsePriority(taskPriority)
	if err != nil {
		return err
	}
	task := domain.Task{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       args[0],
		Description: taskDescription,
		Priority:    priority,
	}
	if taskDue != "" {
		due, err := domain.ParseDate(taskDue)
		if err != nil {
			return err
		}
		task.DueDate = &due
	}

	if err := d.Store.CreateTask(ctx, task); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added task %s\n", task.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	owner, err := resolveUser(ctx, d.Store)
	if err != nil {
		return err
	}
	var f domain.TaskFilter
	if taskListDue != "" {
		due, err := domain.ParseDate(taskListDue)
		if err != nil {
			return err
		}
		f.DueDate = &due
	}

	tasks, err := d.Store.ListTasks(ctx, owner, f)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks. Run 'stride task add <title>' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRIORITY\tDUE\tDONE")
	for _, t := range tasks {
		done := ""
		if t.Completed {
			done = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Priority, formatDate(t.DueDate), done)
	}
	return w.Flush()
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	owner, err := resolveUser(ctx, d.Store)
	if err != nil {
		return err
	}
	today := d.Clock.Today()
	if taskDoneDate != "" {
		if today, err = domain.ParseDate(taskDoneDate); err != nil {
			return err
		}
	}

	out, err := d.Engine.CompleteTaskOn(ctx, args[0], owner, today)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "+%d XP (total %d, streak %d)\n", out.XPEarned, out.CurrentXP, out.CurrentStreak)
	if out.LeveledUp {
		fmt.Fprintf(w, "Level up! You are now level %d\n", *out.NewLevel)
	}
	return nil
}
