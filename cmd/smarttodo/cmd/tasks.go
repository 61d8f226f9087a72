package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	clientsync "github.com/smarttodo/sync/internal/client/sync"
	"github.com/smarttodo/sync/internal/models"
)

var (
	flagNotes     string
	flagPriority  string
	flagCategory  string
	flagDue       string
	flagRecurring string
	flagAll       bool
)

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := clientsync.TaskInput{
			Text:      strings.Join(args, " "),
			Notes:     flagNotes,
			Priority:  flagPriority,
			Category:  flagCategory,
			Recurring: flagRecurring,
		}
		if flagDue != "" {
			due := flagDue
			in.DueDate = &due
		}
		task, err := orch.AddTask(in)
		if err != nil {
			return err
		}
		fmt.Printf("added %s\n", shortID(task.ID))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := orch.ListTasks()
		if err != nil {
			return err
		}
		shown := 0
		for i := range tasks {
			t := &tasks[i]
			if t.Completed && !flagAll {
				continue
			}
			printTask(t)
			shown++
		}
		if shown == 0 {
			fmt.Println("no tasks")
		}
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a task's completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := resolveAnd(args[0], orch.ToggleTask)
		if err != nil {
			return err
		}
		if task.Completed {
			fmt.Printf("completed %s\n", shortID(task.ID))
		} else {
			fmt.Printf("reopened %s\n", shortID(task.ID))
		}
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id> [text]",
	Short: "Edit a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(args[0])
		if err != nil {
			return err
		}
		in := clientsync.TaskInput{
			Text:      strings.Join(args[1:], " "),
			Notes:     flagNotes,
			Priority:  flagPriority,
			Category:  flagCategory,
			Recurring: flagRecurring,
		}
		if flagDue != "" {
			due := flagDue
			in.DueDate = &due
		}
		task, err := orch.UpdateTask(id, in)
		if err != nil {
			return err
		}
		fmt.Printf("updated %s\n", shortID(task.ID))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveID(args[0])
		if err != nil {
			return err
		}
		if err := orch.DeleteTask(id); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", shortID(id))
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local tasks and merge the server's view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		if err := orch.Push(); err != nil {
			return err
		}
		fmt.Println("synced")
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local tasks with the server's (discards unpushed edits)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		if err := orch.Pull(); err != nil {
			return err
		}
		fmt.Println("pulled")
		return nil
	},
}

// resolveID accepts a full task id or a unique prefix.
func resolveID(arg string) (string, error) {
	tasks, err := orch.ListTasks()
	if err != nil {
		return "", err
	}
	var match string
	for i := range tasks {
		if tasks[i].ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(tasks[i].ID, arg) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", arg)
			}
			match = tasks[i].ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no task matches %q", arg)
	}
	return match, nil
}

func resolveAnd(arg string, fn func(string) (*models.Task, error)) (*models.Task, error) {
	id, err := resolveID(arg)
	if err != nil {
		return nil, err
	}
	return fn(id)
}

func printTask(t *models.Task) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] %s  %s (%s/%s", mark, shortID(t.ID), t.Text, t.Priority, t.Category)
	if t.DueDate != nil && *t.DueDate != "" {
		line += ", due " + *t.DueDate
	}
	if t.Recurring != "" {
		line += ", " + t.Recurring
	}
	line += ")"
	fmt.Println(line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&flagNotes, "notes", "", "free-form notes")
		c.Flags().StringVarP(&flagPriority, "priority", "p", "", "low|medium|high")
		c.Flags().StringVarP(&flagCategory, "category", "c", "", "work|personal|study|health|other")
		c.Flags().StringVar(&flagDue, "due", "", "due date (YYYY-MM-DD)")
		c.Flags().StringVar(&flagRecurring, "recurring", "", "daily|weekly|monthly")
	}
	listCmd.Flags().BoolVarP(&flagAll, "all", "a", false, "include completed tasks")
	rootCmd.AddCommand(addCmd, listCmd, doneCmd, editCmd, rmCmd, syncCmd, pullCmd)
}
