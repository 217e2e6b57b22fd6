package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/parks-gardens/fieldops-api/internal/dto"
	"github.com/parks-gardens/fieldops-api/internal/fieldclient"
	"github.com/parks-gardens/fieldops-api/internal/notify"
	"github.com/spf13/cobra"
)

func loginCmd(serverURL *string) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession()
			if err != nil {
				return err
			}
			server := resolveServer(*serverURL, s)

			if password == "" {
				password, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
				if err != nil {
					return err
				}
			}

			client := fieldclient.New(server)
			resp, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			if err := saveSession(&session{Server: server, Token: resp.Token, UserID: resp.User.ID, Name: resp.User.Name}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.User.Name, resp.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func tasksCmd(serverURL *string) *cobra.Command {
	var date string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List your tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*serverURL)
			if err != nil {
				return err
			}
			tasks, err := client.MyTasks(cmd.Context(), date)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Only tasks scheduled on this day (YYYY-MM-DD)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func startCmd(serverURL *string) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "start [task-id]",
		Short: "Acknowledge the task's safety documents and start it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			client, err := newClient(*serverURL)
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			task, err := client.StartTask(cmd.Context(), id, func(doc fieldclient.Document) bool {
				fmt.Fprintf(out, "\n%s: %s\n", doc.Ref.Type.Label(), doc.Title)
				for _, item := range doc.Items {
					fmt.Fprintf(out, "  - %s\n", item)
				}
				if assumeYes {
					return true
				}
				fmt.Fprint(out, "I have read and understood this document [y/N]: ")
				answer, _ := in.ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				return answer == "y" || answer == "yes"
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Started task %d: %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Confirm every document without prompting")

	return cmd
}

func completeCmd(serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "complete [task-id]",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			client, err := newClient(*serverURL)
			if err != nil {
				return err
			}
			task, err := client.CompleteTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed task %d: %s\n", task.ID, task.Title)
			return nil
		},
	}
}

func incompleteCmd(serverURL *string) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "incomplete [task-id]",
		Short: "Report a task as not finished so it can be rescheduled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			client, err := newClient(*serverURL)
			if err != nil {
				return err
			}
			task, err := client.ReportIncomplete(cmd.Context(), id, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d sent back for rescheduling\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the task could not be finished")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func watchCmd(serverURL *string) *cobra.Command {
	var rooms []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream task and staff notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(*serverURL)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			return client.Watch(ctx, rooms, func(frame notify.Frame) error {
				switch frame.Type {
				case notify.FrameEvent:
					fmt.Fprintf(out, "%s %s\n", frame.Event, frame.Data)
				case notify.FrameError:
					fmt.Fprintf(out, "error: %s %s\n", frame.Code, frame.Message)
				default:
					fmt.Fprintf(out, "%s %s\n", frame.Type, frame.Room)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&rooms, "room", nil, "Additional rooms to join")

	return cmd
}

func printTasks(w io.Writer, tasks []dto.TaskDTO) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDATE\tTITLE\tSAFETY")
	for _, t := range tasks {
		date := "-"
		if t.ScheduledDate != nil {
			date = t.ScheduledDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d doc(s)\n", t.ID, t.Status, t.Priority, date, t.Title, len(fieldclient.Documents(&t)))
	}
	_ = tw.Flush()
}

func parseTaskID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

