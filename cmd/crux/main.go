package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"crux/internal/bootstrap"
	plugindto "crux/internal/modules/plugin/dto"
	sessiondto "crux/internal/modules/session/dto"
	"crux/internal/platform/activity"
	"crux/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var homePath string

	root := &cobra.Command{
		Use:           "crux",
		Short:         "Track climbing sessions, attempts, and routes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&homePath, "home", "", "data home directory (default ~/.crux)")

	root.AddCommand(newSessionCmd(&homePath))
	root.AddCommand(newAttemptCmd(&homePath))
	root.AddCommand(newRouteCmd(&homePath))
	root.AddCommand(newStatsCmd(&homePath))
	root.AddCommand(newBackupCmd(&homePath))
	root.AddCommand(newPluginCmd(&homePath))
	root.AddCommand(newActivityCmd(&homePath))
	root.AddCommand(newTUICmd(&homePath))
	return root
}

func loadApp(homePath string) (*bootstrap.App, error) {
	cfg, err := config.New(homePath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

func newTUICmd(homePath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the crux terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			return bootstrap.RunTUI(app)
		},
	}
}

func newSessionCmd(homePath *string) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Session lifecycle"}

	var date, gym string
	start := &cobra.Command{
		Use:   "start --date <when> --gym <name>",
		Short: "Start a new climbing session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(gym) == "" {
				gym = app.Config.DefaultGym
			}
			out, err := app.SessionCLI.Start(context.Background(), date, gym)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session started: %s at %s (%s)\n", out.ID, out.Gym, out.Date.Format("2006-01-02 15:04"))
			return nil
		},
	}
	start.Flags().StringVar(&date, "date", "", "session date (2006-01-02T15:04, RFC 3339, or 2006-01-02)")
	start.Flags().StringVar(&gym, "gym", "", "gym name (default from config.yaml)")

	finish := &cobra.Command{
		Use:   "finish",
		Short: "Finish the active session and move it to history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.SessionCLI.Finish(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session finished: %s — %d attempts, %d sent\n", out.ID, len(out.Attempts), countSends(out.Attempts))
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Discard the active session without saving it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			if err := app.SessionCLI.Clear(context.Background()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
			return nil
		},
	}

	var showID string
	show := &cobra.Command{
		Use:   "show [--id <session-id>]",
		Short: "Show the active session, or a historical one by id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			var record sessiondto.SessionRecord
			if strings.TrimSpace(showID) == "" {
				record, err = app.SessionCLI.Current(context.Background())
			} else {
				record, err = app.SessionCLI.Show(context.Background(), showID)
			}
			if err != nil {
				return err
			}
			printSession(cmd, record)
			return nil
		},
	}
	show.Flags().StringVar(&showID, "id", "", "session id (defaults to the active session)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List finished sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			history, err := app.SessionCLI.History(context.Background())
			if err != nil {
				return err
			}
			if len(history) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions yet")
				return nil
			}
			for _, record := range history {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d attempts, %d sent\n",
					record.ID, record.Date.Format("2006-01-02 15:04"), record.Gym, len(record.Attempts), countSends(record.Attempts))
			}
			return nil
		},
	}

	session.AddCommand(start, finish, clear, show, list)
	return session
}

func printSession(cmd *cobra.Command, record sessiondto.SessionRecord) {
	state := "finished"
	if record.Open {
		state = "open"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s)\ndate: %s\ngym: %s\n", record.ID, state, record.Date.Format("2006-01-02 15:04"), record.Gym)
	if len(record.Attempts) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no attempts")
		return
	}
	for _, attempt := range record.Attempts {
		verb := "fell"
		if attempt.Success {
			verb = "sent"
		}
		line := fmt.Sprintf("%s  %s  %s  %s", attempt.ID, attempt.Timestamp.Format("15:04"), verb, attemptRouteLabel(attempt))
		if attempt.Notes != "" {
			line += "  // " + attempt.Notes
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
	}
}

func attemptRouteLabel(attempt sessiondto.AttemptRecord) string {
	if attempt.Route == nil {
		return "unrecorded route"
	}
	name := attempt.Route.Name
	if name == "" {
		name = "unnamed route"
	}
	if attempt.Route.Color == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, attempt.Route.Color)
}

func countSends(attempts []sessiondto.AttemptRecord) int {
	count := 0
	for _, attempt := range attempts {
		if attempt.Success {
			count++
		}
	}
	return count
}

func newAttemptCmd(homePath *string) *cobra.Command {
	attempt := &cobra.Command{Use: "attempt", Short: "Log and edit attempts in the active session"}

	var routeID, name, color, routeGym, routeNotes, notes string
	var sent, fell bool
	add := &cobra.Command{
		Use:   "add (--route-id <id> | --name <name> --color <color>) (--sent | --fell)",
		Short: "Log an attempt against a saved or ad-hoc route",
		RunE: func(cmd *cobra.Command, _ []string) error {
			success, err := resultFlag(sent, fell)
			if err != nil {
				return err
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.SessionCLI.AddAttempt(context.Background(), routeRef(routeID, name, color, routeGym, routeNotes), success, notes)
			if err != nil {
				return err
			}
			verb := "fell on"
			if out.Success {
				verb = "sent"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "attempt %s: %s %s\n", out.ID, verb, attemptRouteLabel(out))
			return nil
		},
	}
	add.Flags().StringVar(&routeID, "route-id", "", "saved route id")
	add.Flags().StringVar(&name, "name", "", "ad-hoc route name")
	add.Flags().StringVar(&color, "color", "", "ad-hoc route color")
	add.Flags().StringVar(&routeGym, "route-gym", "", "ad-hoc route gym")
	add.Flags().StringVar(&routeNotes, "route-notes", "", "ad-hoc route notes")
	add.Flags().BoolVar(&sent, "sent", false, "the attempt succeeded")
	add.Flags().BoolVar(&fell, "fell", false, "the attempt failed")
	add.Flags().StringVar(&notes, "notes", "", "attempt notes")

	var updSession, updAttempt, updRouteID, updName, updColor, updRouteGym, updRouteNotes, updNotes string
	var updSent, updFell bool
	update := &cobra.Command{
		Use:   "update --session <id> --attempt <id>",
		Short: "Edit an attempt in the active session or in history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(updSession) == "" || strings.TrimSpace(updAttempt) == "" {
				return fmt.Errorf("--session and --attempt are required")
			}
			success, err := resultFlag(updSent, updFell)
			if err != nil {
				return err
			}
			patch := sessiondto.AttemptPatch{
				Route:   routeRef(updRouteID, updName, updColor, updRouteGym, updRouteNotes),
				Success: success,
			}
			if cmd.Flags().Changed("notes") {
				value := updNotes
				patch.Notes = &value
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.SessionCLI.UpdateAttempt(context.Background(), updSession, updAttempt, patch)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "attempt updated: %s %s\n", out.ID, attemptRouteLabel(out))
			return nil
		},
	}
	update.Flags().StringVar(&updSession, "session", "", "session id")
	update.Flags().StringVar(&updAttempt, "attempt", "", "attempt id")
	update.Flags().StringVar(&updRouteID, "route-id", "", "replacement saved route id")
	update.Flags().StringVar(&updName, "name", "", "replacement route name")
	update.Flags().StringVar(&updColor, "color", "", "replacement route color")
	update.Flags().StringVar(&updRouteGym, "route-gym", "", "replacement route gym")
	update.Flags().StringVar(&updRouteNotes, "route-notes", "", "replacement route notes")
	update.Flags().BoolVar(&updSent, "sent", false, "mark the attempt as sent")
	update.Flags().BoolVar(&updFell, "fell", false, "mark the attempt as fallen")
	update.Flags().StringVar(&updNotes, "notes", "", "replacement attempt notes")

	var delSession, delAttempt string
	deleteCmd := &cobra.Command{
		Use:   "delete --session <id> --attempt <id>",
		Short: "Remove an attempt from a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(delSession) == "" || strings.TrimSpace(delAttempt) == "" {
				return fmt.Errorf("--session and --attempt are required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			if err := app.SessionCLI.DeleteAttempt(context.Background(), delSession, delAttempt); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "attempt deleted: %s\n", delAttempt)
			return nil
		},
	}
	deleteCmd.Flags().StringVar(&delSession, "session", "", "session id")
	deleteCmd.Flags().StringVar(&delAttempt, "attempt", "", "attempt id")

	attempt.AddCommand(add, update, deleteCmd)
	return attempt
}

// resultFlag folds --sent/--fell into the tri-state the usecase expects:
// nil when neither flag was given, so the missing-result validation fires
// there with its user-facing message.
func resultFlag(sent, fell bool) (*bool, error) {
	if sent && fell {
		return nil, fmt.Errorf("--sent and --fell are mutually exclusive")
	}
	if !sent && !fell {
		return nil, nil
	}
	value := sent
	return &value, nil
}

func routeRef(routeID, name, color, gym, notes string) *sessiondto.RouteRef {
	if strings.TrimSpace(routeID) != "" {
		return &sessiondto.RouteRef{RouteID: routeID}
	}
	if name == "" && color == "" && gym == "" && notes == "" {
		return nil
	}
	return &sessiondto.RouteRef{Name: name, Color: color, Gym: gym, Notes: notes}
}

func newRouteCmd(homePath *string) *cobra.Command {
	route := &cobra.Command{Use: "route", Short: "Manage saved routes and their topo images"}

	var name, color, gym, notes, imagePath string
	save := &cobra.Command{
		Use:   "save --color <color> --image <path>",
		Short: "Save a route with its photo or topo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(imagePath) == "" {
				return fmt.Errorf("--image is required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.RouteCLI.Save(context.Background(), name, color, gym, notes, imagePath)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "route saved: %s %s (%s)\n", out.ID, out.Name, out.Attachment)
			return nil
		},
	}
	save.Flags().StringVar(&name, "name", "", "route name")
	save.Flags().StringVar(&color, "color", "", "circuit color: green|yellow|orange|red|purple|black|white")
	save.Flags().StringVar(&gym, "gym", "", "gym name")
	save.Flags().StringVar(&notes, "notes", "", "route notes")
	save.Flags().StringVar(&imagePath, "image", "", "image or pdf file")

	var filterColor, filterGym string
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			routes, err := app.RouteCLI.List(context.Background(), filterColor, filterGym)
			if err != nil {
				return err
			}
			if len(routes) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no routes saved")
				return nil
			}
			for _, r := range routes {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Color, r.Name, r.Gym, r.Attachment)
			}
			return nil
		},
	}
	list.Flags().StringVar(&filterColor, "color", "", "filter by color")
	list.Flags().StringVar(&filterGym, "gym", "", "filter by gym")

	var showID string
	show := &cobra.Command{
		Use:   "show --id <id>",
		Short: "Show route details",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(showID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.RouteCLI.Show(context.Background(), showID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "id: %s\nname: %s\ncolor: %s\ngym: %s\nnotes: %s\nattachment: %s\ncreated: %s\n",
				out.ID, out.Name, out.Color, out.Gym, out.Notes, out.Attachment, out.CreatedAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	show.Flags().StringVar(&showID, "id", "", "route id")

	var updID, updName, updColor, updGym, updNotes, updImage string
	update := &cobra.Command{
		Use:   "update --id <id>",
		Short: "Update route fields or replace its image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(updID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.RouteCLI.Update(context.Background(), updID,
				changedString(cmd, "name", &updName),
				changedString(cmd, "color", &updColor),
				changedString(cmd, "gym", &updGym),
				changedString(cmd, "notes", &updNotes),
				updImage,
			)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "route updated: %s %s (%s)\n", out.ID, out.Name, out.Attachment)
			return nil
		},
	}
	update.Flags().StringVar(&updID, "id", "", "route id")
	update.Flags().StringVar(&updName, "name", "", "new name")
	update.Flags().StringVar(&updColor, "color", "", "new color")
	update.Flags().StringVar(&updGym, "gym", "", "new gym")
	update.Flags().StringVar(&updNotes, "notes", "", "new notes")
	update.Flags().StringVar(&updImage, "image", "", "replacement image file")

	var delID string
	deleteCmd := &cobra.Command{
		Use:   "delete --id <id>",
		Short: "Delete a route (existing attempt snapshots keep their copy)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(delID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			existed, err := app.RouteCLI.Delete(context.Background(), delID)
			if err != nil {
				return err
			}
			if !existed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no route with id %s\n", delID)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "route deleted: %s\n", delID)
			return nil
		},
	}
	deleteCmd.Flags().StringVar(&delID, "id", "", "route id")

	var imageID, imageOut string
	image := &cobra.Command{
		Use:   "image --id <id> [--out <path>]",
		Short: "Write the route attachment to a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(imageID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			path, err := app.RouteCLI.Export(context.Background(), imageID, imageOut)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "attachment written: %s\n", path)
			return nil
		},
	}
	image.Flags().StringVar(&imageID, "id", "", "route id")
	image.Flags().StringVar(&imageOut, "out", "", "destination path (defaults to the attachment filename)")

	var viewID string
	view := &cobra.Command{
		Use:   "view --id <id>",
		Short: "Open the route attachment in the system viewer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(viewID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			if err := app.RouteCLI.View(context.Background(), viewID); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "opened in system viewer")
			return nil
		},
	}
	view.Flags().StringVar(&viewID, "id", "", "route id")

	route.AddCommand(save, list, show, update, deleteCmd, image, view)
	return route
}

func changedString(cmd *cobra.Command, flag string, value *string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return value
}

func newStatsCmd(homePath *string) *cobra.Command {
	var asJSON, asReport bool
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show overall climbing statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.SessionCLI.OverallStats(context.Background())
			if err != nil {
				return err
			}
			switch {
			case asJSON:
				payload, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			case asReport:
				colors, err := app.SessionCLI.ColorStats(context.Background(), "")
				if err != nil {
					return err
				}
				return renderReport(cmd, out, colors)
			default:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sessions: %d\nattempts: %d\nsent: %d\nsuccess rate: %s\n",
					out.TotalSessions, out.TotalAttempts, out.TotalSuccess, out.OverallSuccessRate.String())
			}
			return nil
		},
	}
	stats.Flags().BoolVar(&asJSON, "json", false, "print the stats document as JSON")
	stats.Flags().BoolVar(&asReport, "report", false, "render a markdown report")

	var sessionID string
	colors := &cobra.Command{
		Use:   "colors [--session <id>]",
		Short: "Success breakdown per route color",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.SessionCLI.ColorStats(context.Background(), sessionID)
			if err != nil {
				return err
			}
			if len(out.Colors) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no attempts yet")
				return nil
			}
			for _, color := range sortedColors(out.Colors) {
				count := out.Colors[color]
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d/%d sent\n", color, count.Success, count.Total)
			}
			return nil
		},
	}
	colors.Flags().StringVar(&sessionID, "session", "", "restrict to one session id")
	stats.AddCommand(colors)
	return stats
}

func sortedColors(colors map[string]sessiondto.ColorCount) []string {
	keys := make([]string, 0, len(colors))
	for color := range colors {
		keys = append(keys, color)
	}
	sort.Strings(keys)
	return keys
}

func renderReport(cmd *cobra.Command, overall sessiondto.OverallStatsOutput, colors sessiondto.ColorStatsOutput) error {
	var md strings.Builder
	md.WriteString("# Climbing report\n\n")
	md.WriteString(fmt.Sprintf("- **Sessions**: %d\n", overall.TotalSessions))
	md.WriteString(fmt.Sprintf("- **Attempts**: %d\n", overall.TotalAttempts))
	md.WriteString(fmt.Sprintf("- **Sent**: %d\n", overall.TotalSuccess))
	md.WriteString(fmt.Sprintf("- **Success rate**: %s\n", overall.OverallSuccessRate.String()))
	if len(colors.Colors) > 0 {
		md.WriteString("\n## By color\n\n| Color | Sent | Attempts |\n| --- | --- | --- |\n")
		for _, color := range sortedColors(colors.Colors) {
			count := colors.Colors[color]
			md.WriteString(fmt.Sprintf("| %s | %d | %d |\n", color, count.Success, count.Total))
		}
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(md.String())
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func newBackupCmd(homePath *string) *cobra.Command {
	backup := &cobra.Command{Use: "backup", Short: "Snapshot export, import, and the archive daemon"}

	var exportOut string
	export := &cobra.Command{
		Use:   "export [--out <path>]",
		Short: "Write a full snapshot to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			path, out, err := app.BackupCLI.Export(context.Background(), exportOut)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "backup written: %s (%d sessions, %d attempts)\n", path, out.Sessions, out.Attempts)
			return nil
		},
	}
	export.Flags().StringVar(&exportOut, "out", "", "destination file (defaults to crux-backup-<date>.json)")

	var force bool
	importCmd := &cobra.Command{
		Use:   "import <file> --force",
		Short: "Replace all sessions and the draft with a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("import replaces every session and the active draft; re-run with --force")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.BackupCLI.Import(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d sessions (%d attempts)\n", out.Sessions, out.Attempts)
			return nil
		},
	}
	importCmd.Flags().BoolVar(&force, "force", false, "confirm replacing all local data")

	push := &cobra.Command{
		Use:   "push",
		Short: "Archive a snapshot in the local vault",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.BackupCLI.Push(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "snapshot archived: %s (%d sessions, %d attempts)\n", out.Name, out.Sessions, out.Attempts)
			return nil
		},
	}

	pull := &cobra.Command{
		Use:   "pull",
		Short: "Restore the newest archived snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.BackupCLI.Pull(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "snapshot restored: %s (%d sessions, %d attempts)\n", out.Name, out.Sessions, out.Attempts)
			return nil
		},
	}

	backup.AddCommand(export, importCmd, push, pull, newDaemonCmd(homePath))
	return backup
}

func newDaemonCmd(homePath *string) *cobra.Command {
	daemon := &cobra.Command{Use: "daemon", Short: "Manage the snapshot-archive daemon"}

	daemon.AddCommand(&cobra.Command{
		Use:    "__run",
		Hidden: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			return app.BackupCLI.RunDaemon(context.Background())
		},
	})

	daemon.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			if err := app.BackupCLI.StartDaemon(context.Background()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "daemon started")
			return nil
		},
	})

	daemon.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			if err := app.BackupCLI.StopDaemon(context.Background()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
			return nil
		},
	})

	daemon.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon and archive status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			status, err := app.BackupCLI.Status(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "running=%t pid=%d socket=%s\n", status.Running, status.PID, status.SocketPath)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "snapshots=%d", status.Snapshots)
			if !status.LatestAt.IsZero() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " latest=%s", status.LatestAt.Format("2006-01-02 15:04:05"))
			}
			if !status.StartedAt.IsZero() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), " up_since=%s", status.StartedAt.Format("2006-01-02 15:04:05"))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	})

	var tail int
	logs := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			payload, err := app.BackupCLI.Logs(context.Background(), tail)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}
	logs.Flags().IntVar(&tail, "tail", 200, "log lines to show from the end")
	daemon.AddCommand(logs)

	return daemon
}

func newPluginCmd(homePath *string) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Plugin operations"}

	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			plugins, err := app.PluginCLI.List(context.Background())
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t binary=%s\n", p.Name, p.Version, p.Enabled, p.Binary)
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate plugin checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			results, err := app.PluginCLI.Doctor(context.Background())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checksum=%t binary=%t lifecycle=%t", r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK)
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})

	var commandPluginName string
	commandsCmd := &cobra.Command{
		Use:   "commands --plugin <name>",
		Short: "List commands exposed by a plugin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(commandPluginName) == "" {
				return fmt.Errorf("--plugin is required")
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			commands, err := app.PluginCLI.ListCommands(context.Background(), commandPluginName)
			if err != nil {
				return err
			}
			if len(commands) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no commands")
				return nil
			}
			for _, item := range commands {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s kind=%s timeout_ms=%d title=%q\n", item.ID, item.Kind, item.TimeoutMS, item.Title)
			}
			return nil
		},
	}
	commandsCmd.Flags().StringVar(&commandPluginName, "plugin", "", "plugin name")
	plugin.AddCommand(commandsCmd)

	var execPluginName, execCommandID, execInputJSON, execSessionID, execRouteID string
	execCmd := &cobra.Command{
		Use:   "exec --plugin <name> --command <id>",
		Short: "Execute a plugin command capability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(execPluginName) == "" || strings.TrimSpace(execCommandID) == "" {
				return fmt.Errorf("--plugin and --command are required")
			}
			if err := validateJSONInput(execInputJSON); err != nil {
				return err
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.PluginCLI.Execute(context.Background(), plugindto.ExecuteInput{
				PluginName: execPluginName,
				CommandID:  execCommandID,
				InputJSON:  execInputJSON,
				SessionID:  execSessionID,
				RouteID:    execRouteID,
				Home:       app.Config.HomePath,
				Cwd:        app.Config.HomePath,
			})
			if err != nil {
				return err
			}
			printExecuteOutput(cmd, out)
			return nil
		},
	}
	execCmd.Flags().StringVar(&execPluginName, "plugin", "", "plugin name")
	execCmd.Flags().StringVar(&execCommandID, "command", "", "command id")
	execCmd.Flags().StringVar(&execInputJSON, "input-json", "", "JSON input payload")
	execCmd.Flags().StringVar(&execSessionID, "session-id", "", "optional session id")
	execCmd.Flags().StringVar(&execRouteID, "route-id", "", "optional route id")
	plugin.AddCommand(execCmd)

	var analyzePluginName, analyzeCommandID, analyzeInputJSON, analyzeSessionID, analyzeRouteID string
	analyzeCmd := &cobra.Command{
		Use:   "analyze --plugin <name> --command <id>",
		Short: "Execute an analyze-capability plugin command",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(analyzePluginName) == "" || strings.TrimSpace(analyzeCommandID) == "" {
				return fmt.Errorf("--plugin and --command are required")
			}
			if err := validateJSONInput(analyzeInputJSON); err != nil {
				return err
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			out, err := app.PluginCLI.Analyze(context.Background(), plugindto.ExecuteInput{
				PluginName: analyzePluginName,
				CommandID:  analyzeCommandID,
				InputJSON:  analyzeInputJSON,
				SessionID:  analyzeSessionID,
				RouteID:    analyzeRouteID,
				Home:       app.Config.HomePath,
				Cwd:        app.Config.HomePath,
			})
			if err != nil {
				return err
			}
			printExecuteOutput(cmd, out)
			return nil
		},
	}
	analyzeCmd.Flags().StringVar(&analyzePluginName, "plugin", "", "plugin name")
	analyzeCmd.Flags().StringVar(&analyzeCommandID, "command", "", "command id")
	analyzeCmd.Flags().StringVar(&analyzeInputJSON, "input-json", "", "JSON input payload")
	analyzeCmd.Flags().StringVar(&analyzeSessionID, "session-id", "", "optional session id")
	analyzeCmd.Flags().StringVar(&analyzeRouteID, "route-id", "", "optional route id")
	plugin.AddCommand(analyzeCmd)

	var ttyPluginName, ttyCommandID, ttyInputJSON, ttySessionID, ttyRouteID string
	ttyCmd := &cobra.Command{
		Use:   "tty --plugin <name> --command <id>",
		Short: "Prepare and run a fullscreen tty plugin command",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(ttyPluginName) == "" || strings.TrimSpace(ttyCommandID) == "" {
				return fmt.Errorf("--plugin and --command are required")
			}
			if err := validateJSONInput(ttyInputJSON); err != nil {
				return err
			}
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			plan, err := app.PluginCLI.PrepareTTY(context.Background(), plugindto.TTYPrepareInput{
				PluginName: ttyPluginName,
				CommandID:  ttyCommandID,
				InputJSON:  ttyInputJSON,
				SessionID:  ttySessionID,
				RouteID:    ttyRouteID,
				Home:       app.Config.HomePath,
				Cwd:        app.Config.HomePath,
			})
			if err != nil {
				return err
			}
			return runTTYPlan(plan)
		},
	}
	ttyCmd.Flags().StringVar(&ttyPluginName, "plugin", "", "plugin name")
	ttyCmd.Flags().StringVar(&ttyCommandID, "command", "", "command id")
	ttyCmd.Flags().StringVar(&ttyInputJSON, "input-json", "", "JSON input payload")
	ttyCmd.Flags().StringVar(&ttySessionID, "session-id", "", "optional session id")
	ttyCmd.Flags().StringVar(&ttyRouteID, "route-id", "", "optional route id")
	plugin.AddCommand(ttyCmd)

	return plugin
}

func printExecuteOutput(cmd *cobra.Command, out plugindto.ExecuteOutput) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "plugin=%s command=%s exit=%d\n", out.PluginName, out.CommandID, out.ExitCode)
	if strings.TrimSpace(out.Stdout) != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Stdout)
	}
	if strings.TrimSpace(out.Stderr) != "" {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), out.Stderr)
	}
	if strings.TrimSpace(out.OutputJSON) != "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.OutputJSON)
	}
}

func validateJSONInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	if !json.Valid([]byte(input)) {
		return fmt.Errorf("--input-json must be valid JSON")
	}
	return nil
}

func runTTYPlan(plan plugindto.TTYPrepareOutput) error {
	if len(plan.Argv) == 0 {
		return fmt.Errorf("plugin tty plan has empty argv")
	}
	cmd := exec.Command(plan.Argv[0], plan.Argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if plan.Cwd != "" {
		cmd.Dir = plan.Cwd
	}
	env := os.Environ()
	for key, value := range plan.Env {
		env = append(env, key+"="+value)
	}
	cmd.Env = env
	return cmd.Run()
}

func newActivityCmd(homePath *string) *cobra.Command {
	var tail int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the recorded event log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*homePath)
			if err != nil {
				return err
			}
			events, err := app.Recorder.Tail(context.Background(), activity.Query{Limit: tail})
			if err != nil {
				return err
			}
			if len(events) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no activity recorded")
				return nil
			}
			for _, event := range events {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-18s %s\n", event.OccurredAt.Format("2006-01-02 15:04:05"), event.Type, event.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&tail, "tail", 50, "events to show from the end")
	return cmd
}
