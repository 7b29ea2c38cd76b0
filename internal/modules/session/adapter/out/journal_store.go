package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crux/internal/modules/session/domain"
	sessionout "crux/internal/modules/session/port/out"
	"crux/internal/platform/markdown"
	"crux/internal/platform/slug"
)

const (
	attemptsStartMarker = "<!-- crux:attempts -->"
	attemptsEndMarker   = "<!-- /crux:attempts -->"
)

// MarkdownJournal writes one note per finished session. Everything between
// the attempt markers is regenerated on edits; prose around them belongs to
// the user and survives refreshes.
type MarkdownJournal struct {
	journalPath string
}

func NewMarkdownJournal(journalPath string) sessionout.JournalStore {
	return &MarkdownJournal{journalPath: journalPath}
}

type journalMeta struct {
	SchemaVersion int    `yaml:"schema_version"`
	Session       string `yaml:"session"`
	Date          string `yaml:"date"`
	Gym           string `yaml:"gym"`
	Attempts      int    `yaml:"attempts"`
	Sends         int    `yaml:"sends"`
}

func (j *MarkdownJournal) Write(_ context.Context, session domain.Session) (string, error) {
	path := j.notePath(session)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}

	meta := journalMeta{
		SchemaVersion: domain.SchemaVersion,
		Session:       session.ID,
		Date:          session.Date.Format("2006-01-02"),
		Gym:           session.Gym,
		Attempts:      len(session.Attempts),
		Sends:         countSends(session),
	}
	body := fmt.Sprintf("# Session at %s\n\n%s\n", session.Gym,
		markdown.ReplaceManagedBlock("", attemptsStartMarker, attemptsEndMarker, attemptsBlock(session)))
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write journal note: %w", err)
	}
	return path, nil
}

// Refresh rewrites the generated attempt block after a closed session was
// edited. A note the user deleted stays deleted.
func (j *MarkdownJournal) Refresh(_ context.Context, session domain.Session) error {
	path := j.notePath(session)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read journal note: %w", err)
	}

	meta, body, err := markdown.SplitFrontmatter(string(content))
	if err != nil {
		return fmt.Errorf("refresh journal note: %w", err)
	}
	meta["attempts"] = len(session.Attempts)
	meta["sends"] = countSends(session)

	body = markdown.ReplaceManagedBlock(body, attemptsStartMarker, attemptsEndMarker, attemptsBlock(session))
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write journal note: %w", err)
	}
	return nil
}

func (j *MarkdownJournal) notePath(session domain.Session) string {
	date := session.Date
	dir := filepath.Join(j.journalPath, date.Format("2006"), date.Format("01"))
	name := fmt.Sprintf("%s-%s-%s.md", date.Format("2006-01-02"), slug.Make(session.Gym), shortID(session.ID))
	return filepath.Join(dir, name)
}

func attemptsBlock(session domain.Session) string {
	if len(session.Attempts) == 0 {
		return "(no attempts)"
	}
	lines := make([]string, 0, len(session.Attempts))
	for _, attempt := range session.Attempts {
		lines = append(lines, attemptLine(attempt))
	}
	return strings.Join(lines, "\n")
}

func attemptLine(attempt domain.Attempt) string {
	verb := "fell"
	if attempt.Success {
		verb = "sent"
	}
	line := fmt.Sprintf("- %s %s %s", attempt.Timestamp.Format("15:04"), verb, routeLabel(attempt.Route))
	if attempt.Notes != "" {
		line += ": " + attempt.Notes
	}
	return line
}

func routeLabel(snapshot *domain.RouteSnapshot) string {
	if snapshot == nil {
		return "unrecorded route"
	}
	name := snapshot.Name
	if name == "" {
		name = "unnamed route"
	}
	if snapshot.Color == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, snapshot.Color)
}

func countSends(session domain.Session) int {
	count := 0
	for _, attempt := range session.Attempts {
		if attempt.Success {
			count++
		}
	}
	return count
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
