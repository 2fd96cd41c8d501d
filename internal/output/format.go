// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tasker/internal/service"
)

// FormatTaskHeader writes the column header for task tables.
func FormatTaskHeader(w io.Writer) {
	fmt.Fprintf(w, "%6s  %-9s  %-10s  %s\n", "ID", "STATUS", "DUE", "TITLE")
}

// FormatTask formats a task line.
// Format: "{ID:>6}  {STATUS:<9}  {DUE:<10}  {TITLE}\n", DUE is "-" when unset.
func FormatTask(w io.Writer, task service.Task) {
	due := "-"
	if task.DueDate != nil && *task.DueDate != "" {
		due = *task.DueDate
	}
	fmt.Fprintf(w, "%6d  %-9s  %-10s  %s\n", task.ID, task.Status, due, normalizeTitle(task.Title))
}

// FormatTasks writes a header and one line per task.
func FormatTasks(w io.Writer, tasks []service.Task) {
	FormatTaskHeader(w)
	for _, t := range tasks {
		FormatTask(w, t)
	}
}

// FormatTaskDetail writes every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %d\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	if task.Description != nil && strings.TrimSpace(*task.Description) != "" {
		fmt.Fprintf(w, "description: %s\n", oneLine(*task.Description))
	}
	fmt.Fprintf(w, "status:      %s\n", task.Status)
	if task.DueDate != nil && *task.DueDate != "" {
		fmt.Fprintf(w, "due:         %s\n", *task.DueDate)
	}
}

// FormatDashboard writes the counters, one per line.
func FormatDashboard(w io.Writer, s service.DashboardStats) {
	fmt.Fprintf(w, "%-10s%5d\n", "total", s.Total)
	fmt.Fprintf(w, "%-10s%5d\n", "pending", s.Pending)
	fmt.Fprintf(w, "%-10s%5d\n", "completed", s.Completed)
	fmt.Fprintf(w, "%-10s%5d\n", "archived", s.Archived)
}

// FormatQuote writes the quote followed by its author.
func FormatQuote(w io.Writer, q service.Quote) {
	if strings.TrimSpace(q.Quote) == "" {
		return
	}
	fmt.Fprintf(w, "%q\n", oneLine(q.Quote))
	if q.Author != "" {
		fmt.Fprintf(w, "  - %s\n", q.Author)
	}
}

// FormatUser writes the signed-in user. A zero expires is omitted; an
// expiry in the past relative to now is marked as such.
func FormatUser(w io.Writer, u service.User, expires, now time.Time) {
	fmt.Fprintf(w, "username: %s\n", u.Username)
	if u.Email != "" {
		fmt.Fprintf(w, "email:    %s\n", u.Email)
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		fmt.Fprintf(w, "name:     %s\n", name)
	}
	if expires.IsZero() {
		return
	}
	suffix := ""
	if !expires.After(now) {
		suffix = " (expired)"
	}
	fmt.Fprintf(w, "expires:  %s%s\n", expires.UTC().Format(time.RFC3339), suffix)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = oneLine(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
