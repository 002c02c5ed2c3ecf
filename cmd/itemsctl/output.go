package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vyrodovalexey/items-api/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func ok(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render("✔ "+msg))
}

func fail(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
}

// printItems writes a compact table of items.
func printItems(w io.Writer, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no items"))
		return
	}

	idWidth := len("ID")
	for _, it := range items {
		if len(it.ID) > idWidth {
			idWidth = len(it.ID)
		}
	}

	lines := []string{titleStyle.Render(fmt.Sprintf("%-*s  %s", idWidth, "ID", "NAME"))}
	for _, it := range items {
		line := fmt.Sprintf("%-*s  %s", idWidth, it.ID, it.Name)
		if it.Description != "" {
			line += "  " + mutedStyle.Render(it.Description)
		}
		lines = append(lines, line)
	}
	lines = append(lines, accentStyle.Render(fmt.Sprintf("%d item(s)", len(items))))

	fmt.Fprintln(w, panelStyle.Render(strings.Join(lines, "\n")))
}

// printItem writes every field of a single item.
func printItem(w io.Writer, it model.Item) {
	description := it.Description
	if description == "" {
		description = mutedStyle.Render("(none)")
	}
	lines := []string{
		titleStyle.Render(it.Name),
		"id:          " + it.ID,
		"description: " + description,
		"created:     " + it.CreatedAt.Format(time.RFC3339),
		"updated:     " + it.UpdatedAt.Format(time.RFC3339),
	}
	fmt.Fprintln(w, panelStyle.Render(strings.Join(lines, "\n")))
}
