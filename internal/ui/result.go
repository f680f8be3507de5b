package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Detail is one key/value line of a result box. A slice keeps the order
// the caller chose.
type Detail struct {
	Key   string
	Value string
}

// Result represents a result box for a finished command.
type Result struct {
	Type    ResultType
	Title   string
	Details []Detail
	Error   error
	Width   int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Detail) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, details ...Detail) *Result {
	return &Result{
		Type:    ResultFailure,
		Title:   title,
		Error:   err,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	border := SuccessColor
	title := ActiveStyle.Render(fmt.Sprintf("%s  %s", SuccessMarker, r.Title))
	if r.Type == ResultFailure {
		border = ErrorColor
		title = ErrorStyle.Bold(true).Render(fmt.Sprintf("%s  %s", FailureMarker, r.Title))
	}

	lines := []string{title}
	if len(r.Details) > 0 || r.Error != nil {
		lines = append(lines, "")
	}
	for _, d := range r.Details {
		lines = append(lines, KeyStyle.Width(10).Render(d.Key+":")+ValueStyle.Render(d.Value))
	}
	if r.Error != nil {
		lines = append(lines, ErrorStyle.Render(r.Error.Error()))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}
