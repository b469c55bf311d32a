// SPDX-License-Identifier: MPL-2.0

// Package tui renders user-facing terminal output: styled status lines via
// lipgloss and the markdown update report via glamour. It is presentation
// only; nothing here feeds back into resolution.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Success styles a line as a success message.
func Success(text string) string {
	return successStyle.Render(text)
}

// Warn styles a line as a warning.
func Warn(text string) string {
	return warnStyle.Render(text)
}

// Error styles a line as an error.
func Error(text string) string {
	return errorStyle.Render(text)
}

// Faint styles a line as secondary detail.
func Faint(text string) string {
	return faintStyle.Render(text)
}
