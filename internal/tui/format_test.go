// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"strings"
	"testing"
)

func TestFormat_Markdown(t *testing.T) {
	t.Parallel()

	out, err := Format(FormatOptions{
		Content: "# Heading\n\nSome **bold** text.",
		Type:    FormatMarkdown,
		Width:   80,
	})
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	if !strings.Contains(out, "Heading") {
		t.Errorf("rendered markdown lost its heading:\n%s", out)
	}
}

func TestFormat_Code(t *testing.T) {
	t.Parallel()

	out, err := Format(FormatOptions{
		Content:  `{"formatVersion": 1}`,
		Type:     FormatCode,
		Language: "json",
		Width:    80,
	})
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	if !strings.Contains(out, "formatVersion") {
		t.Errorf("rendered code block lost its content:\n%s", out)
	}
}

func TestFormat_DefaultsToMarkdown(t *testing.T) {
	t.Parallel()

	out, err := Format(FormatOptions{Content: "plain text"})
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	if !strings.Contains(out, "plain text") {
		t.Errorf("default formatting lost the content:\n%s", out)
	}
}

func TestStyles_PreserveText(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(string) string{
		"Success": Success,
		"Warn":    Warn,
		"Error":   Error,
		"Faint":   Faint,
	} {
		if got := fn("message"); !strings.Contains(got, "message") {
			t.Errorf("%s() lost the text: %q", name, got)
		}
	}
}
