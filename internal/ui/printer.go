package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one key/value line of a header or result box. Details keep
// their order.
type Detail struct {
	Key   string
	Value string
}

// D builds a Detail.
func D(key string, value any) Detail {
	return Detail{Key: key, Value: fmt.Sprint(value)}
}

// Printer writes styled output to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer. If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.out }

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Header prints the command banner.
func (p *Printer) Header(title, command string, params ...Detail) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// Success prints a success box.
func (p *Printer) Success(title string, details ...Detail) {
	p.Println(RenderSuccess(title, details, p.width))
}

// Failure prints a failure box with troubleshooting tips.
func (p *Printer) Failure(title string, err error, tips ...string) {
	p.Println(RenderFailure(title, err, tips, p.width))
}

// Table prints rows aligned under headers, without a box.
func (p *Printer) Table(headers []string, rows [][]string) {
	p.Println(RenderTable(headers, rows))
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, params []Detail, width int) string {
	top := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(strings.ToUpper(title)),
		commandStyle.Render(command))
	if len(params) == 0 {
		return headerBox(width).Render(top)
	}

	lines := make([]string, 0, len(params))
	for _, d := range params {
		lines = append(lines, "  "+keyStyle.Render(d.Key+":")+" "+valueStyle.Render(d.Value))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, top, divider(width-6), strings.Join(lines, "\n"))
	return headerBox(width).Render(content)
}

// RenderSuccess renders a success result box
func RenderSuccess(title string, details []Detail, width int) string {
	lines := []string{"", successTitleStyle.Render(" " + SuccessMarker + "  " + title), ""}
	for _, d := range details {
		lines = append(lines, " "+keyStyle.Render(d.Key+":")+" "+valueStyle.Render(d.Value))
	}
	if len(details) > 0 {
		lines = append(lines, "")
	}
	return resultBox(width, SuccessColor).Render(strings.Join(lines, "\n"))
}

// RenderFailure renders a failure result box
func RenderFailure(title string, err error, tips []string, width int) string {
	lines := []string{"", errorTitleStyle.Render(" " + FailureMarker + "  " + title), ""}
	if err != nil {
		lines = append(lines, errorTextStyle.Width(width-8).Render(" Error: "+err.Error()), "")
	}
	if len(tips) > 0 {
		lines = append(lines, mutedStyle.Bold(true).Render(" Troubleshooting:"))
		for _, tip := range tips {
			lines = append(lines, mutedStyle.Render("   • "+tip))
		}
		lines = append(lines, "")
	}
	return resultBox(width, ErrorColor).Render(strings.Join(lines, "\n"))
}

// RenderTable renders rows with columns padded to their widest cell.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	lines := []string{mutedStyle.Render(format(headers))}
	for _, row := range rows {
		lines = append(lines, format(row))
	}
	return strings.Join(lines, "\n")
}
