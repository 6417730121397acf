package cli

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/joshsymonds/gmail-cli/internal/gmail"
)

// Presentation defaults for headers a message does not carry.
const (
	noSubject = "No Subject"
	unknown   = "Unknown"
)

const (
	subjectWidth = 50
	shownLabels  = 3
)

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cells ...string) {
	for i, c := range cells {
		// tabs and newlines would break the column layout
		cells[i] = strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(c)
	}
	fmt.Fprintln(tw, strings.Join(cells, "\t"))
}

func subjectOf(rec gmail.ContentRecord) string {
	return rec.Subject.Or(noSubject)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width]) + "..."
}

// shortDate renders an RFC 5322 date header as "2006-01-02 15:04", falling
// back to the raw header when it does not parse.
func shortDate(o gmail.Optional) string {
	if !o.Set {
		return unknown
	}
	t, err := mail.ParseDate(o.Value)
	if err != nil {
		return truncate(o.Value, 16)
	}
	return t.Format("2006-01-02 15:04")
}

func labelSummary(ids []gmail.LabelID) string {
	names := make([]string, 0, len(ids))
	for i, id := range ids {
		if i == shownLabels {
			return strings.Join(names, ", ") + "..."
		}
		names = append(names, string(id))
	}
	return strings.Join(names, ", ")
}

func joinLabels(ids []gmail.LabelID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// writeRecord prints a decoded message as a header block followed by the body.
func writeRecord(w io.Writer, rec gmail.ContentRecord) {
	fmt.Fprintf(w, "ID:      %s\n", rec.ID)
	fmt.Fprintf(w, "From:    %s\n", rec.From.Or(unknown))
	fmt.Fprintf(w, "To:      %s\n", rec.To.Or(unknown))
	if rec.Cc.Set {
		fmt.Fprintf(w, "Cc:      %s\n", rec.Cc.Value)
	}
	fmt.Fprintf(w, "Subject: %s\n", subjectOf(rec))
	fmt.Fprintf(w, "Date:    %s\n", rec.Date.Or(unknown))
	if len(rec.Labels) > 0 {
		fmt.Fprintf(w, "Labels:  %s\n", joinLabels(rec.Labels))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, rec.Body)
	if len(rec.Attachments) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Attachments:")
	tw := newTable(w, "  FILENAME", "TYPE", "SIZE", "ATTACHMENT ID")
	for _, a := range rec.Attachments {
		row(tw, "  "+a.Filename, a.MIMEType, humanSize(a.Size), string(a.AttachmentID))
	}
	_ = tw.Flush()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func describeCriteria(c gmail.FilterCriteria) string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+": "+v)
		}
	}
	add("from", c.From)
	add("to", c.To)
	add("subject", c.Subject)
	add("query", c.Query)
	add("negatedQuery", c.NegatedQuery)
	if c.HasAttachment {
		parts = append(parts, "hasAttachment: true")
	}
	return truncate(strings.Join(parts, ", "), subjectWidth)
}

func describeAction(a gmail.FilterAction) string {
	var parts []string
	if len(a.AddLabelIDs) > 0 {
		parts = append(parts, "add: "+joinLabels(a.AddLabelIDs))
	}
	if len(a.RemoveLabelIDs) > 0 {
		parts = append(parts, "remove: "+joinLabels(a.RemoveLabelIDs))
	}
	if a.Forward != "" {
		parts = append(parts, "forward: "+a.Forward)
	}
	return truncate(strings.Join(parts, ", "), subjectWidth)
}
