package gmailctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	gc "github.com/joshsymonds/gmail-cli/internal/gmail"
)

// Export mirrors the JSON payload produced by `gmailctl compile --format=json`.
type Export struct {
	Filters []Filter `json:"filters"`
	Labels  []Label  `json:"labels"`
}

// Filter represents a single compiled filter definition.
type Filter struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Criteria FilterCriteria `json:"criteria"`
	Action   FilterAction   `json:"action"`
}

// FilterCriteria captures the subset of search predicates we replay.
type FilterCriteria struct {
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Query         string `json:"query,omitempty"`
	NegatedQuery  string `json:"negatedQuery,omitempty"`
	List          string `json:"list,omitempty"`
	HasAttachment bool   `json:"hasAttachment,omitempty"`
}

// FilterAction describes the actions for a filter. Labels may be given by
// id or by name.
type FilterAction struct {
	AddLabelIDs    []string `json:"addLabelIds,omitempty"`
	RemoveLabelIDs []string `json:"removeLabelIds,omitempty"`
	Forward        string   `json:"forward,omitempty"`
}

// Label mirrors label metadata in the compile output.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Runner shells out to the gmailctl binary to obtain compiled filters.
type Runner struct {
	Binary    string
	ConfigDir string
	Logger    *slog.Logger
}

// Compile invokes gmailctl and parses the resulting JSON export.
func (r Runner) Compile(ctx context.Context) (Export, error) {
	bin := r.Binary
	if bin == "" {
		bin = "gmailctl"
	}
	args := []string{"compile", "--format=json"}
	if strings.TrimSpace(r.ConfigDir) != "" {
		args = append(args, "--config", r.ConfigDir)
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.DebugContext(ctx, "running gmailctl", slog.String("binary", bin), slog.Any("args", args))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 - binary determined by user config
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Export{}, fmt.Errorf(
			"run gmailctl: %w (output: %s)",
			err,
			strings.TrimSpace(stderr.String()),
		)
	}
	var export Export
	if decodeErr := json.Unmarshal(out, &export); decodeErr != nil {
		return Export{}, fmt.Errorf("decode gmailctl output: %w", decodeErr)
	}
	if len(export.Filters) == 0 && len(export.Labels) == 0 {
		return Export{}, errors.New("gmailctl returned no filters or labels")
	}
	return export, nil
}

// Plan is the set of API filters an export turns into.
type Plan struct {
	Filters []gc.Filter
	// MissingLabels are label names referenced by a filter but absent from
	// the mailbox; filters referencing them are left out of Filters.
	MissingLabels []string
}

// BuildPlan resolves compiled filters against the mailbox's labels. A label
// reference matches an existing id first, then a name case-insensitively.
func BuildPlan(export Export, labels []gc.Label) Plan {
	byID := make(map[string]gc.LabelID, len(labels))
	byName := make(map[string]gc.LabelID, len(labels))
	for _, l := range labels {
		byID[string(l.ID)] = l.ID
		byName[strings.ToLower(l.Name)] = l.ID
	}
	resolve := func(ref string) (gc.LabelID, bool) {
		if id, ok := byID[ref]; ok {
			return id, true
		}
		id, ok := byName[strings.ToLower(ref)]
		return id, ok
	}

	var plan Plan
	missing := map[string]bool{}
	for _, f := range export.Filters {
		out := gc.Filter{
			Criteria: gc.FilterCriteria{
				From:          f.Criteria.From,
				To:            f.Criteria.To,
				Subject:       f.Criteria.Subject,
				Query:         joinQuery(f.Criteria.Query, f.Criteria.List),
				NegatedQuery:  f.Criteria.NegatedQuery,
				HasAttachment: f.Criteria.HasAttachment,
			},
			Action: gc.FilterAction{Forward: f.Action.Forward},
		}
		complete := true
		for _, ref := range f.Action.AddLabelIDs {
			id, ok := resolve(ref)
			if !ok {
				complete = false
				if !missing[ref] {
					missing[ref] = true
					plan.MissingLabels = append(plan.MissingLabels, ref)
				}
				continue
			}
			out.Action.AddLabelIDs = append(out.Action.AddLabelIDs, id)
		}
		for _, ref := range f.Action.RemoveLabelIDs {
			id, ok := resolve(ref)
			if !ok {
				complete = false
				if !missing[ref] {
					missing[ref] = true
					plan.MissingLabels = append(plan.MissingLabels, ref)
				}
				continue
			}
			out.Action.RemoveLabelIDs = append(out.Action.RemoveLabelIDs, id)
		}
		if complete {
			plan.Filters = append(plan.Filters, out)
		}
	}
	return plan
}

func joinQuery(query, list string) string {
	if list == "" {
		return query
	}
	listTerm := "list:" + list
	if query == "" {
		return listTerm
	}
	return query + " " + listTerm
}
