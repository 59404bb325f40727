package run

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crmarques/liveops/internal/cli/common"
	"github.com/crmarques/liveops/internal/observability"
	"github.com/crmarques/liveops/orchestrator"
	"github.com/crmarques/liveops/resource"
)

// reportView adds the rendered faults, which the report keeps as errors.
type reportView struct {
	orchestrator.Report `yaml:",inline"`
	Faults              []string `json:"faults,omitempty" yaml:"faults,omitempty"`
}

func newReportView(report orchestrator.Report) reportView {
	view := reportView{Report: report}
	for _, fault := range report.Faults {
		view.Faults = append(view.Faults, fault.Error())
	}
	return view
}

func writeReport(command *cobra.Command, globalFlags *common.GlobalFlags, report orchestrator.Report) error {
	format := common.OutputFormat(globalFlags)
	noColor := globalFlags != nil && globalFlags.NoColor
	return common.WriteOutput(command, format, newReportView(report), func(w io.Writer, view reportView) error {
		return renderText(w, view, newPalette(w, noColor))
	})
}

type palette struct {
	heading *color.Color
	status  map[string]*color.Color
	fault   *color.Color
}

func newPalette(w io.Writer, noColor bool) palette {
	p := palette{
		heading: color.New(color.Bold),
		status: map[string]*color.Color{
			"created":   color.New(color.FgGreen),
			"updated":   color.New(color.FgCyan),
			"deleted":   color.New(color.FgYellow),
			"unchanged": color.New(color.Faint),
			"failed":    color.New(color.FgRed, color.Bold),
		},
		fault: color.New(color.FgRed),
	}

	enabled := !noColor && observability.IsTerminal(w)
	for _, c := range append([]*color.Color{p.heading, p.fault}, mapValues(p.status)...) {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func mapValues(values map[string]*color.Color) []*color.Color {
	out := make([]*color.Color, 0, len(values))
	for _, value := range values {
		out = append(out, value)
	}
	return out
}

type section struct {
	key     string
	label   string
	entries []resource.Entry
}

func sections(result resource.Result) []section {
	return []section{
		{key: "created", label: "Created", entries: result.Created},
		{key: "updated", label: "Updated", entries: result.Updated},
		{key: "deleted", label: "Deleted", entries: result.Deleted},
		{key: "unchanged", label: result.UnchangedLabel(), entries: result.Unchanged},
		{key: "failed", label: "Failed", entries: result.Failed},
	}
}

func renderText(w io.Writer, view reportView, colors palette) error {
	aggregate := view.Aggregate.Result
	if aggregate.Operation == "" {
		aggregate.Operation = operationOf(view.Results)
	}

	if aggregate.DryRun {
		if _, err := fmt.Fprintln(w, colors.heading.Sprint("Dry run: nothing was written.")); err != nil {
			return err
		}
	}

	printed := false
	for _, current := range sections(aggregate) {
		if len(current.entries) == 0 {
			continue
		}
		printed = true
		if _, err := fmt.Fprintln(w, colors.heading.Sprintf("%s:", current.label)); err != nil {
			return err
		}

		table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, entry := range current.entries {
			line := fmt.Sprintf("    %s\t%s\t%s", colors.status[current.key].Sprint(entry.Name), entry.Type, displayPath(entry))
			if entry.Detail != "" {
				line += "\t" + entry.Detail
			}
			if _, err := fmt.Fprintln(table, line); err != nil {
				return err
			}
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}

	if !printed && len(view.Faults) == 0 {
		verb := "deployed"
		if aggregate.Operation == resource.OperationFetch {
			verb = "fetched"
		}
		if _, err := fmt.Fprintf(w, "No content %s.\n", verb); err != nil {
			return err
		}
	}

	if len(view.Faults) > 0 {
		if _, err := fmt.Fprintln(w, colors.heading.Sprint("Service errors:")); err != nil {
			return err
		}
		for _, fault := range view.Faults {
			if _, err := fmt.Fprintf(w, "    %s\n", colors.fault.Sprint(fault)); err != nil {
				return err
			}
		}
	}
	return nil
}

func operationOf(results []resource.Result) resource.Operation {
	for _, result := range results {
		if result.Operation != "" {
			return result.Operation
		}
	}
	return resource.OperationDeploy
}

func displayPath(entry resource.Entry) string {
	if entry.Path == "" {
		return "(remote)"
	}
	return entry.Path
}

// tableRow is one entry of the --json-table output.
type tableRow struct {
	Service string `json:"service"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Key     string `json:"key"`
	Path    string `json:"path,omitempty"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

func tableRows(report orchestrator.Report) []tableRow {
	rows := make([]tableRow, 0)
	for _, result := range report.Results {
		for _, current := range sections(result) {
			for _, entry := range current.entries {
				status := string(entry.Status)
				if status == "" {
					status = current.label
				}
				rows = append(rows, tableRow{
					Service: result.Service,
					Name:    entry.Name,
					Type:    entry.Type,
					Key:     entry.Key,
					Path:    entry.Path,
					Status:  status,
					Detail:  entry.Detail,
				})
			}
		}
	}
	return rows
}

func writeJSONTable(w io.Writer, report orchestrator.Report) error {
	encoded, err := json.MarshalIndent(tableRows(report), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
