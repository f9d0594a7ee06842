package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"multiagent-mcp/internal/infra/logger"
	"multiagent-mcp/internal/usecase/multiagent"
)

type agentRow struct {
	Name    string `json:"name"`
	Display string `json:"display_name"`
	Model   string `json:"model"`
	Policy  string `json:"policy"`
	Enabled bool   `json:"enabled"`
}

// runAgents prints the roster with overrides applied. It never writes the
// overrides file.
func runAgents(opts options, w io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Discard()

	catalog, err := multiagent.NewCatalog(multiagent.Roster(), log)
	if err != nil {
		return err
	}
	agentsCfg := cfg.Agents
	agentsCfg.BootstrapOverrides = false
	if err := multiagent.LoadOverrides(catalog, agentsCfg, log); err != nil {
		return err
	}

	rows := make([]agentRow, 0, len(catalog.Names()))
	for _, a := range catalog.List() {
		rows = append(rows, agentRow{
			Name:    a.Name,
			Display: a.DisplayName,
			Model:   a.Model,
			Policy:  a.Policy.String(),
			Enabled: a.Enabled,
		})
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMODEL\tPOLICY\tENABLED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", r.Name, r.Model, r.Policy, r.Enabled)
	}
	return tw.Flush()
}
