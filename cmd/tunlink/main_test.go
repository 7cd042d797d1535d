package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/pterm/pterm"

	"github.com/1ureka/tunlink/internal/config"
)

// The banner belongs to runRole alone, so a run prints it exactly once no
// matter whether flags or the interactive prompts produced the options.
func TestRunRoleBannerOnce(t *testing.T) {
	var out strings.Builder
	pterm.SetDefaultOutput(&out)
	defer pterm.SetDefaultOutput(os.Stdout)

	// pterm binds each prefix printer's Writer to os.Stdout at package init,
	// so SetDefaultOutput alone cannot capture pterm.Info.Println.
	prevInfoWriter := pterm.Info.Writer
	pterm.Info.Writer = &out
	defer func() { pterm.Info.Writer = prevInfoWriter }()

	o := config.Default()
	o.Role = config.RoleServer
	o.Key = "zz" // rejected before any device or socket is touched

	if err := runRole(context.Background(), o); err == nil {
		t.Fatal("runRole accepted an invalid key")
	}

	if n := strings.Count(out.String(), "tunlink — v"); n != 1 {
		t.Fatalf("banner printed %d times, want exactly once", n)
	}
}
