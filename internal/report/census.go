package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CellularAutomata3D/internal/engine"
)

// CensusLine formats one census report for a terminal.
func CensusLine(r engine.CensusReport) string {
	line := fmt.Sprintf("gen %-6s alive %-8s dying %-8s +%s -%s",
		humanize.Comma(r.Generation),
		humanize.Comma(int64(r.Population.Alive)),
		humanize.Comma(int64(r.Population.Dying)),
		humanize.Comma(int64(r.Births)),
		humanize.Comma(int64(r.Deaths)),
	)
	switch {
	case r.Extinct:
		line += " extinct"
	case r.Stable:
		line += " stable"
	}
	return line
}

// Summary is the closing line of a run.
func Summary(r engine.CensusReport, started time.Time) string {
	return fmt.Sprintf("%s generations, recent peak %s live cells, started %s",
		humanize.Comma(r.Generation),
		humanize.Comma(int64(r.WindowMax)),
		humanize.Time(started),
	)
}
