package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/snapetech/panelm3u/internal/catalog"
	"github.com/snapetech/panelm3u/internal/pipeline"
	"github.com/snapetech/panelm3u/internal/playlist"
)

var dim = pterm.NewStyle(pterm.FgGray)

// progressBar adapts the fan-out progress callback to a pterm bar. The bar starts
// on the first report because the total is only known then.
type progressBar struct {
	title string
	bar   *pterm.ProgressbarPrinter
}

func (p *progressBar) update(done, total int) {
	if total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar, _ = pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle(p.title).
			WithShowCount(true).
			WithShowPercentage(true).
			WithShowElapsedTime(true).
			Start()
		if p.bar == nil {
			return
		}
	}
	if d := done - p.bar.Current; d > 0 {
		p.bar.Add(d)
	}
}

func (p *progressBar) stop() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
	}
}

// printFacetWarnings reports every facet that did not load cleanly.
func printFacetWarnings(s *pipeline.Session) {
	names := make([]string, 0, len(s.Facets))
	for name := range s.Facets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := s.Facets[name]
		if !f.Status.OK() {
			pterm.Warning.Printf("%s: %s %s\n", name, f.Status, dim.Sprint(f.Error))
		} else if f.Skipped > 0 {
			pterm.Warning.Printf("%s: skipped %d malformed items\n", name, f.Skipped)
		}
	}
}

func printChannels(channels []catalog.Channel) {
	table := pterm.TableData{{"ID", "Name", "Category"}}
	for _, ch := range channels {
		table = append(table, []string{strconv.FormatInt(ch.StreamID, 10), ch.Name, ch.Category})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

// chooseChannels shows a filterable multiselect and returns the chosen ids in list order.
func chooseChannels(channels []catalog.Channel) ([]int64, error) {
	labels := make([]string, len(channels))
	byLabel := make(map[string]int64, len(channels))
	for i, ch := range channels {
		labels[i] = fmt.Sprintf("%s [%s] #%d", ch.Name, ch.Category, ch.StreamID)
		byLabel[labels[i]] = ch.StreamID
	}
	picked, err := pterm.DefaultInteractiveMultiselect.
		WithDefaultText("Select live channels (type to filter, space to toggle, enter to confirm)").
		WithOptions(labels).
		WithFilter(true).
		WithMaxHeight(15).
		Show()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(picked))
	for _, l := range picked {
		ids = append(ids, byLabel[l])
	}
	return ids, nil
}

func printResult(path string, res pipeline.Result) {
	c := res.Counts
	content := fmt.Sprintf("%s %d   %s %d   %s %d",
		pterm.FgGreen.Sprint("Live:"), c.Live,
		pterm.FgGreen.Sprint("Movies:"), c.Movies,
		pterm.FgGreen.Sprint("Episodes:"), c.Episodes,
	)
	if c.Dropped > 0 || c.Missed > 0 {
		content += fmt.Sprintf("\n%s %d   %s %d",
			pterm.FgYellow.Sprint("Dropped:"), c.Dropped,
			pterm.FgYellow.Sprint("Unknown ids:"), c.Missed,
		)
	}
	f := res.Failures
	if f.Series > 0 {
		content += fmt.Sprintf("\n%s %d of %d series",
			pterm.FgRed.Sprint("Failed:"), f.Series, f.SeriesTotal)
	}
	pterm.DefaultBox.WithTitle("Playlist").Println(content)
	for name, st := range f.Facets {
		pterm.Warning.Printf("%s section is empty: %s\n", name, st)
	}
	pterm.Success.Printf("Wrote %s (%d bytes)\n", path, len(res.Document))
}

type groupCount struct {
	live, vod int
}

func printGroups(counts map[string]*groupCount, st playlist.Stats) {
	names := make([]string, 0, len(counts))
	for g := range counts {
		names = append(names, g)
	}
	sort.Strings(names)
	table := pterm.TableData{{"Group", "Live", "VOD"}}
	for _, g := range names {
		c := counts[g]
		table = append(table, []string{g, strconv.Itoa(c.live), strconv.Itoa(c.vod)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	pterm.Info.Printf("%d entries (%d live, %d vod) from %d lines; %d orphan #EXTINF, %d dangling URLs\n",
		st.Entries, st.Live, st.VOD, st.Lines, st.Orphans, st.Dangling)
}
