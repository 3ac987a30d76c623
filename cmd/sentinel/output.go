package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/pipeline"
	"LayerSentinel/internal/strategy"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, rep *pipeline.Report) {
	fmt.Fprintf(w, "Run %s at %s (%s)\n\n", rep.RunID, rep.StartedAt.Format("2006-01-02 15:04"), rep.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tETF\tSCORE\tPERF\tVS BENCH\tNOTE")
	for _, o := range rep.Outcomes {
		if !o.OK() {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t%s\n", o.Layer.Name, o.Layer.ETF, strategy.Reason(o.Err))
			continue
		}
		res := o.Result
		note := ""
		if res.Clamped {
			note = fmt.Sprintf("clamped from %d", res.RawScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%+.1f%%\t%+.1f%%\t%s\n",
			o.Layer.Name, o.Layer.ETF, res.Score, res.Performance, res.RelativeStrength, note)
	}
	tw.Flush()

	if rep.Top == nil {
		fmt.Fprintln(w, "\nNo layer could be scored.")
		return
	}
	fmt.Fprintf(w, "\nTop layer: %s\n", rep.Top.Layer.Name)
	for _, e := range rep.Top.Result.Evidence {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	fmt.Fprintln(w)
	printNews(w, rep.Top.Layer.NewsSymbol(), rep.News, rep.Tagged)
}

func printNews(w io.Writer, ticker string, res news.Result, tagged []model.TaggedNewsItem) {
	source := string(res.Tier)
	if !res.Live {
		source += ", offline"
	}
	fmt.Fprintf(w, "News for %s (%s)\n", ticker, source)
	if len(tagged) == 0 {
		fmt.Fprintln(w, "  no news")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, item := range tagged {
		published := "-"
		if item.PublishedAt > 0 {
			published = time.Unix(item.PublishedAt, 0).UTC().Format("01-02 15:04")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", item.Class, published, item.Publisher, item.Title)
	}
	tw.Flush()
}

func printMacro(w io.Writer, rep *pipeline.MacroReport) {
	r := rep.Reading
	fmt.Fprintf(w, "Macro light: %s\n", rep.Light)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if r.Breadth != nil {
		fmt.Fprintf(tw, "  Breadth\t%.4f\t%s (%s)\n", r.Breadth.Ratio, r.Breadth.Class, r.Breadth.Label())
	} else {
		fmt.Fprintln(tw, "  Breadth\t-\tunavailable")
	}
	if r.VIX != nil {
		fmt.Fprintf(tw, "  VIX\t%.2f\t%s\n", *r.VIX, r.VIXTier)
	} else {
		fmt.Fprintln(tw, "  VIX\t-\tunavailable")
	}
	if r.YieldLast != nil && r.YieldDelta != nil {
		shock := ""
		if r.YieldShock {
			shock = "shock"
		}
		fmt.Fprintf(tw, "  10Y yield\t%.2f\t%+.2f %s\n", *r.YieldLast, *r.YieldDelta, shock)
	} else {
		fmt.Fprintln(tw, "  10Y yield\t-\tunavailable")
	}
	tw.Flush()
}
