package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"LayerSentinel/internal/macro"
	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/pipeline"
)

// FormatLayerReport formats a scoring run: the layer ranking with evidence,
// unavailable layers, then the top layer's news.
func FormatLayerReport(rep *pipeline.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>LayerSentinel</b> | %s\n\n", rep.StartedAt.Format("2006-01-02 15:04")))

	scored := make([]model.LayerOutcome, 0, len(rep.Outcomes))
	var failed []model.LayerOutcome
	for _, o := range rep.Outcomes {
		if o.OK() {
			scored = append(scored, o)
		} else {
			failed = append(failed, o)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Result.Score > scored[j].Result.Score })

	b.WriteString("📈 <b>Layer ranking:</b>\n")
	for i, o := range scored {
		res := o.Result
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> (%s) %s %d\n",
			i+1, html.EscapeString(o.Layer.Name), html.EscapeString(o.Layer.ETF), scoreBar(res.Score), res.Score))
		for _, e := range res.Evidence {
			b.WriteString("   • " + html.EscapeString(e) + "\n")
		}
		if res.Clamped {
			b.WriteString(fmt.Sprintf("   ⚠️ raw score %d capped\n", res.RawScore))
		}
	}
	if len(scored) == 0 {
		b.WriteString("  no layer could be scored\n")
	}

	if len(failed) > 0 {
		b.WriteString("\n⚠️ <b>Unavailable:</b>\n")
		for _, o := range failed {
			b.WriteString(fmt.Sprintf("  %s: %s\n", html.EscapeString(o.Layer.Name), html.EscapeString(errText(o.Err))))
		}
	}

	if rep.Top != nil {
		b.WriteString("\n")
		b.WriteString(FormatNews(rep.Top.Layer.NewsSymbol(), rep.News, rep.Tagged))
	}
	return b.String()
}

// FormatNews formats a news result with its relevance tags.
func FormatNews(ticker string, res news.Result, tagged []model.TaggedNewsItem) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📰 <b>News: %s</b>", html.EscapeString(ticker)))
	if !res.Live {
		b.WriteString(" (offline)")
	}
	b.WriteString("\n")
	if len(tagged) == 0 {
		b.WriteString("  no news\n")
		return b.String()
	}
	for _, it := range tagged {
		b.WriteString(fmt.Sprintf("%s <a href=\"%s\">%s</a>\n",
			classIcon(it.Class), html.EscapeString(it.Link), html.EscapeString(it.Title)))
		meta := html.EscapeString(it.Publisher)
		if it.PublishedAt > 0 {
			meta += " · " + time.Unix(it.PublishedAt, 0).UTC().Format("01-02 15:04")
		}
		b.WriteString("   " + meta + "\n")
	}
	return b.String()
}

// FormatMacro formats a macro reading as a traffic light.
func FormatMacro(rep *pipeline.MacroReport) string {
	var b strings.Builder
	rd := rep.Reading
	b.WriteString(fmt.Sprintf("%s <b>Macro</b> | %s\n\n", lightIcon(rep.Light), rep.At.Format("2006-01-02 15:04")))

	if rd.Breadth != nil {
		b.WriteString(fmt.Sprintf("Breadth: %.4f (%s)\n", rd.Breadth.Ratio, rd.Breadth.Label()))
	} else {
		b.WriteString("Breadth: n/a\n")
	}
	if rd.VIX != nil {
		b.WriteString(fmt.Sprintf("VIX: %.2f (%s)\n", *rd.VIX, strings.ToLower(string(rd.VIXTier))))
	} else {
		b.WriteString("VIX: n/a\n")
	}
	if rd.YieldLast != nil && rd.YieldDelta != nil {
		b.WriteString(fmt.Sprintf("10Y yield: %.2f%% (%+.2f)", *rd.YieldLast, *rd.YieldDelta))
		if rd.YieldShock {
			b.WriteString(" ⚡ shock")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("10Y yield: n/a\n")
	}
	return b.String()
}

// FormatFlags lists the fundamental flag of every layer.
func FormatFlags(names []string, flags map[string]bool) string {
	var b strings.Builder
	b.WriteString("🚩 <b>Fundamental flags</b>\n\n")
	for _, n := range names {
		state := "off"
		if flags[n] {
			state = "ON"
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", html.EscapeString(n), state))
	}
	return b.String()
}

func scoreBar(score int) string {
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return strings.Repeat("■", score) + strings.Repeat("□", 10-score)
}

func classIcon(c model.Classification) string {
	switch c {
	case model.ClassStrong:
		return "🟢"
	case model.ClassKeyword:
		return "🔵"
	default:
		return "⚪"
	}
}

func lightIcon(l macro.Light) string {
	switch l {
	case macro.LightGreen:
		return "🟢"
	case macro.LightRed:
		return "🔴"
	default:
		return "🟡"
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
