package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"LayerSentinel/internal/server"
)

var (
	scoreDemo    bool
	scoreMaxNews int
	scoreLayers  []string
	scoreTimeout time.Duration
	newsDemo     bool
	newsMaxItems int
	macroTimeout time.Duration
	clearTimeout time.Duration
)

// scoreCmd runs one scoring cycle and prints it
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score every layer once and print the ranking",
	Long: `Score pulls the layer ETFs and the benchmark, scores each layer, and
fetches news for the top layer.

Examples:
  sentinel score
  sentinel score --layers Chips,Power --json
  sentinel score --demo`,
	RunE: runScore,
}

// newsCmd runs the news chain for one ticker
var newsCmd = &cobra.Command{
	Use:   "news TICKER",
	Short: "Fetch tagged news for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE:  runNews,
}

// macroCmd prints the macro indicators
var macroCmd = &cobra.Command{
	Use:   "macro",
	Short: "Print breadth, VIX and yield readings with the macro light",
	RunE:  runMacro,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the upstream response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached market and news response",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(scoreCmd, newsCmd, macroCmd, cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	scoreCmd.Flags().BoolVar(&scoreDemo, "demo", false, "Use placeholder news instead of live sources")
	scoreCmd.Flags().IntVar(&scoreMaxNews, "max-news", 0, "Maximum news items (default from config)")
	scoreCmd.Flags().StringSliceVar(&scoreLayers, "layers", nil, "Only score these layers")
	scoreCmd.Flags().DurationVar(&scoreTimeout, "timeout", 2*time.Minute, "Overall timeout")

	newsCmd.Flags().BoolVar(&newsDemo, "demo", false, "Use placeholder news instead of live sources")
	newsCmd.Flags().IntVar(&newsMaxItems, "max", 0, "Maximum news items (default from config)")

	macroCmd.Flags().DurationVar(&macroTimeout, "timeout", time.Minute, "Overall timeout")
	cacheClearCmd.Flags().DurationVar(&clearTimeout, "timeout", 10*time.Second, "Overall timeout")
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), scoreTimeout)
	defer cancel()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.runOptions()
	if scoreDemo {
		opts.UseDemoNews = true
	}
	if scoreMaxNews > 0 {
		opts.MaxNewsItems = scoreMaxNews
	}
	opts.Layers = scoreLayers

	rep, err := a.runner.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("scoring run: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), server.NewReportView(rep))
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

func runNews(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.runOptions()
	if newsDemo {
		opts.UseDemoNews = true
	}
	if newsMaxItems > 0 {
		opts.MaxNewsItems = newsMaxItems
	}

	ticker := strings.ToUpper(strings.TrimSpace(args[0]))
	res, tagged := a.runner.News(ctx, ticker, opts)
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), server.NewsView{Ticker: ticker, Tier: res.Tier, Live: res.Live, Items: tagged})
	}
	printNews(cmd.OutOrStdout(), ticker, res, tagged)
	return nil
}

func runMacro(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), macroTimeout)
	defer cancel()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.runner.Macro(ctx)
	if err != nil {
		return fmt.Errorf("macro run: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), rep)
	}
	printMacro(cmd.OutOrStdout(), rep)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), clearTimeout)
	defer cancel()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
	return nil
}
