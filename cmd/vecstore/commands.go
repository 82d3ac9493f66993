package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore"
	"github.com/kailas-cloud/vecstore/internal/version"
)

var demoTexts = []string{"Apples and oranges", "Cars and airplanes", "Pineapple", "Train", "Banana"}

func newDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the tutorial: add five texts, search by text, by vector and with a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			s, err := a.store(ctx, c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			metadatas := make([]map[string]any, len(demoTexts))
			for i, t := range demoTexts {
				metadatas[i] = map[string]any{"len": len(t)}
			}
			ids, err := s.AddTexts(ctx, demoTexts, metadatas)
			if err != nil {
				return fmt.Errorf("add texts: %w", err)
			}
			fmt.Fprintf(out, "Added %d texts to %s.%s (%s)\n", len(ids), s.Dataset(), s.Table(), s.Distance())

			hits, err := s.SimilaritySearch(ctx, "Plane", 1)
			if err != nil {
				return fmt.Errorf("search by text: %w", err)
			}
			fmt.Fprintln(out, "\nsimilarity_search(\"Plane\", k=1):")
			printResults(out, hits)

			vec, err := c.Embed(ctx, "Sweet fruit")
			if err != nil {
				return fmt.Errorf("embed query: %w", err)
			}
			hits, err = s.SimilaritySearchByVector(ctx, vec, 4)
			if err != nil {
				return fmt.Errorf("search by vector: %w", err)
			}
			fmt.Fprintln(out, "\nsimilarity_search_by_vector(embed(\"Sweet fruit\")):")
			printResults(out, hits)

			page, err := s.Search(ctx, vecstore.Query{Vector: vec, K: 4, Filter: map[string]any{"len": 6}})
			if err != nil {
				return fmt.Errorf("filtered search: %w", err)
			}
			fmt.Fprintln(out, "\nsimilarity_search_by_vector(..., filter={len: 6}):")
			printResults(out, page.Results)

			if page.JobID == "" {
				return nil
			}
			stats, err := s.JobStats(ctx, page.JobID)
			if errors.Is(err, vecstore.ErrNotSupported) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("job stats: %w", err)
			}
			fmt.Fprintln(out, "\njob stats of the filtered search:")
			printJob(out, stats)
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var metaPairs []string
	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Embed and insert texts into the configured table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parsePairs(metaPairs)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			s, err := a.store(ctx, c)
			if err != nil {
				return err
			}
			metadatas := make([]map[string]any, len(args))
			for i := range args {
				metadatas[i] = meta
			}
			ids, err := s.AddTexts(ctx, args, metadatas)
			if err != nil {
				return fmt.Errorf("add texts: %w", err)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&metaPairs, "meta", "m", nil, "metadata key=value applied to every text (repeatable)")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		k          int
		filters    []string
		maxDist    float64
		bruteForce bool
	)
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Similarity search by text with optional exact-match filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parsePairs(filters)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			s, err := a.store(ctx, c)
			if err != nil {
				return err
			}
			q := vecstore.Query{
				Text:       args[0],
				K:          k,
				Filter:     f,
				BruteForce: bruteForce,
			}
			if maxDist > 0 {
				q.MaxDistance = &maxDist
			}
			page, err := s.Search(ctx, q)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			printResults(cmd.OutOrStdout(), page.Results)
			if page.JobID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "job: %s\n", page.JobID)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", 4, "number of results")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "exact-match metadata filter key=value (repeatable)")
	cmd.Flags().Float64Var(&maxDist, "max-distance", 0, "drop results farther than this (0 = no limit)")
	cmd.Flags().BoolVar(&bruteForce, "brute-force", false, "skip the vector index and scan exactly")
	return cmd
}

func newJobCmd(a *app) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "job <job-id>",
		Short: "Show statistics of a backend job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.JobStats(ctx, args[0], location)
			if err != nil {
				return fmt.Errorf("job stats: %w", err)
			}
			printJob(cmd.OutOrStdout(), stats)
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "job location (default: store.location)")
	return cmd
}

func newUsageCmd(a *app) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show the embedding token budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			r, err := c.Usage(ctx, vecstore.UsagePeriod(period))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "period\t%s (%s - %s)\n", r.Period,
				r.PeriodStart.Format(time.RFC3339), r.PeriodEnd.Format(time.RFC3339))
			fmt.Fprintf(w, "used\t%d\n", r.Used)
			fmt.Fprintf(w, "limit\t%s\n", limitString(r.Limit))
			fmt.Fprintf(w, "remaining\t%s\n", limitString(r.Remaining))
			fmt.Fprintf(w, "exhausted\t%t\n", r.Exhausted)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&period, "period", string(vecstore.PeriodDay), "day or month")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := a.logger
			logger.Info("Starting vecstore API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", a.env),
				zap.Int("http_port", a.cfg.HTTP.Port),
				zap.String("store_driver", a.cfg.Store.Driver),
			)

			c, err := a.client(ctx, vecstore.WithPrometheus(prometheus.DefaultRegisterer))
			if err != nil {
				return err
			}
			defer c.Close()
			logger.Info("Connected to backend", zap.String("backend", c.Backend()))

			addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      c.Handler(a.cfg.Auth.APIKeys),
				ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			logger.Info("Received shutdown signal")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
				time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
}

// parsePairs turns key=value flags into metadata. Values that parse as
// integers, floats or booleans keep that type.
func parsePairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[k] = parseScalar(v)
	}
	return out, nil
}

func parseScalar(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

func printResults(out io.Writer, results []vecstore.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "  (no results)")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(w, "  %.4f\t%s\t%v\n", r.Distance, r.Content, r.Metadata)
	}
	_ = w.Flush()
}

func printJob(out io.Writer, s vecstore.JobStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", s.ID)
	fmt.Fprintf(w, "kind\t%s\n", s.Kind)
	fmt.Fprintf(w, "state\t%s\n", s.State)
	fmt.Fprintf(w, "duration\t%s\n", s.Duration)
	fmt.Fprintf(w, "bytes processed\t%d\n", s.TotalBytesProcessed)
	fmt.Fprintf(w, "bytes billed\t%d\n", s.TotalBytesBilled)
	fmt.Fprintf(w, "slot ms\t%d\n", s.SlotMillis)
	fmt.Fprintf(w, "cache hit\t%t\n", s.CacheHit)
	fmt.Fprintf(w, "rows in/out\t%d/%d\n", s.InputRows, s.OutputRows)
	if s.Error != "" {
		fmt.Fprintf(w, "error\t%s\n", s.Error)
	}
	_ = w.Flush()
}

func limitString(n int64) string {
	if n < 0 {
		return "unlimited"
	}
	return strconv.FormatInt(n, 10)
}
