package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/adapters/songcsv"
	"github.com/ewilliams-labs/song-bot/internal/catalog"
	"github.com/ewilliams-labs/song-bot/internal/collector"
	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
	"github.com/ewilliams-labs/song-bot/internal/similarity"
	"github.com/ewilliams-labs/song-bot/internal/worker"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local track catalog",
	}
	cmd.AddCommand(
		newCatalogImportCmd(opts),
		newCatalogCollectCmd(opts),
		newCatalogSimilarCmd(opts),
		newCatalogStatsCmd(opts),
	)
	return cmd
}

func newCatalogImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv>",
		Short: "Load tracks from a song CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(false); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			res, err := songcsv.Import(cmd.Context(), f, repo, opts.logger.Named("import"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tracks, skipped %d rows\n", res.Imported, res.Skipped)
			return nil
		},
	}
}

func newCatalogCollectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collect <artist>...",
		Short: "Crawl seed artists and their related artists into the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := opts.logger

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			client, err := opts.newSpotify(ctx, metrics.New())
			if err != nil {
				return err
			}

			pool := worker.NewPool(repo, opts.cfg.Worker.QueueSize, worker.WithLogger(logger.Named("worker")))
			pool.Start(opts.cfg.Worker.Workers)

			c := collector.New(client, repo,
				collector.WithEnqueuer(pool),
				collector.WithParallelism(opts.cfg.Worker.Parallelism),
				collector.WithLogger(logger.Named("collector")),
			)
			report, err := c.Collect(ctx, args)
			pool.Stop()
			if err != nil {
				return err
			}

			enriched, failed := pool.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "artists: %d, saved: %d, already stored: %d, enriched: %d/%d, dropped: %d\n",
				report.Artists, report.Saved, report.Known, enriched, report.Deferred, report.Dropped)
			for _, e := range report.Errors {
				fmt.Fprintln(out, "error:", e)
			}
			if failed > 0 {
				logger.Warn("cli: some tracks could not be enriched", zap.Int64("failed", failed))
			}
			return nil
		},
	}
}

func newCatalogSimilarCmd(opts *rootOptions) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "similar <track-id>",
		Short: "List catalog tracks closest to a catalog track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(false); err != nil {
				return err
			}
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			cat, err := catalog.Load(cmd.Context(), repo)
			if err != nil {
				return err
			}
			seed, ok := cat.Lookup(args[0])
			if !ok {
				return fmt.Errorf("track %s is not in the catalog", args[0])
			}
			ranker, err := similarity.NewLinear(cat)
			if err != nil {
				return err
			}
			query, err := cat.Normalize(seed.Features)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tracks similar to %s:\n", seed.Label())
			for _, m := range ranker.Rank(query, top, func(t domain.Track) bool { return t.ID == seed.ID }) {
				fmt.Fprintf(out, "%.4f  %s\n", m.Score, m.Track.Label())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of tracks to list")
	return cmd
}

func newCatalogStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog size",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(false); err != nil {
				return err
			}
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			stored, err := repo.CountTracks(cmd.Context())
			if err != nil {
				return err
			}
			tracks, err := repo.ListTracks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tracks: %d, with features: %d\n", stored, len(tracks))
			return nil
		},
	}
}
