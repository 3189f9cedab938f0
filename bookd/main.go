package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagBook   string
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	root := &cobra.Command{
		Use:           "bookd",
		Short:         "Reversi opening-book engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagConfig != "" {
				if err := LoadConfigFile(flagConfig); err != nil {
					return err
				}
			}
			if flagBook != "" {
				config := GetConfig()
				config.BookPath = flagBook
				configStore.Update(config)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flagBook, "book", "", "book file (overrides config)")

	root.AddCommand(
		newServeCmd(logger),
		newNewCmd(logger),
		newInfoCmd(logger),
		newShowCmd(logger),
		newGrowCmd(logger, GrowDeviate),
		newGrowCmd(logger, GrowEnhance),
		newFillCmd(logger),
		newPruneCmd(logger),
		newSubtreeCmd(logger),
		newDeepenCmd(logger),
		newFixCmd(logger),
		newMergeCmd(logger),
		newImportCmd(logger),
		newExportCmd(logger),
	)

	if err := root.Execute(); err != nil {
		logger.Printf("[bookd] %v", err)
		os.Exit(1)
	}
}

func loadBookOrFail(logger *log.Logger) (*Book, string, error) {
	path := GetConfig().BookPath
	bk, err := LoadBook(path, logger)
	if err != nil {
		return nil, "", err
	}
	return bk, path, nil
}

func newServeCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the book over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(logger)
		},
	}
}

func newNewCmd(logger *log.Logger) *cobra.Command {
	var level, nEmpties int
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a fresh book holding the initial position",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := GetConfig()
			if level > 0 {
				config.Level = level
			}
			if nEmpties > 0 {
				config.NEmpties = nEmpties
			}
			configStore.Update(config)
			bk := NewBook(config.Level, config.NEmpties, logger)
			if err := SaveBook(bk, config.BookPath); err != nil {
				return err
			}
			logger.Printf("[book] new level %d book (height %d empties) written to %s",
				config.Level, config.NEmpties, config.BookPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&level, "level", 0, "search level")
	cmd.Flags().IntVar(&nEmpties, "n-empties", 0, "minimum empties stored")
	return cmd
}

func newInfoCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print book statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			info := bk.Info()
			fmt.Printf("book %s\n", path)
			fmt.Printf("  positions %d, links %d, leaves %d\n", info.Positions, info.Links, info.Leaves)
			fmt.Printf("  level %d, height %d empties, buckets %d\n", info.Level, info.NEmpties, info.Buckets)
			fmt.Printf("  empties range [%d, %d]\n", info.MinEmpties, info.MaxEmpties)
			fmt.Printf("  root score %+d [%+d, %+d], %d solved lines\n",
				info.RootValue, info.RootLower, info.RootUpper, info.RootLines)
			return nil
		},
	}
}

func newShowCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show <board>",
		Short: "Show one stored position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := ParseBoard(args[0])
			if err != nil {
				return err
			}
			bk, _, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			out, err := bk.Show(board)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func newGrowCmd(logger *log.Logger, strategy GrowStrategy) *cobra.Command {
	var playerDev, oppDev, lower, upper int
	short := "Grow the book along near-best lines"
	if strategy == GrowEnhance {
		short = "Grow the book where score bounds are loose"
	}
	cmd := &cobra.Command{
		Use:   string(strategy),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			params := DefaultGrowParams()
			if cmd.Flags().Changed("player-deviation") {
				params.PlayerDeviation = playerDev
			}
			if cmd.Flags().Changed("opponent-deviation") {
				params.OpponentDeviation = oppDev
			}
			if cmd.Flags().Changed("lower") {
				params.Lower = lower
			}
			if cmd.Flags().Changed("upper") {
				params.Upper = upper
			}
			var progress func(GrowEvent)
			if GetConfig().LogProgress {
				progress = func(e GrowEvent) {
					logger.Printf("[book:grow] iteration %d: %d/%d expanded, %d positions, last %s",
						e.Iteration, e.Expanded, e.Total, e.Positions, e.Move)
				}
			}
			added, err := bk.Grow(strategy, params, NewBookSaver(path), progress)
			if err != nil {
				return err
			}
			logger.Printf("[book:grow] %s added %d positions", strategy, added)
			return nil
		},
	}
	cmd.Flags().IntVar(&playerDev, "player-deviation", 0, "own deviation budget in discs")
	cmd.Flags().IntVar(&oppDev, "opponent-deviation", 0, "opponent deviation budget in discs")
	cmd.Flags().IntVar(&lower, "lower", 0, "lowest score worth exploring")
	cmd.Flags().IntVar(&upper, "upper", 0, "highest score worth exploring")
	return cmd
}

func newFillCmd(logger *log.Logger) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Insert missing positions between stored ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			if depth <= 0 {
				depth = GetConfig().FillDepth
			}
			bk.Fill(depth)
			return SaveBook(bk, path)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum chain gap in plies")
	return cmd
}

func newPruneCmd(logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove positions outside the deviation bounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			bk.Prune(DefaultGrowParams())
			return SaveBook(bk, path)
		},
	}
	return cmd
}

func newSubtreeCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "subtree <board>",
		Short: "Keep only the subgraph reachable from a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := ParseBoard(args[0])
			if err != nil {
				return err
			}
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			if _, err := bk.Subtree(board); err != nil {
				return err
			}
			return SaveBook(bk, path)
		},
	}
}

func newDeepenCmd(logger *log.Logger) *cobra.Command {
	var level int
	cmd := &cobra.Command{
		Use:   "deepen",
		Short: "Re-search shallow leaves at the book level",
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			if level > bk.Level() {
				bk.level = level
			}
			saver := NewBookSaver(path)
			bk.Deepen(func(done, total int) {
				if err := saver.MaybeCheckpoint(bk); err != nil {
					logger.Printf("[book:io] checkpoint failed: %v", err)
				}
			})
			return SaveBook(bk, path)
		},
	}
	cmd.Flags().IntVar(&level, "level", 0, "raise the book level first")
	return cmd
}

func newFixCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "fix",
		Short: "Validate every position and repair the broken ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			fixed := bk.Fix()
			logger.Printf("[book] fixed %d positions", fixed)
			if fixed == 0 {
				return nil
			}
			return SaveBook(bk, path)
		},
	}
}

func newMergeCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <other-book>",
		Short: "Merge another book into this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, path, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			other, err := LoadBook(args[0], logger)
			if err != nil {
				return err
			}
			bk.Merge(other)
			return SaveBook(bk, path)
		},
	}
}

func newImportCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import <source>",
		Short: "Read a book in another format and write it to the book path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, err := LoadBook(args[0], logger)
			if err != nil {
				return err
			}
			path := GetConfig().BookPath
			if err := SaveBook(bk, path); err != nil {
				return err
			}
			logger.Printf("[book:io] imported %d positions from %s into %s", bk.Count(), args[0], path)
			return nil
		},
	}
}

func newExportCmd(logger *log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "export <destination>",
		Short: "Write the book in the format the destination extension names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bk, _, err := loadBookOrFail(logger)
			if err != nil {
				return err
			}
			if err := SaveBook(bk, args[0]); err != nil {
				return err
			}
			logger.Printf("[book:io] exported %d positions to %s", bk.Count(), args[0])
			return nil
		},
	}
}
