package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/config"
)

// newCacheCmd creates the cache command group for the on-disk result cache.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Result cache commands"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show where the cache lives and how many results it holds",
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := fileStore()
				if err != nil {
					return err
				}
				n, err := store.Count()
				if err != nil {
					return err
				}
				cmd.Printf("Directory: %s\n", store.Directory())
				cmd.Printf("Entries:   %d\n", n)
				cmd.Printf("TTL:       %s\n", cache.FormatDuration(time.Duration(store.TTL())*time.Second))
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Remove expired results",
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := fileStore()
				if err != nil {
					return err
				}
				if err := store.CleanupExpired(); err != nil {
					return err
				}
				cmd.Println("Expired results removed")
				return nil
			},
		},
		newCacheClearCmd(),
	)
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := fileStore()
			if err != nil {
				return err
			}
			if !yes {
				if !canPrompt(cmd.InOrStdin()) {
					return errors.New("refusing to clear the cache non-interactively without --yes")
				}
				res := Confirm(cmd.OutOrStdout(), cmd.InOrStdin(),
					fmt.Sprintf("Remove every cached result in %s?", store.Directory()))
				if !res.Accepted {
					cmd.Println("Aborted")
					return nil
				}
			}
			if err := store.Clear(); err != nil {
				return err
			}
			cmd.Println("Cache cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func fileStore() (*cache.FileStore, error) {
	cfg := config.GetGlobalConfig()
	return cache.NewFileStore(cfg.CacheDirectory(), true, cfg.Cache.TTLSeconds)
}
