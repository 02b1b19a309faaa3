package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/storage"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the boards remembered per port",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered boards",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyForgetCmd = &cobra.Command{
	Use:   "forget <port-key>",
	Short: "Forget the board remembered for a port",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryForget,
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyForgetCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(ctx context.Context, cfg *config.Config) (storage.HistoryStore, error) {
	return storage.Open(ctx, cfg.Storage, newLogger())
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if historyMissing(cfg.Storage) {
		fmt.Println("No boards remembered.")
		return nil
	}

	ctx := context.Background()
	store, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No boards remembered.")
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.PortKey, e.Board.Name, e.Board.FQBN, e.UpdatedAt.Local().Format(time.DateTime)}
	}
	return renderTable(os.Stdout, []string{"PORT", "BOARD", "FQBN", "UPDATED"}, rows)
}

func runHistoryForget(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if historyMissing(cfg.Storage) {
		return fmt.Errorf("no board remembered for %s", args[0])
	}

	ctx := context.Background()
	store, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(ctx, args[0]); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no board remembered for %s", args[0])
		}
		return fmt.Errorf("forget %s: %w", args[0], err)
	}
	fmt.Printf("Forgot %s\n", args[0])
	return nil
}
