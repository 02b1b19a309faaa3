package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/catalog"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/discovery"
	"github.com/KevinKickass/OpenBoardCore/internal/provider"
	"github.com/KevinKickass/OpenBoardCore/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listFormat string
	listAll    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Scan once and print the board list",
	Long: `Run every configured discovery source once, reconcile the detected ports with
the installed boards, the configured selection and the stored history, and print
the resulting board list. Ports of protocols other than serial and network are
only listed when a board was recognized on them, unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", formatTable, "output format: table, json or yaml")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include ports hidden by default")
	rootCmd.AddCommand(listCmd)
}

// listRow is one board list item as printed.
type listRow struct {
	Selected bool   `json:"selected" yaml:"selected"`
	Type     string `json:"type" yaml:"type"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Address  string `json:"address" yaml:"address"`
	Port     string `json:"port_label" yaml:"port_label"`
	Board    string `json:"board,omitempty" yaml:"board,omitempty"`
	FQBN     string `json:"fqbn,omitempty" yaml:"fqbn,omitempty"`
	Inferred string `json:"inferred_board,omitempty" yaml:"inferred_board,omitempty"`
}

type listDocument struct {
	SelectedIndex int       `json:"selected_index" yaml:"selected_index"`
	Items         []listRow `json:"items" yaml:"items"`
}

func runList(cmd *cobra.Command, args []string) error {
	if err := validFormat(listFormat); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	cat, err := catalog.Load(cfg.Catalog.SearchPaths, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Discovery.ScanTimeout+cfg.Discovery.Interval)
	defer cancel()

	watcher := discovery.NewWatcher(discovery.NewSources(cfg.Discovery, cat, logger), cat,
		cfg.Discovery.Interval, cfg.Discovery.ScanTimeout, logger)
	detected, _ := watcher.Scan(ctx)

	history, err := loadHistory(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	list := boards.CreateBoardList(detected, provider.BoardsConfigFromSelection(cfg.Selection), history)
	return writeBoardList(os.Stdout, list, listFormat, listAll)
}

// loadHistory reads the stored history. A SQLite database that does not exist
// yet means an empty history and is not created.
func loadHistory(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (boards.BoardListHistory, error) {
	if historyMissing(cfg) {
		logger.Debug("No history database", zap.String("path", cfg.SQLite.Path))
		return nil, nil
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	history, err := storage.LoadHistory(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

func historyMissing(cfg config.StorageConfig) bool {
	if cfg.Driver != config.DriverSQLite && cfg.Driver != "" {
		return false
	}
	_, err := os.Stat(cfg.SQLite.Path)
	return errors.Is(err, fs.ErrNotExist)
}

func writeBoardList(w io.Writer, list *boards.BoardList, format string, all bool) error {
	doc := listDocument{SelectedIndex: -1, Items: []listRow{}}
	detected := list.DetectedPorts()

	for i, item := range list.Items() {
		if !all {
			if dp, ok := detected[item.Port.Key()]; ok && !boards.IsVisiblePort(dp) {
				continue
			}
		}

		row := listRow{
			Selected: i == list.SelectedIndex(),
			Type:     string(item.Type),
			Protocol: item.Port.Protocol,
			Address:  item.Port.Address,
			Port:     item.Port.AddressLabel,
		}
		if item.Board != nil {
			row.Board = item.Board.Name
			row.FQBN = item.Board.FQBN
		}
		if item.InferredBoard != nil {
			row.Inferred = item.InferredBoard.Name
			if row.FQBN == "" {
				row.FQBN = item.InferredBoard.FQBN
			}
		}
		if row.Selected {
			doc.SelectedIndex = len(doc.Items)
		}
		doc.Items = append(doc.Items, row)
	}

	if format != formatTable {
		return renderDocument(w, format, doc)
	}

	if len(doc.Items) == 0 {
		_, err := fmt.Fprintln(w, "No ports detected.")
		return err
	}

	rows := make([][]string, len(doc.Items))
	for i, row := range doc.Items {
		marker := ""
		if row.Selected {
			marker = "*"
		}
		rows[i] = []string{marker, strconv.Itoa(i), row.Protocol, row.Port, row.Board, row.Inferred, row.FQBN, row.Type}
	}
	return renderTable(w, []string{"", "#", "PROTOCOL", "PORT", "BOARD", "REMEMBERED", "FQBN", "TYPE"}, rows)
}
