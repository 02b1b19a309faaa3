package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KevinKickass/OpenBoardCore/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogFormat string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Work with board definition files",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate every board definition below a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogValidate,
}

var catalogListCmd = &cobra.Command{
	Use:   "list [dir...]",
	Short: "List installed boards in board list order",
	Long: `List the boards of the given directories, or of the configured catalog search
paths when no directory is given.`,
	RunE: runCatalogList,
}

func init() {
	catalogListCmd.Flags().StringVarP(&catalogFormat, "format", "f", formatTable, "output format: table, json or yaml")
	catalogCmd.AddCommand(catalogValidateCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	return validateCatalog(os.Stdout, args[0])
}

func validateCatalog(w io.Writer, dir string) error {
	logger := newLogger()
	defer logger.Sync()

	c, err := catalog.New(logger)
	if err != nil {
		return err
	}

	loadErr := c.LoadDir(dir)
	fmt.Fprintf(w, "%d valid board definitions, %d vendor indexes in %s\n", c.Len(), len(c.Vendors()), dir)
	if loadErr == nil {
		return nil
	}

	var invalid interface{ Unwrap() []error }
	if errors.As(loadErr, &invalid) {
		for _, err := range invalid.Unwrap() {
			fmt.Fprintf(w, "  invalid: %v\n", err)
		}
		return fmt.Errorf("%d invalid files", len(invalid.Unwrap()))
	}
	fmt.Fprintf(w, "  invalid: %v\n", loadErr)
	return fmt.Errorf("catalog has invalid files")
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	if err := validFormat(catalogFormat); err != nil {
		return err
	}

	searchPaths := args
	if len(searchPaths) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		searchPaths = cfg.Catalog.SearchPaths
	}

	logger := newLogger()
	defer logger.Sync()

	c, err := catalog.Load(searchPaths, logger)
	if err != nil {
		return err
	}
	return writeCatalog(os.Stdout, c, catalogFormat)
}

type catalogRow struct {
	Name        string `json:"name" yaml:"name"`
	FQBN        string `json:"fqbn" yaml:"fqbn"`
	Vendor      string `json:"vendor" yaml:"vendor"`
	DefaultFQBN string `json:"default_fqbn" yaml:"default_fqbn"`
}

func writeCatalog(w io.Writer, c *catalog.Catalog, format string) error {
	defs := c.Definitions()
	rows := make([]catalogRow, len(defs))
	for i, def := range defs {
		rows[i] = catalogRow{
			Name:        def.Board.Name,
			FQBN:        def.Board.FQBN,
			Vendor:      def.Board.Vendor,
			DefaultFQBN: catalog.DefaultFQBN(def),
		}
	}

	if format != formatTable {
		return renderDocument(w, format, rows)
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = []string{row.Name, row.FQBN, row.Vendor, row.DefaultFQBN}
	}
	return renderTable(w, []string{"NAME", "FQBN", "VENDOR", "DEFAULT FQBN"}, cells)
}
