package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"complybook/internal/services/statement"
)

var (
	importSession     string
	importFile        string
	importPerformedBy string

	ledgerOrg  string
	ledgerFile string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a bank statement file (csv or xls) into a session",
	Example: `  complybook import --session 3b0f... --file january.csv
  complybook import --session 3b0f... --file january.xls --performed-by jane`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := uuid.Parse(importSession)
		if err != nil {
			return fmt.Errorf("invalid --session: %w", err)
		}
		rows, err := readRows(importFile)
		if err != nil {
			return err
		}

		db, svc, err := openService()
		if err != nil {
			return err
		}
		defer closeDB(db)

		result, err := svc.ImportStatement(cmd.Context(), sessionID, rows, importPerformedBy)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries (%d skipped, %d duplicates)\n",
			len(result.Entries), result.Skipped, result.Duplicates)
		return nil
	},
}

var loadLedgerCmd = &cobra.Command{
	Use:   "load-ledger",
	Short: "Load general ledger transactions for an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		orgID, err := uuid.Parse(ledgerOrg)
		if err != nil {
			return fmt.Errorf("invalid --org: %w", err)
		}
		rows, err := readRows(ledgerFile)
		if err != nil {
			return err
		}

		db, svc, err := openService()
		if err != nil {
			return err
		}
		defer closeDB(db)

		inserted, skipped, err := svc.LoadLedger(cmd.Context(), orgID, rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d transactions (%d skipped)\n", inserted, skipped)
		return nil
	},
}

func readRows(path string) ([]statement.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := statement.ReadFile(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logger.Debug("read file", "path", path, "rows", len(rows))
	return rows, nil
}

func init() {
	importCmd.Flags().StringVar(&importSession, "session", "", "reconciliation session id")
	importCmd.Flags().StringVar(&importFile, "file", "", "statement file (.csv or .xls)")
	importCmd.Flags().StringVar(&importPerformedBy, "performed-by", "", "name recorded in the audit trail")
	_ = importCmd.MarkFlagRequired("session")
	_ = importCmd.MarkFlagRequired("file")

	loadLedgerCmd.Flags().StringVar(&ledgerOrg, "org", "", "organization id")
	loadLedgerCmd.Flags().StringVar(&ledgerFile, "file", "", "ledger export (.csv or .xls)")
	_ = loadLedgerCmd.MarkFlagRequired("org")
	_ = loadLedgerCmd.MarkFlagRequired("file")
}
