package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <database>",
	Short: "Print the accesses or transfers recorded by `run --record-db`.",
	Long: "`inspect <database>` prints one JSON object per recorded row. " +
		"Use --where with SQL conditions on the column names, e.g. " +
		"--where \"SetID = 3 AND Outcome = 'miss'\".",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		q, err := parseInspectQuery(cmd)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		err = inspect(cmd.Context(), cmd.OutOrStdout(), args[0], q)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("table", "accesses",
		"Table to print, accesses or transfers")
	inspectCmd.Flags().String("where", "", "SQL condition on the rows")
	inspectCmd.Flags().String("order-by", "Seq", "SQL ordering of the rows")
	inspectCmd.Flags().Int("limit", 0, "Maximum number of rows, 0 for all")
	inspectCmd.Flags().Int("offset", 0, "Number of rows to skip, used with --limit")
}

type inspectQuery struct {
	table  string
	sample any
	params datarecording.QueryParams
}

func parseInspectQuery(cmd *cobra.Command) (inspectQuery, error) {
	flags := cmd.Flags()

	var q inspectQuery

	table, _ := flags.GetString("table")
	switch table {
	case "accesses":
		q.table = trace.AccessTable
		q.sample = trace.AccessEntry{}
	case "transfers":
		q.table = trace.TransferTable
		q.sample = trace.TransferEntry{}
	default:
		return q, fmt.Errorf(
			"unknown table %q, must be accesses or transfers", table)
	}

	q.params.Where, _ = flags.GetString("where")
	q.params.OrderBy, _ = flags.GetString("order-by")
	q.params.Limit, _ = flags.GetInt("limit")
	q.params.Offset, _ = flags.GetInt("offset")

	return q, nil
}

func inspect(
	ctx context.Context,
	out io.Writer,
	dbFile string,
	q inspectQuery,
) error {
	// Opening a missing file would create an empty database.
	if _, err := os.Stat(dbFile); err != nil {
		return err
	}

	reader, err := datarecording.NewReader(dbFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbFile, err)
	}
	defer reader.Close()

	reader.MapTable(q.table, q.sample)

	rows, total, err := reader.Query(ctx, q.table, q.params)
	if err != nil {
		return fmt.Errorf("querying %s: %w", q.table, err)
	}

	enc := json.NewEncoder(out)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(out, "%d of %d rows\n", len(rows), total)

	return err
}
