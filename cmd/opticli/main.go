package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/username/optifolio/src/config"
	"github.com/username/optifolio/src/database"
	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/processors"
	"github.com/username/optifolio/src/services"
)

// opticli runs imports and reconciliations without the HTTP server, for
// batch jobs and local debugging.
func main() {
	app := cli.NewApp()
	app.Name = "opticli"
	app.Usage = "import activity exports and reconcile positions from the command line"

	app.Flags = []cli.Flag{
		cli.Int64Flag{
			Name:  "user",
			Usage: "user id to operate on",
			Value: 1,
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "import",
			Usage:     "parse an activity CSV, store it and reconcile",
			ArgsUsage: "<file.csv>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode",
					Usage: "fresh, update or rebuild",
					Value: string(processors.ModeUpdate),
				},
				cli.StringFlag{
					Name:  "source",
					Usage: "parser to use",
					Value: "activity",
				},
			},
			Action: runImport,
		},
		{
			Name:  "reconcile",
			Usage: "replay the stored history through the pipeline",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode",
					Usage: "fresh, update or rebuild",
					Value: string(processors.ModeUpdate),
				},
			},
			Action: runReconcile,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup() services.ImportService {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	database.InitDB(config.Cfg.DatabasePath)

	txStore := services.NewTransactionStore(database.DB)
	posStore := services.NewPositionStore(database.DB)
	return services.NewImportService(txStore, posStore, processors.NewReconciler(), nil)
}

func runImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("usage: opticli import [--mode MODE] <file.csv>", 1)
	}
	mode, ok := processors.ParseMode(c.String("mode"))
	if !ok {
		return cli.NewExitError("mode must be one of fresh, update, rebuild", 1)
	}

	file, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer file.Close()

	importService := setup()
	defer database.DB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := importService.Import(ctx, c.GlobalInt64("user"), c.String("source"), file, mode)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runReconcile(c *cli.Context) error {
	mode, ok := processors.ParseMode(c.String("mode"))
	if !ok {
		return cli.NewExitError("mode must be one of fresh, update, rebuild", 1)
	}

	importService := setup()
	defer database.DB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := importService.Reconcile(ctx, c.GlobalInt64("user"), mode)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func printResult(r *services.ImportResult) {
	fmt.Printf("mode:              %s\n", r.Mode)
	if r.RowsParsed > 0 {
		fmt.Printf("rows parsed:       %d\n", r.RowsParsed)
		fmt.Printf("rows inserted:     %d\n", r.RowsInserted)
		fmt.Printf("duplicate rows:    %d\n", r.RowsDuplicate)
	}
	fmt.Printf("positions created: %d\n", r.PositionsNew)
	fmt.Printf("positions merged:  %d\n", r.PositionsMerged)
	fmt.Printf("orders skipped:    %d\n", r.OrdersSkipped)
	if len(r.ClosingPrices) > 0 {
		fmt.Println("closing prices:")
		for leg, price := range r.ClosingPrices {
			fmt.Printf("  %s = %s\n", leg, price)
		}
	}
}
