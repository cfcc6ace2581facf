package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sectorsguard/cmd/scheduler"
	"sectorsguard/src/bootstrap"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "Sectorsguard CMD"
	app.Usage = "The sectorsguard data validation command line interface"
	app.Version = Version

	app.Commands = []cli.Command{
		validateCMD,
		validateAllCMD,
		scheduleCMD,
		resultsCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var windowFlags = []cli.Flag{
	cli.StringFlag{Name: "start_date", Usage: "first day of the window (YYYY-MM-DD)"},
	cli.StringFlag{Name: "end_date", Usage: "last day of the window (YYYY-MM-DD)"},
}

var (
	validateCMD = cli.Command{
		Name:        "validate",
		Usage:       "validate one dataset",
		Action:      validateAction,
		ArgsUsage:   "",
		Flags:       append([]cli.Flag{cli.StringFlag{Name: "dataset", Usage: "dataset to validate"}}, windowFlags...),
		Description: `Run the checks of a single dataset and print the result`,
	}
	validateAllCMD = cli.Command{
		Name:        "validate_all",
		Usage:       "validate every registered dataset",
		Action:      validateAllAction,
		ArgsUsage:   "",
		Flags:       windowFlags,
		Description: `Run every registered dataset and print the batch summary`,
	}
	scheduleCMD = cli.Command{
		Name:        "schedule",
		Usage:       "run validate_all on a cron schedule",
		Action:      scheduleAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run validate_all on VALIDATION_SCHEDULE until interrupted`,
	}
	resultsCMD = cli.Command{
		Name:      "results",
		Usage:     "print stored validation results",
		Action:    resultsAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "dataset", Usage: "only results of this dataset"},
			cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of results"},
			cli.BoolFlag{Name: "local", Usage: "read the local fallback directory instead of the database"},
		},
		Description: `Print stored results, newest first`,
	}
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateAction(c *cli.Context) error {
	dataset := c.String("dataset")
	if dataset == "" {
		return cli.NewExitError("--dataset is required", 2)
	}
	logrus.WithField("cmd", "validate").WithField("dataset", dataset).Info("Starting validate CMD")

	app, err := bootstrap.FromEnv()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	result := app.Validator.Validate(context.Background(), dataset, c.String("start_date"), c.String("end_date"))
	if err := printJSON(result); err != nil {
		return err
	}
	if result.Error != "" {
		return cli.NewExitError(result.Error, 1)
	}
	return nil
}

func validateAllAction(c *cli.Context) error {
	logrus.WithField("cmd", "validate_all").Info("Starting validate_all CMD")

	app, err := bootstrap.FromEnv()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return printJSON(app.Validator.ValidateAll(context.Background(), c.String("start_date"), c.String("end_date")))
}

func scheduleAction(_ *cli.Context) error {
	logrus.WithField("cmd", "schedule").Info("Starting schedule CMD")

	app, err := bootstrap.FromEnv()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scheduler.NewScheduler(app.Validator, scheduler.GetConfig()).Start(ctx)
}

func resultsAction(c *cli.Context) error {
	app, err := bootstrap.FromEnv()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	if c.Bool("local") {
		local, err := app.Gateway.LoadLocal(c.Int("limit"))
		if err != nil {
			return err
		}
		return printJSON(local)
	}

	rows, err := app.Results.History(context.Background(), c.String("dataset"), c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(rows)
}
