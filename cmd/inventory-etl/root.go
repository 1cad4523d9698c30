package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jhoicas/inventory-cost-etl/internal/application/etl"
	"github.com/jhoicas/inventory-cost-etl/internal/domain"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/inventory"
	"github.com/jhoicas/inventory-cost-etl/internal/infrastructure/markov"
	"github.com/jhoicas/inventory-cost-etl/internal/infrastructure/postgres"
	"github.com/jhoicas/inventory-cost-etl/internal/scheduler"
	"github.com/jhoicas/inventory-cost-etl/pkg/config"
	"github.com/jhoicas/inventory-cost-etl/pkg/logger"
)

// Códigos de salida por categoría de error.
const (
	exitOK             = 0
	exitOther          = 1
	exitAuthentication = 2
	exitRetrieval      = 3
	exitTransform      = 4
	exitConnection     = 5
	exitConstraint     = 6
)

type options struct {
	envFile  string
	schedule string
	summary  bool
}

func execute(ctx context.Context, args []string) int {
	var opts options
	cmd := &cobra.Command{
		Use:           "inventory-etl",
		Short:         "Carga el costo de inventario del dashboard Mar-Kov en PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "archivo .env a cargar antes de leer el entorno")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "expresión cron; sin ella se ejecuta una sola vez (default ETL_SCHEDULE)")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "imprime los totales por área del lote cargado")
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	return exitOK
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando ETL")

	loc, err := cfg.ETL.Location()
	if err != nil {
		return err
	}
	policy, err := inventory.ParseRowPolicy(cfg.ETL.RowPolicy)
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		return err
	}
	defer pool.Close()

	if cfg.ETL.EnsureSchema {
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		log.Info().Msg("esquema inventory_cost verificado")
	}

	extractor := markov.NewClient(markov.Config{
		BaseURL:     cfg.Markov.BaseURL,
		ReturnURL:   cfg.Markov.ReturnURL,
		Company:     cfg.Markov.Company,
		Email:       cfg.Markov.Email,
		Password:    cfg.Markov.Password,
		DashboardID: cfg.Markov.DashboardID,
		ItemID:      cfg.Markov.ItemID,
		Timeout:     cfg.Markov.Timeout,
	}, log.Named("extractor"))
	txRunner := postgres.NewTxRunner(pool, cfg.DB.ConnectTimeout)

	pipeline := etl.NewPipeline(extractor, txRunner, etl.Config{
		Transform: inventory.Options{
			Fields:       inventory.DefaultFieldMap(),
			OwnerMap:     cfg.Markov.OwnerMap,
			AllowedAreas: cfg.Markov.AllowedOwners,
			Policy:       policy,
		},
		DateOffsetDays: cfg.ETL.DateOffsetDays,
		Location:       loc,
	}, log.Named("pipeline"))

	schedule := opts.schedule
	if schedule == "" {
		schedule = cfg.ETL.Schedule
	}
	if schedule == "" {
		res, err := pipeline.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("corrida fallida")
			return err
		}
		if opts.summary {
			printSummary(out, res)
		}
		return nil
	}

	var job scheduler.Job = pipeline
	if opts.summary {
		job = summaryJob{next: pipeline, out: out}
	}
	s, err := scheduler.New(schedule, loc, job, 30*time.Minute, log)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	log.Info().Msg("ETL detenido")
	return nil
}

// summaryJob imprime la tabla de totales tras cada corrida programada exitosa.
type summaryJob struct {
	next scheduler.Job
	out  io.Writer
}

func (j summaryJob) Run(ctx context.Context) (*etl.RunResult, error) {
	res, err := j.next.Run(ctx)
	if err == nil {
		printSummary(j.out, res)
	}
	return res, err
}

func printSummary(out io.Writer, res *etl.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Área", "Registros", "Cantidad", "Valor"})
	var records int
	for _, a := range etl.SummarizeByArea(res.Records) {
		t.AppendRow(table.Row{a.Area, a.Records, a.Qty.String(), a.Value.StringFixed(inventory.MoneyPlaces)})
		records += a.Records
	}
	t.AppendFooter(table.Row{"Total", records, "", fmt.Sprintf("escritos: %d", res.Written)})
	if res.ValuationDate != nil {
		t.SetCaption("fecha de valoración %s · run %s", res.ValuationDate.Format("2006-01-02"), res.RunID)
	} else {
		t.SetCaption("run %s", res.RunID)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// exitCode traduce la categoría del error al código de salida del proceso.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrAuthentication):
		return exitAuthentication
	case errors.Is(err, domain.ErrRetrieval):
		return exitRetrieval
	case errors.Is(err, domain.ErrTransform):
		return exitTransform
	case errors.Is(err, domain.ErrConnection):
		return exitConnection
	case errors.Is(err, domain.ErrConstraint):
		return exitConstraint
	default:
		return exitOther
	}
}
