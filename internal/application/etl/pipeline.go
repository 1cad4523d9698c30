package etl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/inventory-cost-etl/internal/domain/entity"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/inventory"
	"github.com/jhoicas/inventory-cost-etl/internal/domain/repository"
	"github.com/jhoicas/inventory-cost-etl/pkg/logger"
)

var tracer = otel.Tracer("inventory-cost-etl/application/etl")

// Config opciones del pipeline.
type Config struct {
	Transform inventory.Options
	// DateOffsetDays fecha de valoración = hoy - N días en Location; 0 desactiva el filtro por fecha.
	DateOffsetDays int
	Location       *time.Location
	// Now reloj inyectable (tests); por defecto time.Now.
	Now func() time.Time
}

// RunResult resumen de una corrida.
type RunResult struct {
	RunID         string
	ValuationDate *time.Time
	Extracted     int
	Filtered      int
	Merged        int
	Skipped       []*inventory.RowError
	Records       []entity.InventoryRecord
	Written       int
	Duration      time.Duration
}

// Pipeline caso de uso Extract → Transform → Load, una vez por invocación y sin solapamiento.
type Pipeline struct {
	extractor Extractor
	txRunner  TxRunner
	cfg       Config
	log       *logger.Logger
}

// NewPipeline construye el caso de uso.
func NewPipeline(extractor Extractor, txRunner TxRunner, cfg Config, log *logger.Logger) *Pipeline {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{extractor: extractor, txRunner: txRunner, cfg: cfg, log: log}
}

// Run ejecuta el pipeline completo. Cualquier error es terminal para la corrida y la tabla
// queda en su estado previo.
func (p *Pipeline) Run(ctx context.Context) (res *RunResult, err error) {
	started := p.cfg.Now()
	res = &RunResult{RunID: uuid.NewString()}
	log := p.log.WithStr("run_id", res.RunID)

	ctx, span := tracer.Start(ctx, "Pipeline.Run", trace.WithAttributes(attribute.String("run_id", res.RunID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline failed")
		}
		span.End()
	}()

	// 1. Verificar la BD antes de tocar el dashboard
	if err := p.txRunner.Ping(ctx); err != nil {
		return res, err
	}

	// 2. Extract
	log.Info().Msg("extrayendo inventario del dashboard")
	rows, err := p.extractor.Extract(ctx)
	if err != nil {
		return res, err
	}
	res.Extracted = len(rows)
	log.Info().Int("rows", len(rows)).Msg("filas extraídas")

	// 3. Transform
	opts := p.cfg.Transform
	if p.cfg.DateOffsetDays > 0 {
		vd := ValuationDate(started, p.cfg.Location, p.cfg.DateOffsetDays)
		opts.ValuationDate = &vd
		res.ValuationDate = &vd
	}
	out, err := inventory.NewTransformer(opts).Transform(rows)
	if err != nil {
		return res, err
	}
	res.Records = out.Records
	res.Skipped = out.Skipped
	res.Filtered = out.Filtered
	res.Merged = out.Merged
	for _, rowErr := range out.Skipped {
		log.Warn().Int("row", rowErr.Index).Str("field", rowErr.Field).Str("value", rowErr.Value).
			Str("reason", rowErr.Reason).Msg("fila descartada")
	}
	log.Info().
		Int("records", len(out.Records)).
		Int("filtered", out.Filtered).
		Int("merged", out.Merged).
		Int("skipped", len(out.Skipped)).
		Msg("filas transformadas")

	if len(out.Records) == 0 {
		log.Warn().Msg("no hay registros para cargar")
		res.Duration = p.cfg.Now().Sub(started)
		return res, nil
	}

	// 4. Load: un solo lote transaccional
	err = p.txRunner.Run(ctx, func(repo repository.InventoryCostRepository) error {
		n, err := repo.UpsertMany(ctx, out.Records)
		res.Written = n
		return err
	})
	if err != nil {
		res.Written = 0
		return res, err
	}
	res.Duration = p.cfg.Now().Sub(started)
	log.Info().Int("written", res.Written).Dur("duration", res.Duration).Msg("lote cargado")
	return res, nil
}

// ValuationDate devuelve el día calendario (medianoche UTC) de now en loc menos offsetDays.
func ValuationDate(now time.Time, loc *time.Location, offsetDays int) time.Time {
	local := now.In(loc).AddDate(0, 0, -offsetDays)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
