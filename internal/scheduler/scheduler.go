package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/inventory-cost-etl/internal/application/etl"
	"github.com/jhoicas/inventory-cost-etl/pkg/logger"
)

// Job trabajo programable; *etl.Pipeline lo satisface.
type Job interface {
	Run(ctx context.Context) (*etl.RunResult, error)
}

// Scheduler dispara el pipeline según una expresión cron estándar (5 campos o descriptores @every, @daily).
// Una corrida nunca se solapa con la anterior: si sigue en curso, el disparo se omite.
type Scheduler struct {
	cron    *cron.Cron
	expr    string
	job     Job
	timeout time.Duration
	log     *logger.Logger

	ctx context.Context
}

// New valida la expresión y construye el scheduler en la zona horaria indicada.
// timeout acota cada corrida; 0 la deja sin límite propio.
func New(expr string, loc *time.Location, job Job, timeout time.Duration, log *logger.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("expresión cron inválida %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("scheduler")

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, expr: expr, job: job, timeout: timeout, log: log}, nil
}

// Start registra el trabajo y arranca el cron. ctx es el contexto padre de cada corrida.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.expr, s.runOnce); err != nil {
		return fmt.Errorf("programar pipeline: %w", err)
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.expr).Msg("scheduler iniciado")
	return nil
}

// Stop detiene nuevos disparos y espera a que termine la corrida en curso.
func (s *Scheduler) Stop() {
	s.log.Info().Msg("deteniendo scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.job.Run(ctx)
	if err != nil {
		// El error termina solo esta corrida; el siguiente disparo vuelve a intentarlo.
		ev := s.log.Error().Err(err)
		if res != nil {
			ev = ev.Str("run_id", res.RunID)
		}
		ev.Msg("corrida programada fallida")
		return
	}
	s.log.Info().Str("run_id", res.RunID).Int("written", res.Written).Msg("corrida programada completada")
}

// cronLogger adapta el logger del proyecto a cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
