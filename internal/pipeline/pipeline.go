package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/viniciushammett/go-dataset-prep/internal/dataset"
	"github.com/viniciushammett/go-dataset-prep/internal/loader"
	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/metrics"
	"github.com/viniciushammett/go-dataset-prep/internal/prep"
	"github.com/viniciushammett/go-dataset-prep/internal/split"
	"github.com/viniciushammett/go-dataset-prep/internal/store"
	"github.com/viniciushammett/go-dataset-prep/internal/tracing"
)

const (
	OpSplit      = "split"
	OpPrepare    = "prepare"
	OpPipeline   = "pipeline"
	OpTrainLocal = "train-local"
)

// Recorder persists run summaries; *store.Store satisfies it.
type Recorder interface {
	PutRun(r store.Run) (store.Run, error)
}

type Deps struct {
	Log      *logger.Logger
	Loader   *loader.Loader
	Recorder Recorder // optional
}

type Config struct {
	Split       split.Options
	LabelColumn string
	SampleRows  int
	Folder      string // default TrainLocal folder
}

// Service composes loader, partitioner, cleaner and preprocessor. It keeps
// no state between calls: every operation fits its own preprocessor.
type Service struct {
	log      *logger.Logger
	loader   *loader.Loader
	recorder Recorder
	cfg      Config
}

func New(d Deps, c Config) *Service {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if c.SampleRows < 0 {
		c.SampleRows = 0
	}
	return &Service{log: d.Log, loader: d.Loader, recorder: d.Recorder, cfg: c}
}

func (s *Service) Config() Config { return s.cfg }

type SplitResult struct {
	OriginalSize int
	Train        int
	Validation   int
	Test         int
	Stratified   bool
}

type CleanResult = prep.CleanReport

type PreprocessResult struct {
	InputShape  [2]int
	OutputShape [2]int
	Sample      [][]float64
	Steps       []string
	Features    []string
}

type TrainResult struct {
	Folder          string
	FilesLoaded     int
	Skipped         []string
	TrainingSamples int
	Features        int
	Steps           []string
	Sample          [][]float64
	Matrix          *prep.Matrix `json:"-"`
}

func (s *Service) Split(ctx context.Context, b *dataset.Batch) (res SplitResult, err error) {
	ctx, span, done := s.begin(ctx, OpSplit)
	defer func() { done(err, res.OriginalSize, 0) }()

	if b == nil || b.Len() == 0 {
		return res, dataset.Errorf(dataset.KindEmptyInput, OpSplit, "no records to split")
	}
	a, err := split.New(s.cfg.Split).Split(b)
	if err != nil {
		return res, err
	}
	train, val, test := a.Sizes()
	res = SplitResult{OriginalSize: b.Len(), Train: train, Validation: val, Test: test, Stratified: a.Stratified}
	metrics.Rows.WithLabelValues(OpSplit, "input").Add(float64(b.Len()))
	span.SetAttributes(
		attribute.Int("split.train", train),
		attribute.Int("split.validation", val),
		attribute.Int("split.test", test),
		attribute.Bool("split.stratified", a.Stratified),
	)
	return res, nil
}

func (s *Service) Clean(ctx context.Context, b *dataset.Batch) (res CleanResult, err error) {
	_, span, done := s.begin(ctx, OpPrepare)
	defer func() { done(err, res.RowsBefore, 0) }()

	if b == nil || b.Len() == 0 {
		return res, dataset.Errorf(dataset.KindEmptyInput, OpPrepare, "no records to clean")
	}
	_, res = prep.Clean(b)
	metrics.Rows.WithLabelValues(OpPrepare, "input").Add(float64(res.RowsBefore))
	metrics.Rows.WithLabelValues(OpPrepare, "dropped").Add(float64(res.Dropped))
	span.SetAttributes(attribute.Int("rows.dropped", res.Dropped))
	return res, nil
}

// Preprocess drops the label column and fits a fresh preprocessor on the
// remaining columns.
func (s *Service) Preprocess(ctx context.Context, b *dataset.Batch) (res PreprocessResult, err error) {
	_, span, done := s.begin(ctx, OpPipeline)
	defer func() { done(err, res.InputShape[0], res.OutputShape[1]) }()

	if b == nil || b.Len() == 0 {
		return res, dataset.Errorf(dataset.KindEmptyInput, OpPipeline, "no records to preprocess")
	}
	x := b.Drop(s.cfg.LabelColumn)
	p := prep.NewPreprocessor()
	m, err := p.FitTransform(x)
	if err != nil {
		return res, err
	}
	res = PreprocessResult{
		InputShape:  x.Shape(),
		OutputShape: m.Shape(),
		Sample:      m.Head(s.cfg.SampleRows),
		Steps:       p.Plan().Steps(),
		Features:    m.FeatureNames(),
	}
	metrics.Rows.WithLabelValues(OpPipeline, "input").Add(float64(b.Len()))
	metrics.OutputFeatures.WithLabelValues(OpPipeline).Set(float64(res.OutputShape[1]))
	span.SetAttributes(attribute.Int("features", res.OutputShape[1]))
	return res, nil
}

// TrainLocal runs load, split (train rows only), label drop, clean and
// fit_transform over a folder under the data directory. An empty folder
// name uses the configured one.
func (s *Service) TrainLocal(ctx context.Context, folder string) (res TrainResult, err error) {
	ctx, span, done := s.begin(ctx, OpTrainLocal)
	defer func() { done(err, res.TrainingSamples, res.Features) }()

	if s.loader == nil {
		return res, dataset.Errorf(dataset.KindInternal, OpTrainLocal, "no loader configured")
	}
	if folder == "" {
		folder = s.cfg.Folder
	}
	res.Folder = folder
	span.SetAttributes(attribute.String("folder", folder))

	b, lr, err := s.loader.Load(ctx, folder)
	res.FilesLoaded, res.Skipped = lr.Loaded, lr.Skipped
	if err != nil {
		return res, err
	}
	metrics.Rows.WithLabelValues(OpTrainLocal, "loaded").Add(float64(b.Len()))

	a, err := split.New(s.cfg.Split).Split(b)
	if err != nil {
		return res, err
	}
	train := b.Select(a.Train).Drop(s.cfg.LabelColumn)
	clean, rep := prep.Clean(train)
	metrics.Rows.WithLabelValues(OpTrainLocal, "dropped").Add(float64(rep.Dropped))
	if clean.Len() == 0 {
		return res, dataset.Errorf(dataset.KindEmptyInput, OpTrainLocal, "every training row has a null field")
	}

	p := prep.NewPreprocessor()
	m, err := p.FitTransform(clean)
	if err != nil {
		return res, err
	}
	res.TrainingSamples = clean.Len()
	res.Features = m.Shape()[1]
	res.Steps = p.Plan().Steps()
	res.Sample = m.Head(s.cfg.SampleRows)
	res.Matrix = m
	metrics.OutputFeatures.WithLabelValues(OpTrainLocal).Set(float64(res.Features))
	s.log.Info().Str("folder", folder).Int("files", res.FilesLoaded).Int("samples", res.TrainingSamples).
		Int("features", res.Features).Msg("pipeline fitted")
	return res, nil
}

// begin opens the span of op and returns the function that closes it,
// observes metrics and records the run summary.
func (s *Service) begin(ctx context.Context, op string) (context.Context, trace.Span, func(error, int, int)) {
	ctx, span := tracing.Tracer().Start(ctx, "dataprep."+op)
	start := time.Now()
	return ctx, span, func(err error, rows, features int) {
		elapsed := time.Since(start)
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Warn().Err(err).Str("op", op).Str("kind", dataset.KindOf(err).String()).Msg("operation failed")
		}
		span.End()
		metrics.Requests.WithLabelValues(op, status).Inc()
		metrics.OpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
		s.record(ctx, store.Run{
			Op:         op,
			Trigger:    TriggerFrom(ctx),
			Status:     status,
			Rows:       rows,
			Features:   features,
			Error:      errString(err),
			DurationMs: elapsed.Milliseconds(),
		})
	}
}

func (s *Service) record(ctx context.Context, r store.Run) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.PutRun(r); err != nil {
		s.log.Error().Err(err).Str("op", r.Op).Msg("run history write failed")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
