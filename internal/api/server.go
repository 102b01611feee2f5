package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/viniciushammett/go-dataset-prep/internal/dataset"
	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/metrics"
	"github.com/viniciushammett/go-dataset-prep/internal/pipeline"
	"github.com/viniciushammett/go-dataset-prep/internal/store"
)

type Deps struct {
	Log     *logger.Logger
	Service *pipeline.Service
	Store   *store.Store // nil disables /v1/runs
}

type Config struct {
	Addr         string
	CORSOrigins  []string
	MaxBodyBytes int64
}

type Server struct {
	d Deps
	c Config
}

func NewServer(d Deps, c Config) *Server {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 32 << 20
	}
	return &Server{d: d, c: c}
}

// Router builds the handler tree. Dataset routes answer at the root and
// under /api, with or without a trailing slash.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.c.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { metrics.Handler().ServeHTTP(w, r) })
	r.Get("/v1/runs", s.handleRuns)

	dataRoutes := func(dr chi.Router) {
		dr.Post("/split", s.handleSplit)
		dr.Post("/prepare", s.handlePrepare)
		dr.Post("/pipeline", s.handlePipeline)
		dr.Post("/train-local", s.handleTrainLocal)
	}
	dataRoutes(r)
	r.Route("/api", dataRoutes)

	return s.d.Log.HTTP(r)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.c.Addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	s.d.Log.Info().Str("addr", s.c.Addr).Msg("http listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type splitSizes struct {
	Train      int `json:"train_set"`
	Validation int `json:"validation_set"`
	Test       int `json:"test_set"`
}

type splitResponse struct {
	Status       string     `json:"status"`
	OriginalSize int        `json:"original_size"`
	Splits       splitSizes `json:"splits"`
}

type prepareResponse struct {
	Status string `json:"status"`
	pipeline.CleanResult
}

type pipelineResponse struct {
	Status        string      `json:"status"`
	InputShape    [2]int      `json:"input_shape"`
	OutputShape   [2]int      `json:"output_shape"`
	SampleData    [][]float64 `json:"sample_data"`
	PipelineSteps []string    `json:"pipeline_steps"`
}

type trainDetails struct {
	FilesLoaded       int      `json:"files_loaded"`
	FilesSkipped      int      `json:"files_skipped"`
	TrainingSamples   int      `json:"training_samples"`
	FeaturesProcessed int      `json:"features_processed"`
	PipelineSteps     []string `json:"pipeline_steps"`
}

type trainResponse struct {
	Status              string       `json:"status"`
	Message             string       `json:"message"`
	Details             trainDetails `json:"details"`
	SampleProcessedData [][]float64  `json:"sample_processed_data"`
}

type errorResponse struct {
	Status   string `json:"status"`
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Location string `json:"location,omitempty"`
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	b, ok := s.readBatch(w, r)
	if !ok {
		return
	}
	res, err := s.d.Service.Split(r.Context(), b)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, splitResponse{
		Status:       "success",
		OriginalSize: res.OriginalSize,
		Splits:       splitSizes{Train: res.Train, Validation: res.Validation, Test: res.Test},
	})
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	b, ok := s.readBatch(w, r)
	if !ok {
		return
	}
	res, err := s.d.Service.Clean(r.Context(), b)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prepareResponse{Status: "success", CleanResult: res})
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	b, ok := s.readBatch(w, r)
	if !ok {
		return
	}
	res, err := s.d.Service.Preprocess(r.Context(), b)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineResponse{
		Status:        "success",
		InputShape:    res.InputShape,
		OutputShape:   res.OutputShape,
		SampleData:    res.Sample,
		PipelineSteps: res.Steps,
	})
}

// handleTrainLocal ignores the request body; the folder comes from config.
func (s *Server) handleTrainLocal(w http.ResponseWriter, r *http.Request) {
	res, err := s.d.Service.TrainLocal(r.Context(), "")
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trainResponse{
		Status:  "success",
		Message: fmt.Sprintf("Pipeline fitted using %d local files.", res.FilesLoaded),
		Details: trainDetails{
			FilesLoaded:       res.FilesLoaded,
			FilesSkipped:      len(res.Skipped),
			TrainingSamples:   res.TrainingSamples,
			FeaturesProcessed: res.Features,
			PipelineSteps:     res.Steps,
		},
		SampleProcessedData: res.Sample,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.d.Store == nil {
		writeJSON(w, http.StatusOK, []store.Run{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	runs, err := s.d.Store.ListRuns(limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) readBatch(w http.ResponseWriter, r *http.Request) (*dataset.Batch, bool) {
	body, err := dataset.ReadAll(r.Body, s.c.MaxBodyBytes)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	recs, err := dataset.DecodeRecords(body)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return dataset.FromRecords(recs), true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	kind := dataset.KindOf(err)
	writeJSON(w, statusFor(kind), errorResponse{
		Status:   "error",
		Error:    err.Error(),
		Kind:     kind.String(),
		Location: dataset.LocationOf(err),
	})
}

func statusFor(k dataset.ErrorKind) int {
	switch k {
	case dataset.KindNotFound:
		return http.StatusNotFound
	case dataset.KindEmptyInput, dataset.KindMalformedInput, dataset.KindInsufficientData:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
