package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/viniciushammett/go-dataset-prep/internal/config"
	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/notify"
	"github.com/viniciushammett/go-dataset-prep/internal/pipeline"
)

type Trainer interface {
	TrainLocal(ctx context.Context, folder string) (pipeline.TrainResult, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Run registers one cron entry per job and blocks until ctx is done. An
// invalid schedule aborts before anything starts.
func Run(ctx context.Context, log *logger.Logger, jobs []config.Job, t Trainer, n Notifier) error {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	for _, job := range jobs {
		j := job // capture
		_, err := c.AddFunc(j.Schedule, func() {
			log.Info().Str("job", j.Name).Str("folder", j.Folder).Msg("running scheduled train-local")
			Execute(ctx, log, "cron", j.Folder, t, n)
		})
		if err != nil {
			return fmt.Errorf("job %q: %w", j.Name, err)
		}
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop() // waits for running jobs
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("scheduled jobs still running at shutdown")
	}
	return nil
}

// Execute runs one TrainLocal tagged with trigger and sends its summary.
func Execute(ctx context.Context, log *logger.Logger, trigger, folder string, t Trainer, n Notifier) (pipeline.TrainResult, error) {
	res, err := t.TrainLocal(pipeline.WithTrigger(ctx, trigger), folder)
	if err != nil {
		log.Error().Err(err).Str("trigger", trigger).Str("folder", folder).Msg("train-local failed")
	}
	if n != nil {
		msg := notify.Format(trigger, res.Folder, res.FilesLoaded, len(res.Skipped), res.TrainingSamples, res.Features, res.Steps, err)
		if nerr := n.Send(ctx, msg); nerr != nil {
			log.Warn().Err(nerr).Msg("notification failed")
		}
	}
	return res, err
}
