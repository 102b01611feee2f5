package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciushammett/go-dataset-prep/internal/config"
	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/pipeline"
)

type fakeTrainer struct {
	mu       sync.Mutex
	folders  []string
	triggers []string
	err      error
}

func (f *fakeTrainer) TrainLocal(ctx context.Context, folder string) (pipeline.TrainResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, folder)
	f.triggers = append(f.triggers, pipeline.TriggerFrom(ctx))
	return pipeline.TrainResult{Folder: folder, FilesLoaded: 3, TrainingSamples: 2, Features: 4, Steps: []string{"num"}}, f.err
}

func (f *fakeTrainer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.folders)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func TestExecuteNotifies(t *testing.T) {
	tr := &fakeTrainer{}
	n := &fakeNotifier{}
	res, err := Execute(context.Background(), logger.Nop(), "watch", "raw_emails", tr, n)
	require.NoError(t, err)
	assert.Equal(t, 3, res.FilesLoaded)
	assert.Equal(t, []string{"watch"}, tr.triggers)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "files=3")
}

func TestExecuteFailureIsNotified(t *testing.T) {
	tr := &fakeTrainer{err: errors.New("folder missing")}
	n := &fakeNotifier{}
	_, err := Execute(context.Background(), logger.Nop(), "cron", "x", tr, n)
	assert.Error(t, err)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "folder missing")
}

func TestRunInvalidSchedule(t *testing.T) {
	err := Run(context.Background(), logger.Nop(), []config.Job{{Name: "bad", Schedule: "not a cron"}}, &fakeTrainer{}, nil)
	assert.Error(t, err)
}

func TestRunFiresJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &fakeTrainer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, logger.Nop(), []config.Job{{Name: "every", Schedule: "@every 1s", Folder: "raw_emails"}}, tr, nil)
	}()

	require.Eventually(t, func() bool { return tr.calls() > 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "raw_emails", tr.folders[0])
	assert.Equal(t, "cron", tr.triggers[0])
}
