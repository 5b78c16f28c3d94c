package retrain

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"material-service/internal/extract"
)

// Job - обучение извлекателя на накопленной обратной связи:
// новый извлекатель сохраняется на диск, публикуется, журнал очищается.
type Job struct {
	store   *FeedbackStore
	manager *extract.Manager
	path    string
	logger  zerolog.Logger
}

func NewJob(store *FeedbackStore, manager *extract.Manager, path string, logger zerolog.Logger) *Job {
	return &Job{store: store, manager: manager, path: path, logger: logger}
}

func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	pending, n, err := j.store.Pending()
	if err != nil {
		return err
	}
	if n == 0 {
		j.logger.Info().Msg("retrain: no feedback")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	examples := make([]extract.Example, 0, len(pending))
	for _, fb := range pending {
		examples = append(examples, fb.Example())
	}
	next := j.manager.Current().Train(examples)
	if j.path != "" {
		if err := next.Save(j.path); err != nil {
			return err
		}
	}
	j.manager.Publish(next)
	if err := j.store.Consume(n); err != nil {
		return err
	}

	j.logger.Info().
		Int("examples", len(examples)).
		Int("version", next.Version).
		Dur("elapsed", time.Since(start)).
		Msg("extractor retrained")
	return nil
}
