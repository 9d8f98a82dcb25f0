package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/haulmart-backend/pkg/enums"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
	"github.com/angelmondragon/haulmart-backend/pkg/metrics"
)

const (
	outboxRetentionName     = "outbox-retention"
	outboxRetentionDays     = 30
	outboxRetentionInterval = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqCounter interface {
	CountByReason(ctx context.Context) (map[enums.OutboxDLQErrorReason]int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// DLQ is optional; when set each run also reports the dead-letter backlog.
	DLQ        dlqCounter
	Metrics    *metrics.JobMetrics
	Retention  int
	Interval   time.Duration
}

// NewOutboxRetentionJob prunes outbox rows that were published long ago.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	interval := params.Interval
	if interval <= 0 {
		interval = outboxRetentionInterval
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		dlq:       params.DLQ,
		metrics:   params.Metrics,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxRetentionRepo
	dlq       dlqCounter
	metrics   *metrics.JobMetrics
	retention int
	interval  time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string            { return outboxRetentionName }
func (j *outboxRetentionJob) Interval() time.Duration { return j.interval }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.metrics.AddItems(outboxRetentionName, "deleted", int(deleted))
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	j.reportBacklog(ctx)
	return nil
}

// reportBacklog never fails the run; pruning already committed.
func (j *outboxRetentionJob) reportBacklog(ctx context.Context) {
	if j.dlq == nil {
		return
	}
	counts, err := j.dlq.CountByReason(ctx)
	if err != nil {
		j.logg.Error(ctx, "count outbox dlq backlog", err)
		return
	}
	fields := make(map[string]any, len(counts))
	var total int64
	for reason, n := range counts {
		fields["dlq_"+string(reason)] = n
		total += n
	}
	j.metrics.AddItems(outboxRetentionName, "dead_lettered", int(total))
	if total == 0 {
		return
	}
	j.logg.Warn(j.logg.WithFields(ctx, fields), "outbox dead-letter backlog")
}
