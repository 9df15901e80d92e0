package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/lernio/lernio-backend/internal/config"
)

const (
	AnalyticsBatchSize    = 50
	AnalyticsBatchTimeout = 2 * time.Second
	AnalyticsPollTimeout  = 1 * time.Second
)

// AnalyticsWorker consumes persist_analytics_queue and rolls completed
// session results into the per-assessment counters.
type AnalyticsWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewAnalyticsWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AnalyticsWorker {
	return &AnalyticsWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "analytics_worker").Logger(),
	}
}

type analyticsPayload struct {
	AssessmentID string  `json:"assessment_id"`
	ScorePercent float64 `json:"score_percent"`
	Passed       bool    `json:"passed"`
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AnalyticsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnalyticsWorker started")

	batch := make([]*analyticsPayload, 0, AnalyticsBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= AnalyticsBatchSize || time.Since(lastFlush) >= AnalyticsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AnalyticsPollTimeout, config.WorkerKey.PersistAnalyticsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p analyticsPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch update wrapper
// ----------------------------------------------------------------

func (w *AnalyticsWorker) flushSafe(ctx context.Context, batch []*analyticsPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpdateCounters(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk analytics update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAnalyticsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPDATE using UNNEST + alias
// ----------------------------------------------------------------

// bulkUpdateCounters pre-aggregates the batch per assessment first; a
// single UPDATE ... FROM applies at most one joined row per target, so
// duplicate assessment IDs in the UNNEST arrays would silently lose
// increments.
func (w *AnalyticsWorker) bulkUpdateCounters(ctx context.Context, batch []*analyticsPayload) error {
	type rollup struct {
		completed int
		passed    int
		scoreSum  float64
	}

	agg := make(map[uuid.UUID]*rollup, len(batch))
	order := make([]uuid.UUID, 0, len(batch))

	for _, p := range batch {
		aID, err := uuid.Parse(p.AssessmentID)
		if err != nil {
			return err
		}

		r, ok := agg[aID]
		if !ok {
			r = &rollup{}
			agg[aID] = r
			order = append(order, aID)
		}
		r.completed++
		if p.Passed {
			r.passed++
		}
		r.scoreSum += p.ScorePercent
	}

	n := len(order)
	ids := make([]uuid.UUID, 0, n)
	completed := make([]int, 0, n)
	passed := make([]int, 0, n)
	scoreSums := make([]float64, 0, n)

	for _, aID := range order {
		r := agg[aID]
		ids = append(ids, aID)
		completed = append(completed, r.completed)
		passed = append(passed, r.passed)
		scoreSums = append(scoreSums, r.scoreSum)
	}

	query := `
		UPDATE assessments AS a
		SET completed_count = a.completed_count + t.completed,
		    pass_count = a.pass_count + t.passed,
		    score_sum = a.score_sum + t.score_sum
		FROM (
			SELECT
				u.id,
				u.completed,
				u.passed,
				u.score_sum
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::int[],
				$4::float8[]
			) AS u (id, completed, passed, score_sum)
		) AS t
		WHERE a.id = t.id
	`

	_, err := w.pool.Exec(ctx, query, ids, completed, passed, scoreSums)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single update
// ----------------------------------------------------------------

func (w *AnalyticsWorker) persistSingle(ctx context.Context, p *analyticsPayload) error {
	aID, err := uuid.Parse(p.AssessmentID)
	if err != nil {
		return err
	}

	passedInc := 0
	if p.Passed {
		passedInc = 1
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE assessments
		 SET completed_count = completed_count + 1,
		     pass_count = pass_count + $1,
		     score_sum = score_sum + $2
		 WHERE id = $3`,
		passedInc, p.ScorePercent, aID,
	)

	return err
}
