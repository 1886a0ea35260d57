package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"vibecheck-service/internal/domain"
	"vibecheck-service/internal/logger"
)

// versionTTL outlives any single load; an expired version reads as 0 again.
const versionTTL = 24 * time.Hour

var errStaleLoad = errors.New("quiz invalidated during load")

// QuizLoader fetches the quiz graph from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches whole quiz graphs in Redis and falls back to a loader on cache miss.
// Graphs are stored as JSON: SET quiz:{quizID}:graph {json} EX ttl
// Invalidate bumps quiz:{quizID}:version; a load only writes the graph back when the version it
// read before loading is still current, checked under WATCH.
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	log    *logger.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration, log *logger.Logger) *QuizRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log.With("component", "redis_quiz_cache"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		version, versionErr := r.version(ctx, quizID)
		if versionErr != nil {
			r.log.Warn("quiz cache version read failed", "quiz_id", quizID, "error", versionErr)
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		// Without a version the load cannot be fenced, so it is served uncached.
		if versionErr == nil {
			r.store(ctx, quizID, quiz, version)
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// store writes the graph unless an invalidation ran since version was read.
func (r *QuizRepository) store(ctx context.Context, quizID string, quiz domain.Quiz, version int64) {
	payload, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(quizID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, graphKey(quizID), payload, r.ttlWithJitter())
			return nil
		})
		return err
	}, versionKey(quizID))
	switch {
	case err == nil:
	case errors.Is(err, errStaleLoad), errors.Is(err, redis.TxFailedErr):
		r.log.Debug("skipping cache write for invalidated quiz", "quiz_id", quizID)
	default:
		r.log.Warn("failed to cache quiz", "quiz_id", quizID, "error", err)
	}
}

// Invalidate drops a cached graph after an edit or delete and fences off loads already in flight.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	r.sf.Forget(quizID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(quizID))
		pipe.Expire(ctx, versionKey(quizID), versionTTL)
		pipe.Del(ctx, graphKey(quizID))
		return nil
	})
	return err
}

func (r *QuizRepository) version(ctx context.Context, quizID string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(quizID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	payload, err := r.client.Get(ctx, graphKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("quiz cache read failed", "quiz_id", quizID, "error", err)
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		r.log.Warn("dropping corrupt cached quiz", "quiz_id", quizID, "error", err)
		_ = r.client.Del(ctx, graphKey(quizID)).Err()
		return domain.Quiz{}, false
	}
	return quiz, true
}

func graphKey(quizID string) string {
	return "quiz:" + quizID + ":graph"
}

func versionKey(quizID string) string {
	return "quiz:" + quizID + ":version"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
