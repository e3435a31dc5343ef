package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "automl:job:"

// RedisStore keeps jobs in Redis as JSON values with a TTL, for deployments
// where several API replicas share one job registry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis using a URL (redis://host:port/db).
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) key(jobID string) string {
	return redisKeyPrefix + jobID
}

func (s *RedisStore) put(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.key(job.JobID), data, s.ttl).Err()
}

// Create stores a new job.
func (s *RedisStore) Create(job *Job) error { return s.put(job) }

// Update replaces a job's stored state.
func (s *RedisStore) Update(job *Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := s.client.Exists(ctx, s.key(job.JobID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrJobNotFound
	}
	return s.put(job)
}

// Get loads one job by id.
func (s *RedisStore) Get(jobID string) (*Job, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := s.client.Get(ctx, s.key(jobID)).Result()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	job := &Job{}
	if err := json.Unmarshal([]byte(data), job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return job, nil
}

// List returns all stored jobs, newest first.
func (s *RedisStore) List() ([]*Job, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	keys, err := s.client.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}
	var out []*Job
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		job := &Job{}
		if err := json.Unmarshal([]byte(data), job); err != nil {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

// Delete removes a job.
func (s *RedisStore) Delete(jobID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Del(ctx, s.key(jobID)).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
