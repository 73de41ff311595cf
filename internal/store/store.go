// Package store implements the primary KV + pub/sub store: a Redis-backed
// repository of hashes (one per entity), sorted sets for creation order and
// kanban-column position, and a single pub/sub channel carrying change
// events to subscribers such as the websocket broadcaster.
//
// Every entity is keyed cwa:<project>:<kind>:<id>, with cwa:<project>:<kind>:all
// a sorted set ordering ids by creation time. Writes go through Save, which
// enforces optimistic concurrency via a per-entity "version" field: callers
// read an entity, mutate it, and pass the version they read back in; Save
// fails with cwaerr.Conflict if the stored version has since moved.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cwaproj/cwa/internal/cwaerr"
	"github.com/cwaproj/cwa/internal/domain"
)

// Store is the primary KV + pub/sub repository for one project namespace.
type Store struct {
	rdb     *redis.Client
	project string
}

// defaultPoolSize is 2 × the expected parallel operations, floor 4.
const defaultPoolSize = 8

// New connects to the Redis URL and returns a Store scoped to project.
func New(url, project string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing primary store url: %w", err)
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = defaultPoolSize
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "connecting to primary store", err)
	}
	return &Store{rdb: client, project: project}, nil
}

// NewWithClient wraps an already-constructed client (e.g. one pointed at a
// miniredis instance in tests) in a Store scoped to project.
func NewWithClient(rdb *redis.Client, project string) *Store {
	return &Store{rdb: rdb, project: project}
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.rdb.Close() }

// ProjectID returns the project namespace this store is scoped to.
func (s *Store) ProjectID() string { return s.project }

func (s *Store) key(kind, id string) string { return fmt.Sprintf("cwa:%s:%s:%s", s.project, kind, id) }
func (s *Store) allKey(kind string) string { return fmt.Sprintf("cwa:%s:%s:all", s.project, kind) }
func (s *Store) eventsKey() string { return fmt.Sprintf("cwa:%s:events", s.project) }
func (s *Store) byStatusKey(status string) string {
	return fmt.Sprintf("cwa:%s:tasks:by_status:%s", s.project, status)
}
func (s *Store) pendingEmbeddingsKey() string {
	return fmt.Sprintf("cwa:%s:pending:embeddings", s.project)
}
func (s *Store) kanbanWipKey() string { return fmt.Sprintf("cwa:%s:kanban:wip", s.project) }

// Entity is anything storable: it carries its own id and optimistic version.
type Entity interface {
	GetID() string
	GetVersion() int64
	SetVersion(int64)
}

// Get loads one entity by kind and id into dst (a pointer), returning
// cwaerr.NotFound if it doesn't exist.
func (s *Store) Get(ctx context.Context, kind, id string, dst any) error {
	data, err := s.rdb.HGet(ctx, s.key(kind, id), "data").Result()
	if err == redis.Nil {
		return cwaerr.Newf(cwaerr.NotFound, "%s %q not found", kind, id)
	}
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "reading "+kind, err)
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return cwaerr.Wrap(cwaerr.Internal, "decoding "+kind, err)
	}
	return nil
}

// Save writes an entity, enforcing optimistic concurrency: expectedVersion
// must match the version currently stored (0 for a brand-new entity).
// On success the entity's version is bumped and an event is published.
func (s *Store) Save(ctx context.Context, kind string, e Entity, expectedVersion int64, eventType string) error {
	key := s.key(kind, e.GetID())

	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, "version").Result()
		if err != nil && err != redis.Nil {
			return err
		}
		var curVersion int64
		if cur != "" {
			fmt.Sscanf(cur, "%d", &curVersion)
		}
		if curVersion != expectedVersion {
			return cwaerr.Newf(cwaerr.Conflict, "%s %q was modified concurrently (have %d, expected %d)",
				kind, e.GetID(), curVersion, expectedVersion)
		}

		e.SetVersion(expectedVersion + 1)
		data, err := json.Marshal(e)
		if err != nil {
			return cwaerr.Wrap(cwaerr.Internal, "encoding "+kind, err)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "data", data, "version", e.GetVersion())
			if expectedVersion == 0 {
				// The *:all index is scored by creation time; updates must
				// not move an entity out of creation order.
				p.ZAdd(ctx, s.allKey(kind), redis.Z{Score: float64(time.Now().UnixNano()), Member: e.GetID()})
			}
			return nil
		})
		return err
	}

	txErr := s.rdb.Watch(ctx, txf, key)
	if txErr != nil {
		if _, ok := cwaerr.As(txErr); ok {
			return txErr
		}
		return cwaerr.Wrap(cwaerr.Unavailable, "saving "+kind, txErr)
	}

	// Publishing is best-effort once the write has committed: a dropped
	// event means derived consumers fall behind until the next sync pass,
	// not that the save failed.
	_ = s.Publish(ctx, eventType, map[string]any{"kind": kind, "id": e.GetID()})
	return nil
}

// Delete removes an entity and its index entries.
func (s *Store) Delete(ctx context.Context, kind, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key(kind, id))
	pipe.ZRem(ctx, s.allKey(kind), id)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "deleting "+kind, err)
	}
	return nil
}

// ListIDs returns ids of kind in creation order, bounded by offset/limit.
func (s *Store) ListIDs(ctx context.Context, kind string, offset, limit int64) ([]string, error) {
	ids, err := s.rdb.ZRange(ctx, s.allKey(kind), offset, offset+limit-1).Result()
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "listing "+kind, err)
	}
	return ids, nil
}

// SetTaskPosition places a task id in the by-status sorted set for status at
// the given sparse position (see internal/kanban for position allocation).
func (s *Store) SetTaskPosition(ctx context.Context, status, taskID string, position int64) error {
	return s.rdb.ZAdd(ctx, s.byStatusKey(status), redis.Z{Score: float64(position), Member: taskID}).Err()
}

// RemoveTaskPosition removes a task id from a column's position index.
func (s *Store) RemoveTaskPosition(ctx context.Context, status, taskID string) error {
	return s.rdb.ZRem(ctx, s.byStatusKey(status), taskID).Err()
}

// TaskIDsByStatus returns task ids in a column ordered by position.
func (s *Store) TaskIDsByStatus(ctx context.Context, status string) ([]string, error) {
	ids, err := s.rdb.ZRange(ctx, s.byStatusKey(status), 0, -1).Result()
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "listing column "+status, err)
	}
	return ids, nil
}

// ColumnCount returns how many cards currently sit in a column.
func (s *Store) ColumnCount(ctx context.Context, status string) (int64, error) {
	n, err := s.rdb.ZCard(ctx, s.byStatusKey(status)).Result()
	if err != nil {
		return 0, cwaerr.Wrap(cwaerr.Unavailable, "counting column "+status, err)
	}
	return n, nil
}

// MaxTaskPosition returns the highest position currently used in a column,
// or 0 if the column is empty.
func (s *Store) MaxTaskPosition(ctx context.Context, status string) (int64, error) {
	res, err := s.rdb.ZRevRangeWithScores(ctx, s.byStatusKey(status), 0, 0).Result()
	if err != nil {
		return 0, cwaerr.Wrap(cwaerr.Unavailable, "reading column "+status, err)
	}
	if len(res) == 0 {
		return 0, nil
	}
	return int64(res[0].Score), nil
}

// SetWipLimit writes one column's WIP limit into the kanban:wip hash, so a
// configured limit survives process restarts. 0 is stored as-is and means
// unlimited.
func (s *Store) SetWipLimit(ctx context.Context, column string, limit int) error {
	if err := s.rdb.HSet(ctx, s.kanbanWipKey(), column, limit).Err(); err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "saving wip limit", err)
	}
	return nil
}

// WipLimits returns every column limit stored in the kanban:wip hash.
// Columns never configured are absent from the result.
func (s *Store) WipLimits(ctx context.Context) (map[string]int, error) {
	fields, err := s.rdb.HGetAll(ctx, s.kanbanWipKey()).Result()
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "reading wip limits", err)
	}
	out := make(map[string]int, len(fields))
	for column, raw := range fields {
		var limit int
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
			continue
		}
		out[column] = limit
	}
	return out, nil
}

// AddPendingEmbedding enqueues collection:id into the pending-embeddings set
// for a later background backfill pass, used when an embedding write fails
// or no embedding client is configured.
func (s *Store) AddPendingEmbedding(ctx context.Context, collection, id string) error {
	err := s.rdb.SAdd(ctx, s.pendingEmbeddingsKey(), collection+":"+id).Err()
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "enqueueing pending embedding", err)
	}
	return nil
}

// PendingEmbeddings returns every "collection:id" entry awaiting backfill.
func (s *Store) PendingEmbeddings(ctx context.Context) ([]string, error) {
	items, err := s.rdb.SMembers(ctx, s.pendingEmbeddingsKey()).Result()
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "listing pending embeddings", err)
	}
	return items, nil
}

// RemovePendingEmbedding clears an entry once its embedding has been backfilled.
func (s *Store) RemovePendingEmbedding(ctx context.Context, collection, id string) error {
	err := s.rdb.SRem(ctx, s.pendingEmbeddingsKey(), collection+":"+id).Err()
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "clearing pending embedding", err)
	}
	return nil
}

// Publish sends a typed event on the project's pub/sub channel.
func (s *Store) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	evt := domain.Event{Type: eventType, ProjectID: s.project, Payload: payload}
	data, err := json.Marshal(evt)
	if err != nil {
		return cwaerr.Wrap(cwaerr.Internal, "encoding event", err)
	}
	if err := s.rdb.Publish(ctx, s.eventsKey(), data).Err(); err != nil {
		return cwaerr.Wrap(cwaerr.Degraded, "publishing event", err)
	}
	return nil
}

// Subscribe streams decoded events from the project's pub/sub channel until
// ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	out := make(chan domain.Event)
	pubsub := s.rdb.Subscribe(ctx, s.eventsKey())
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "subscribing to events", err)
	}

	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
					select {
					case out <- evt:
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
