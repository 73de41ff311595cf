// Package vector implements the similarity index used by memory search and
// the hybrid search blend: one SQLite table per collection, vectors stored
// as little-endian float32 blobs, and brute-force cosine top-k scoring done
// in Go rather than through a native ANN index.
//
// A production sqlite-vec build exposes the same brute-force scan behind a
// virtual table; we compute it directly since the pack carries no native
// vector database and modernc.org/sqlite (pure Go, no cgo) has no vec0
// extension to load. See DESIGN.md for the tradeoff.
package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/cwaproj/cwa/internal/cwaerr"
)

// Collections holding embedded entities.
const (
	CollectionMemories     = "memories"
	CollectionTerms        = "terms"
	CollectionObservations = "observations"
)

var collections = []string{CollectionMemories, CollectionTerms, CollectionObservations}

// Hit is one similarity search result.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]string
}

// Store is the SQLite-backed vector index.
type Store struct {
	db  *sql.DB
	dim int
}

// Open creates or attaches to a SQLite database file at path and ensures the
// per-collection tables exist. dim is the fixed embedding dimensionality for
// the life of the database.
func Open(path string, dim int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "opening vector store", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dim: dim}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, c := range collections {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vec_%s (
			id TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			payload TEXT NOT NULL DEFAULT '{}'
		)`, c)
		if _, err := s.db.Exec(stmt); err != nil {
			return cwaerr.Wrap(cwaerr.Internal, "creating collection table "+c, err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Upsert stores or replaces the vector for id within collection.
func (s *Store) Upsert(ctx context.Context, collection, id string, vec []float32, payload map[string]string) error {
	if len(vec) != s.dim {
		return cwaerr.Newf(cwaerr.InvalidArguments, "embedding has %d dimensions, want %d", len(vec), s.dim)
	}
	payloadJSON := encodePayload(payload)
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO vec_%s (id, embedding, payload) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding, payload = excluded.payload`, collection),
		id, encodeFloat32(vec), payloadJSON)
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "upserting vector", err)
	}
	return nil
}

// Delete removes id from collection, if present.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM vec_%s WHERE id = ?`, collection), id)
	if err != nil {
		return cwaerr.Wrap(cwaerr.Unavailable, "deleting vector", err)
	}
	return nil
}

// Search returns the topK nearest neighbors to query by cosine similarity,
// optionally restricted to ids whose payload[filterKey] == filterValue.
func (s *Store) Search(ctx context.Context, collection string, query []float32, topK int, filterKey, filterValue string) ([]Hit, error) {
	if len(query) != s.dim {
		return nil, cwaerr.Newf(cwaerr.InvalidArguments, "query has %d dimensions, want %d", len(query), s.dim)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, embedding, payload FROM vec_%s`, collection))
	if err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "scanning vectors", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id, payloadJSON string
		var blob []byte
		if err := rows.Scan(&id, &blob, &payloadJSON); err != nil {
			return nil, cwaerr.Wrap(cwaerr.Internal, "reading vector row", err)
		}
		payload := decodePayload(payloadJSON)
		if filterKey != "" && payload[filterKey] != filterValue {
			continue
		}
		vec := decodeFloat32(blob)
		hits = append(hits, Hit{ID: id, Score: cosineSimilarity(query, vec), Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, cwaerr.Wrap(cwaerr.Unavailable, "scanning vectors", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func encodeFloat32(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
