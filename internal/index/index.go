// Package index builds an in-memory full-text index over transcript
// segments. Matching is done by SQLite FTS5; ranking is a field-weighted
// BM25 computed from term statistics gathered while building.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/podquote/internal/corpus"
	"github.com/kalambet/podquote/internal/transcript"
)

// ErrSyntax is returned by Query when the engine rejects the expression.
var ErrSyntax = errors.New("malformed search expression")

// maxCandidates bounds how many FTS5 matches are rescored per limited query.
const maxCandidates = 2000

// Hit is a scored match for one segment.
type Hit struct {
	Document     Document
	Score        float64
	MatchedTerms []string
}

// Index is built once and is read-only afterwards; it is safe for
// concurrent queries.
type Index struct {
	db       *sql.DB
	episodes []corpus.Episode
	byFolder map[string]int
	byGuest  map[string]string
	stats    *stats
	segments int
}

// Build indexes every segment of every episode. Episodes sharing a folder
// name after the first are ignored.
func Build(ctx context.Context, episodes []corpus.Episode) (*Index, error) {
	start := time.Now()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, `CREATE VIRTUAL TABLE segments_fts USING fts5(
		text, speaker, guest, title, doc_id UNINDEXED,
		tokenize = 'unicode61 remove_diacritics 0'
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating FTS table: %w", err)
	}

	ix := &Index{
		db:       db,
		episodes: make([]corpus.Episode, 0, len(episodes)),
		byFolder: make(map[string]int, len(episodes)),
		byGuest:  make(map[string]string, len(episodes)),
		stats:    newStats(),
	}

	if err := ix.insertAll(ctx, episodes); err != nil {
		db.Close()
		return nil, err
	}
	ix.stats.finish()

	slog.Info("index built",
		"episodes", len(ix.episodes),
		"segments", ix.segments,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ix, nil
}

func (ix *Index) insertAll(ctx context.Context, episodes []corpus.Episode) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments_fts (text, speaker, guest, title, doc_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ep := range episodes {
		if _, dup := ix.byFolder[ep.FolderName]; dup {
			slog.Warn("duplicate episode folder ignored", "folder", ep.FolderName)
			continue
		}
		ix.byFolder[ep.FolderName] = len(ix.episodes)
		ix.episodes = append(ix.episodes, ep)
		ix.byGuest[NormalizeGuest(ep.Guest)] = ep.FolderName

		for pos, seg := range ep.Segments {
			doc := documentFor(ep, pos, seg)
			if _, err := stmt.ExecContext(ctx, doc.Text, doc.Speaker, doc.Guest, doc.Title, doc.ID()); err != nil {
				return fmt.Errorf("indexing %s: %w", doc.ID(), err)
			}
			ix.stats.add(doc)
			ix.segments++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

func documentFor(ep corpus.Episode, pos int, seg transcript.Segment) Document {
	return Document{
		FolderName: ep.FolderName,
		Position:   pos,
		Text:       seg.Text,
		Speaker:    seg.Speaker,
		Guest:      ep.Guest,
		Title:      ep.Title,
	}
}

// Close releases the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Query runs an FTS5 MATCH expression and returns up to limit hits, best
// first. A limited query rescores at most maxCandidates matches; a limit <= 0
// rescores and returns every match. An empty expression matches nothing.
func (ix *Index) Query(ctx context.Context, expr string, limit int) ([]Hit, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	// SQLite treats a negative LIMIT as no limit.
	candidates := maxCandidates
	if limit <= 0 {
		candidates = -1
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT doc_id FROM segments_fts
		WHERE segments_fts MATCH ?
		ORDER BY bm25(segments_fts, ?, ?, ?, ?)
		LIMIT ?`,
		expr,
		fieldWeights[FieldText], fieldWeights[FieldSpeaker], fieldWeights[FieldGuest], fieldWeights[FieldTitle],
		candidates,
	)
	if err != nil {
		return nil, ix.queryError(ctx, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ix.queryError(ctx, err)
	}

	terms := extractTerms(expr)
	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		doc, ok := ix.Document(id)
		if !ok {
			continue
		}
		score, matched := ix.stats.score(doc, terms)
		hits = append(hits, Hit{Document: doc, Score: score, MatchedTerms: matched})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// queryError separates rejected expressions from other failures.
func (ix *Index) queryError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"fts5", "syntax error", "no such column", "unterminated string", "malformed match"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrSyntax, err)
		}
	}
	return fmt.Errorf("querying index: %w", err)
}

// Document reconstructs an indexed segment from its identifier.
func (ix *Index) Document(id string) (Document, bool) {
	folder, pos, err := ParseDocumentID(id)
	if err != nil {
		return Document{}, false
	}
	ep, ok := ix.Episode(folder)
	if !ok || pos >= len(ep.Segments) {
		return Document{}, false
	}
	return documentFor(*ep, pos, ep.Segments[pos]), true
}

// Episode returns the episode stored under folder.
func (ix *Index) Episode(folder string) (*corpus.Episode, bool) {
	i, ok := ix.byFolder[folder]
	if !ok {
		return nil, false
	}
	return &ix.episodes[i], true
}

// Episodes returns all indexed episodes in load order. Callers must not
// modify them.
func (ix *Index) Episodes() []corpus.Episode {
	return ix.episodes
}

// FolderForGuest resolves a guest name, compared after NormalizeGuest, to
// an episode folder. When several episodes share a normalized guest the one
// indexed last wins.
func (ix *Index) FolderForGuest(guest string) (string, bool) {
	folder, ok := ix.byGuest[NormalizeGuest(guest)]
	return folder, ok
}

// SegmentCount is the number of indexed documents.
func (ix *Index) SegmentCount() int {
	return ix.segments
}
