// Package sqlite provides a SQLite-backed implementation of the track
// repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/harmonia-labs/cadenza/internal/core/domain"
	"github.com/harmonia-labs/cadenza/internal/core/ports"
)

// Adapter implements the repository port for SQLite.
type Adapter struct {
	db *sql.DB
}

// compile-time interface assertion
var _ ports.TrackRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration.
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully.
func (a *Adapter) Close() error {
	return a.db.Close()
}

const trackColumns = "id, title, artist, bpm, camelot_key, energy_level, mood, genre, preview_url"

func (a *Adapter) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	row := a.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)
	track, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Track{}, domain.ErrNotFound
		}
		return domain.Track{}, fmt.Errorf("failed to load track: %w", err)
	}
	return track, nil
}

func (a *Adapter) SaveTrack(ctx context.Context, t domain.Track) error {
	var key any
	if t.Key != nil {
		key = t.Key.String()
	}
	var energy any
	if t.Energy != nil {
		energy = *t.Energy
	}

	query := `
		INSERT INTO tracks (id, title, artist, bpm, camelot_key, energy_level, mood, genre, preview_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			artist=excluded.artist,
			bpm=excluded.bpm,
			camelot_key=excluded.camelot_key,
			energy_level=excluded.energy_level,
			mood=excluded.mood,
			genre=excluded.genre,
			preview_url=excluded.preview_url;
	`
	if _, err := a.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Artist,
		nullFloat(t.BPM), key, energy,
		nullString(t.Mood), nullString(t.Genre), nullString(t.PreviewURL),
	); err != nil {
		return fmt.Errorf("failed to save track %s: %w", t.ID, err)
	}
	return nil
}

func (a *Adapter) ListCandidates(ctx context.Context, excludeID string, requireTempoAndKey bool) ([]domain.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id != ?"
	if requireTempoAndKey {
		query += " AND bpm IS NOT NULL AND bpm > 0 AND camelot_key IS NOT NULL"
	}
	// rowid keeps candidate ordering stable at insertion order, which
	// the ranking tie-break rules depend on.
	query += " ORDER BY rowid ASC"

	rows, err := a.db.QueryContext(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var tracks []domain.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return tracks, nil
}

func (a *Adapter) SaveSimilarTracks(ctx context.Context, trackID string, entries []domain.SimilarTrack) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safety net: auto-rollback if we error before commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM similar_tracks WHERE track_id = ?", trackID); err != nil {
		return 0, fmt.Errorf("failed to clear similar tracks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO similar_tracks (track_id, similar_id, distance)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	saved := 0
	for _, e := range entries {
		if e.Track.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, trackID, e.Track.ID, e.Distance); err != nil {
			return 0, fmt.Errorf("failed to save similar track %s: %w", e.Track.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("transaction commit failed: %w", err)
	}
	return saved, nil
}

func (a *Adapter) SaveClusterAssignments(ctx context.Context, assignments []domain.ClusterAssignment) (int, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// A clustering pass supersedes the previous one wholesale.
	if _, err := tx.ExecContext(ctx, "DELETE FROM track_clusters"); err != nil {
		return 0, fmt.Errorf("failed to clear cluster assignments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO track_clusters (track_id, cluster_id, confidence, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	saved := 0
	for _, assignment := range assignments {
		if _, err := stmt.ExecContext(ctx, assignment.TrackID, assignment.ClusterID, assignment.Confidence); err != nil {
			return 0, fmt.Errorf("failed to save assignment for %s: %w", assignment.TrackID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("transaction commit failed: %w", err)
	}
	return saved, nil
}

func (a *Adapter) SaveVector(ctx context.Context, trackID string, v domain.Vector, aux map[string]float64) error {
	blob, err := json.Marshal(v[:])
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}

	var auxBlob any
	if len(aux) > 0 {
		b, err := json.Marshal(aux)
		if err != nil {
			return fmt.Errorf("failed to encode vector metadata: %w", err)
		}
		auxBlob = string(b)
	}

	query := `
		INSERT INTO hamms_vectors (track_id, vector_12d, aux)
		VALUES (?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			vector_12d=excluded.vector_12d,
			aux=excluded.aux;
	`
	if _, err := a.db.ExecContext(ctx, query, trackID, string(blob), auxBlob); err != nil {
		return fmt.Errorf("failed to save vector for %s: %w", trackID, err)
	}
	return nil
}

// GetVector loads a stored vector and its auxiliary metadata.
func (a *Adapter) GetVector(ctx context.Context, trackID string) (domain.Vector, map[string]float64, error) {
	row := a.db.QueryRowContext(ctx, "SELECT vector_12d, aux FROM hamms_vectors WHERE track_id = ?", trackID)

	var blob string
	var auxBlob sql.NullString
	if err := row.Scan(&blob, &auxBlob); err != nil {
		if err == sql.ErrNoRows {
			return domain.Vector{}, nil, domain.ErrNotFound
		}
		return domain.Vector{}, nil, fmt.Errorf("failed to load vector: %w", err)
	}

	var values []float64
	if err := json.Unmarshal([]byte(blob), &values); err != nil {
		return domain.Vector{}, nil, fmt.Errorf("failed to decode vector: %w", err)
	}
	if len(values) != domain.VectorDims {
		return domain.Vector{}, nil, fmt.Errorf("stored vector has %d dimensions, want %d", len(values), domain.VectorDims)
	}

	var v domain.Vector
	copy(v[:], values)

	var aux map[string]float64
	if auxBlob.Valid {
		if err := json.Unmarshal([]byte(auxBlob.String), &aux); err != nil {
			return domain.Vector{}, nil, fmt.Errorf("failed to decode vector metadata: %w", err)
		}
	}
	return v, aux, nil
}

func (a *Adapter) CountEligible(ctx context.Context) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tracks
		WHERE bpm IS NOT NULL AND bpm > 0 AND camelot_key IS NOT NULL
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count eligible tracks: %w", err)
	}
	return count, nil
}

func (a *Adapter) CountClustered(ctx context.Context) (int, error) {
	var count int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_clusters").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clustered tracks: %w", err)
	}
	return count, nil
}

func (a *Adapter) ListClusters(ctx context.Context) ([]domain.ClusterInfo, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT cluster_id, COUNT(*) AS track_count
		FROM track_clusters
		GROUP BY cluster_id
		ORDER BY cluster_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []domain.ClusterInfo
	for rows.Next() {
		var info domain.ClusterInfo
		if err := rows.Scan(&info.ClusterID, &info.TrackCount); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		clusters = append(clusters, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clusters: %w", err)
	}
	return clusters, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (domain.Track, error) {
	var track domain.Track
	var bpm sql.NullFloat64
	var key sql.NullString
	var energy sql.NullInt64
	var mood, genre, previewURL sql.NullString

	if err := row.Scan(
		&track.ID,
		&track.Title,
		&track.Artist,
		&bpm,
		&key,
		&energy,
		&mood,
		&genre,
		&previewURL,
	); err != nil {
		return domain.Track{}, err
	}

	if bpm.Valid {
		track.BPM = bpm.Float64
	}
	if key.Valid {
		if k, ok := domain.ParseKey(key.String); ok {
			track.Key = &k
		}
	}
	if energy.Valid {
		level := int(energy.Int64)
		track.Energy = &level
	}
	if mood.Valid {
		track.Mood = mood.String
	}
	if genre.Valid {
		track.Genre = genre.String
	}
	if previewURL.Valid {
		track.PreviewURL = previewURL.String
	}
	return track, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		bpm REAL,
		camelot_key TEXT,
		energy_level INTEGER,
		mood TEXT,
		genre TEXT,
		preview_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS similar_tracks (
		track_id TEXT,
		similar_id TEXT,
		distance REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (track_id, similar_id),
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS track_clusters (
		track_id TEXT PRIMARY KEY,
		cluster_id INTEGER NOT NULL,
		confidence REAL NOT NULL DEFAULT 1.0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS hamms_vectors (
		track_id TEXT PRIMARY KEY,
		vector_12d TEXT NOT NULL,
		aux TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_similar_track ON similar_tracks(track_id);
	CREATE INDEX IF NOT EXISTS idx_clusters_cluster ON track_clusters(cluster_id);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}
	return nil
}
