package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/flowpose/internal/flow"
	"github.com/banshee-data/flowpose/internal/odometry"
)

// ErrTrackNotFound is returned when a track ID has no row.
var ErrTrackNotFound = errors.New("track not found")

// Track is one odometry run over an input.
type Track struct {
	TrackID    string          `json:"track_id"`
	Source     string          `json:"source"`
	Mode       string          `json:"mode"`
	FPS        float64         `json:"fps"`
	ParamsJSON json.RawMessage `json:"params_json,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// TrackSummary adds step statistics to a Track.
type TrackSummary struct {
	Track
	Steps         int    `json:"steps"`
	FinalPosition r2.Vec `json:"final_position"`
}

// TrackStore provides persistence for tracks and their steps.
type TrackStore struct {
	db *sql.DB
}

// NewTrackStore creates a new TrackStore.
func NewTrackStore(db *sql.DB) *TrackStore {
	return &TrackStore{db: db}
}

// CreateTrack persists a new track. If TrackID is empty, a UUID is generated.
func (s *TrackStore) CreateTrack(ctx context.Context, t *Track) error {
	if t.TrackID == "" {
		t.TrackID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixNano()
	}

	var params interface{}
	if len(t.ParamsJSON) > 0 {
		params = string(t.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tracks (track_id, source, mode, fps, params_json, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.TrackID, t.Source, t.Mode, t.FPS, params, t.Notes, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
		return nil
	})
}

// GetTrack returns a single track by ID.
func (s *TrackStore) GetTrack(ctx context.Context, trackID string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT track_id, source, mode, fps, params_json, notes, created_at
		FROM tracks
		WHERE track_id = ?`, trackID)

	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return t, nil
}

// ListTracks returns every track with its step count and final position,
// newest first.
func (s *TrackStore) ListTracks(ctx context.Context) ([]*TrackSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.track_id, t.source, t.mode, t.fps, t.params_json, t.notes, t.created_at,
		       COUNT(st.seq),
		       COALESCE((SELECT position_x FROM track_steps WHERE track_id = t.track_id ORDER BY seq DESC LIMIT 1), 0),
		       COALESCE((SELECT position_y FROM track_steps WHERE track_id = t.track_id ORDER BY seq DESC LIMIT 1), 0)
		FROM tracks t
		LEFT JOIN track_steps st ON st.track_id = t.track_id
		GROUP BY t.track_id
		ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var out []*TrackSummary
	for rows.Next() {
		var ts TrackSummary
		var params sql.NullString
		if err := rows.Scan(
			&ts.TrackID, &ts.Source, &ts.Mode, &ts.FPS, &params, &ts.Notes, &ts.CreatedAt,
			&ts.Steps, &ts.FinalPosition.X, &ts.FinalPosition.Y,
		); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		if params.Valid {
			ts.ParamsJSON = json.RawMessage(params.String)
		}
		out = append(out, &ts)
	}
	return out, rows.Err()
}

// DeleteTrack removes a track and its steps.
func (s *TrackStore) DeleteTrack(ctx context.Context, trackID string) error {
	return retryOnBusy(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE track_id = ?`, trackID)
		if err != nil {
			return fmt.Errorf("delete track: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
		}
		return nil
	})
}

// InsertStep appends one integrated step to a track.
func (s *TrackStore) InsertStep(ctx context.Context, trackID string, rec odometry.StepRecord) error {
	est := rec.Estimate
	return retryOnBusy(func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO track_steps (
				track_id, seq, frame_index, timestamp_ns,
				rotation_angle, translation_x, translation_y,
				centroid_x, centroid_y, position_x, position_y
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trackID, rec.Seq, rec.FrameIndex, int64(rec.Timestamp),
			est.RotationAngle, est.Translation.X, est.Translation.Y,
			est.Centroid.X, est.Centroid.Y, rec.Position.X, rec.Position.Y,
		)
		if err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
		return nil
	})
}

// Steps returns a track's steps in sequence order.
func (s *TrackStore) Steps(ctx context.Context, trackID string) ([]odometry.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, frame_index, timestamp_ns,
		       rotation_angle, translation_x, translation_y,
		       centroid_x, centroid_y, position_x, position_y
		FROM track_steps
		WHERE track_id = ?
		ORDER BY seq ASC`, trackID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []odometry.StepRecord
	for rows.Next() {
		var rec odometry.StepRecord
		var ts int64
		var est flow.PoseEstimate
		if err := rows.Scan(
			&rec.Seq, &rec.FrameIndex, &ts,
			&est.RotationAngle, &est.Translation.X, &est.Translation.Y,
			&est.Centroid.X, &est.Centroid.Y, &rec.Position.X, &rec.Position.Y,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		rec.Timestamp = time.Duration(ts)
		rec.Estimate = est
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Recorder returns an odometry.Recorder that appends to trackID.
func (s *TrackStore) Recorder(trackID string) odometry.Recorder {
	return &trackRecorder{store: s, trackID: trackID}
}

type trackRecorder struct {
	store   *TrackStore
	trackID string
}

func (r *trackRecorder) RecordStep(ctx context.Context, rec odometry.StepRecord) error {
	return r.store.InsertStep(ctx, r.trackID, rec)
}

func scanTrack(row *sql.Row) (*Track, error) {
	var t Track
	var params sql.NullString
	if err := row.Scan(&t.TrackID, &t.Source, &t.Mode, &t.FPS, &params, &t.Notes, &t.CreatedAt); err != nil {
		return nil, err
	}
	if params.Valid {
		t.ParamsJSON = json.RawMessage(params.String)
	}
	return &t, nil
}
