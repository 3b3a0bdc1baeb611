package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/casamapa/casamapa/internal/core/domain/geo"
	"github.com/casamapa/casamapa/internal/core/domain/note"
	"github.com/casamapa/casamapa/internal/core/ports"
	"github.com/casamapa/casamapa/internal/infrastructure/db"
)

// NoteRepository implements the relational queries the cache layer wraps.
type NoteRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(database *db.Database, logger *logrus.Logger) ports.NoteRepository {
	return &NoteRepository{
		db:     database,
		logger: logger,
	}
}

func (r *NoteRepository) ListHouses(ctx context.Context) ([]note.House, error) {
	houses := []note.House{}
	query := `
		SELECT id, address, description, lat, lng, created_at, updated_at
		FROM houses
		ORDER BY created_at DESC`

	if err := r.db.DB.SelectContext(ctx, &houses, query); err != nil {
		return nil, fmt.Errorf("failed to list houses: %w", err)
	}
	return houses, nil
}

// ListHousesInViewport returns the houses inside a bounding box, newest
// first, capped at limit.
func (r *NoteRepository) ListHousesInViewport(ctx context.Context, vp geo.Viewport, limit int) ([]note.House, error) {
	houses := []note.House{}
	query := `
		SELECT id, address, description, lat, lng, created_at, updated_at
		FROM houses
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4
		ORDER BY created_at DESC
		LIMIT $5`

	if err := r.db.DB.SelectContext(ctx, &houses, query, vp.South, vp.North, vp.West, vp.East, limit); err != nil {
		return nil, fmt.Errorf("failed to list houses in viewport: %w", err)
	}
	return houses, nil
}

// TopHouses ranks houses by comment volume. The exact engagement formula is
// intentionally simple; it is a popularity hint, not a score contract.
func (r *NoteRepository) TopHouses(ctx context.Context, limit int) ([]note.House, error) {
	houses := []note.House{}
	query := `
		SELECT h.id, h.address, h.description, h.lat, h.lng, h.created_at, h.updated_at
		FROM houses h
		LEFT JOIN comments c ON c.house_id = h.id
		GROUP BY h.id
		ORDER BY COUNT(c.id) DESC, h.created_at DESC
		LIMIT $1`

	if err := r.db.DB.SelectContext(ctx, &houses, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list top houses: %w", err)
	}
	return houses, nil
}

func (r *NoteRepository) GetHouse(ctx context.Context, id int64) (*note.House, error) {
	var h note.House
	query := `
		SELECT id, address, description, lat, lng, created_at, updated_at
		FROM houses
		WHERE id = $1`

	err := r.db.DB.GetContext(ctx, &h, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("house %d not found", id)
		}
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	return &h, nil
}

func (r *NoteRepository) CreateHouse(ctx context.Context, req *note.CreateHouseRequest) (*note.House, error) {
	var h note.House
	query := `
		INSERT INTO houses (address, description, lat, lng)
		VALUES ($1, $2, $3, $4)
		RETURNING id, address, description, lat, lng, created_at, updated_at`

	err := r.db.DB.GetContext(ctx, &h, query, req.Address, req.Description, req.Lat, req.Lng)
	if err != nil {
		if r.logger != nil {
			r.logger.WithError(err).Error("db: failed to create house")
		}
		return nil, fmt.Errorf("failed to create house: %w", err)
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"house_id": h.ID}).Info("db: house created")
	}
	return &h, nil
}

func (r *NoteRepository) UpdateHouse(ctx context.Context, id int64, req *note.UpdateHouseRequest) (*note.House, error) {
	var h note.House
	query := `
		UPDATE houses
		SET address = $1, description = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING id, address, description, lat, lng, created_at, updated_at`

	err := r.db.DB.GetContext(ctx, &h, query, req.Address, req.Description, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("house %d not found", id)
		}
		return nil, fmt.Errorf("failed to update house: %w", err)
	}
	return &h, nil
}

func (r *NoteRepository) DeleteHouse(ctx context.Context, id int64) error {
	res, err := r.db.DB.ExecContext(ctx, `DELETE FROM houses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete house: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("house %d not found", id)
	}
	return nil
}

func (r *NoteRepository) ListComments(ctx context.Context, houseID int64) ([]note.Comment, error) {
	comments := []note.Comment{}
	query := `
		SELECT id, house_id, comment, created_at
		FROM comments
		WHERE house_id = $1
		ORDER BY created_at ASC`

	if err := r.db.DB.SelectContext(ctx, &comments, query, houseID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (r *NoteRepository) CreateComment(ctx context.Context, houseID int64, text string) (*note.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("comment text required")
	}

	var c note.Comment
	query := `
		INSERT INTO comments (house_id, comment)
		VALUES ($1, $2)
		RETURNING id, house_id, comment, created_at`

	err := r.db.DB.GetContext(ctx, &c, query, houseID, text)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"house_id": houseID}).WithError(err).Error("db: failed to create comment")
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &c, nil
}
