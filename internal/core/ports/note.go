package ports

import (
	"context"

	"github.com/casamapa/casamapa/internal/core/domain/geo"
	"github.com/casamapa/casamapa/internal/core/domain/note"
)

// NoteRepository is the relational collaborator behind the cache. Handlers
// wrap its read queries in FetchFuncs; the cache layer never calls it
// directly.
type NoteRepository interface {
	ListHouses(ctx context.Context) ([]note.House, error)
	ListHousesInViewport(ctx context.Context, vp geo.Viewport, limit int) ([]note.House, error)
	TopHouses(ctx context.Context, limit int) ([]note.House, error)
	GetHouse(ctx context.Context, id int64) (*note.House, error)
	CreateHouse(ctx context.Context, req *note.CreateHouseRequest) (*note.House, error)
	UpdateHouse(ctx context.Context, id int64, req *note.UpdateHouseRequest) (*note.House, error)
	DeleteHouse(ctx context.Context, id int64) error

	ListComments(ctx context.Context, houseID int64) ([]note.Comment, error)
	CreateComment(ctx context.Context, houseID int64, text string) (*note.Comment, error)
}
