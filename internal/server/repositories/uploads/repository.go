package uploads

import (
	"context"

	"github.com/dmitrijs2005/aikea/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, u *models.Upload) error
	GetByID(ctx context.Context, id string) (*models.Upload, error)
	List(ctx context.Context, q models.UploadQuery) ([]*models.Upload, error)
	Delete(ctx context.Context, id string) error
}
