package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogRepository reads designer profiles. Drafts are validated against the
// profile (offered modes, per-mode fee) before a hold is attempted.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("designers"),
		logger: logger,
	}
}

type DesignerDoc struct {
	ID          uuid.UUID `bson:"_id"`
	Name        string    `bson:"name"`
	Region      string    `bson:"region"`
	Specialties string    `bson:"specialties"`
	ShopAddress string    `bson:"shop_address"`
	// Comma separated, e.g. "IN_PERSON,REMOTE".
	AvailableModes string    `bson:"available_modes"`
	InPersonFee    int64     `bson:"in_person_fee"`
	RemoteFee      int64     `bson:"remote_fee"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func (d DesignerDoc) toDomain() domain.Designer {
	var modes []domain.Mode
	for _, m := range strings.Split(d.AvailableModes, ",") {
		if m = strings.TrimSpace(m); m != "" {
			modes = append(modes, domain.Mode(m))
		}
	}
	return domain.Designer{
		ID:          d.ID,
		Name:        d.Name,
		Region:      d.Region,
		ShopAddress: d.ShopAddress,
		Modes:       modes,
		InPersonFee: d.InPersonFee,
		RemoteFee:   d.RemoteFee,
	}
}

func (c *CatalogRepository) GetDesigner(ctx context.Context, id uuid.UUID) (domain.Designer, error) {
	var doc DesignerDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return domain.Designer{}, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get designer")
		return domain.Designer{}, err
	}
	return doc.toDomain(), nil
}

func (c *CatalogRepository) CreateDesigner(ctx context.Context, doc DesignerDoc) error {
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		c.logger.WithError(err).Error("failed to create designer")
		return err
	}
	return nil
}
