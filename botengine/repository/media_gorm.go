package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-aiwa/botengine"
	domainMedia "github.com/AzielCF/az-aiwa/domains/media"
	pkgError "github.com/AzielCF/az-aiwa/pkg/error"
	"gorm.io/gorm"
)

// mediaModel es el modelo de persistencia compartido por las tablas document e image.
type mediaModel struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"index"`
	Description   string
	FileData      []byte `gorm:"not null"`
	MediaID       string `gorm:"column:media_id;index"`
	FileExtension string
	CreatedAt     time.Time `gorm:"column:uploaded_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

var mediaTables = map[domainMedia.Kind]string{
	domainMedia.KindDocument: "document",
	domainMedia.KindImage:    "image",
}

// MediaGormRepository implementa IMediaRepository usando GORM.
type MediaGormRepository struct {
	db *gorm.DB
}

func NewMediaGormRepository(db *gorm.DB) *MediaGormRepository {
	return &MediaGormRepository{db: db}
}

// Init inicializa el esquema usando AutoMigrate.
func (r *MediaGormRepository) Init(ctx context.Context) error {
	for _, table := range mediaTables {
		if err := r.db.WithContext(ctx).Table(table).AutoMigrate(&mediaModel{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}
	}
	return nil
}

func (r *MediaGormRepository) table(ctx context.Context, kind domainMedia.Kind) (*gorm.DB, error) {
	name, ok := mediaTables[kind]
	if !ok {
		return nil, pkgError.ValidationError(fmt.Sprintf("unknown media kind %q", kind))
	}
	return r.db.WithContext(ctx).Table(name), nil
}

// Find matches the query against title and description with "_" (and "-"
// for images) folded to spaces on both sides.
func (r *MediaGormRepository) Find(ctx context.Context, kind domainMedia.Kind, query string) (domainMedia.Asset, error) {
	q := strings.TrimSpace(botengine.NormalizeForMatch(kind, query))
	if q == "" {
		return domainMedia.Asset{}, pkgError.NotFoundError(fmt.Sprintf("%s not found", kind))
	}

	tx, err := r.table(ctx, kind)
	if err != nil {
		return domainMedia.Asset{}, err
	}

	titleExpr := normalizedColumn(kind, "title")
	descExpr := normalizedColumn(kind, "description")
	pattern := "%" + escapeLike(q) + "%"

	var model mediaModel
	err = tx.Where(titleExpr+` LIKE ? ESCAPE '\'`, pattern).
		Or(descExpr+` LIKE ? ESCAPE '\'`, pattern).
		Order("id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainMedia.Asset{}, pkgError.NotFoundError(fmt.Sprintf("%s not found", kind))
		}
		return domainMedia.Asset{}, err
	}
	return fromMediaModel(kind, model), nil
}

func (r *MediaGormRepository) ListTitles(ctx context.Context, kind domainMedia.Kind, limit int) ([]string, error) {
	tx, err := r.table(ctx, kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = botengine.ListLimit
	}

	var titles []string
	if err := tx.Order("id ASC").Limit(limit).Pluck("title", &titles).Error; err != nil {
		return nil, err
	}
	return titles, nil
}

func (r *MediaGormRepository) SaveMediaID(ctx context.Context, kind domainMedia.Kind, id uint, mediaID string) error {
	tx, err := r.table(ctx, kind)
	if err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Updates(map[string]any{"media_id": mediaID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgError.NotFoundError(fmt.Sprintf("%s %d not found", kind, id))
	}
	return nil
}

func (r *MediaGormRepository) Create(ctx context.Context, asset *domainMedia.Asset) error {
	tx, err := r.table(ctx, asset.Kind)
	if err != nil {
		return err
	}
	model := toMediaModel(*asset)
	if err := tx.Create(&model).Error; err != nil {
		return err
	}
	asset.ID = model.ID
	asset.CreatedAt = model.CreatedAt
	asset.UpdatedAt = model.UpdatedAt
	return nil
}

func normalizedColumn(kind domainMedia.Kind, column string) string {
	expr := fmt.Sprintf("REPLACE(LOWER(COALESCE(%s, '')), '_', ' ')", column)
	if kind == domainMedia.KindImage {
		expr = fmt.Sprintf("REPLACE(%s, '-', ' ')", expr)
	}
	return expr
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toMediaModel(a domainMedia.Asset) mediaModel {
	return mediaModel{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		FileData:      a.FileData,
		MediaID:       a.MediaID,
		FileExtension: a.FileExtension,
	}
}

func fromMediaModel(kind domainMedia.Kind, m mediaModel) domainMedia.Asset {
	return domainMedia.Asset{
		ID:            m.ID,
		Kind:          kind,
		Title:         m.Title,
		Description:   m.Description,
		FileData:      m.FileData,
		FileExtension: m.FileExtension,
		MediaID:       m.MediaID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
