package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/estatease/estatease/internal/usecase"
)

// AssetBase holds the columns shared by lands and villas.
type AssetBase struct {
	ID            uuid.UUID                   `gorm:"column:id;primaryKey;type:uuid"`
	Title         string                      `gorm:"column:title;type:varchar(255);not null"`
	Location      string                      `gorm:"column:location;type:varchar(255);not null"`
	Description   string                      `gorm:"column:description;type:text"`
	Price         float64                     `gorm:"column:price;type:numeric(15,2);not null"`
	Currency      string                      `gorm:"column:currency;type:varchar(3);not null"`
	Tenure        string                      `gorm:"column:tenure;type:varchar(20);not null"`
	LeaseDuration *int                        `gorm:"column:lease_duration;type:int"`
	Images        datatypes.JSONSlice[string] `gorm:"column:images"`
	Colors        datatypes.JSON              `gorm:"column:colors"`
	CreatedAt     time.Time                   `gorm:"column:created_at;index"`
	UpdatedAt     time.Time                   `gorm:"column:updated_at"`
	DeletedAt     gorm.DeletedAt              `gorm:"column:deleted_at;index"`
}

func (a *AssetBase) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id
	}
	return nil
}

type Land struct {
	AssetBase
	LandArea float64 `gorm:"column:land_area;not null"`
	Zoning   string  `gorm:"column:zoning;type:varchar(100)"`
}

func (Land) TableName() string {
	return "lands"
}

type Villa struct {
	AssetBase
	Bedrooms        int     `gorm:"column:bedrooms;type:int;default:0"`
	Bathrooms       int     `gorm:"column:bathrooms;type:int;default:0"`
	BuiltArea       float64 `gorm:"column:built_area"`
	LandArea        float64 `gorm:"column:land_area"`
	Pool            bool    `gorm:"column:pool;default:false"`
	Garden          bool    `gorm:"column:garden;default:false"`
	Furnished       bool    `gorm:"column:furnished;default:false"`
	AirConditioning bool    `gorm:"column:air_conditioning;default:false"`
	Wifi            bool    `gorm:"column:wifi;default:false"`
	Parking         bool    `gorm:"column:parking;default:false"`
}

func (Villa) TableName() string {
	return "villas"
}

func modelFor(t usecase.AssetType) (any, error) {
	switch t {
	case usecase.AssetTypeLand:
		return &Land{}, nil
	case usecase.AssetTypeVilla:
		return &Villa{}, nil
	}
	return nil, fmt.Errorf("unknown asset type %q", t)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return usecase.ErrNotFound
	}
	return err
}

func (s *service) ListAssets(ctx context.Context, opt usecase.ListAssetsOption) ([]usecase.Asset, int, error) {
	switch opt.Type {
	case usecase.AssetTypeLand:
		return listTable[Land](ctx, s.db, opt.Skip, opt.Limit)
	case usecase.AssetTypeVilla:
		return listTable[Villa](ctx, s.db, opt.Skip, opt.Limit)
	case "":
	default:
		return nil, 0, fmt.Errorf("unknown asset type %q", opt.Type)
	}

	// Both tables, newest first. Each side is read up to skip+limit rows
	// and the merged slice is paginated afterwards.
	var (
		lands, villas         []usecase.Asset
		landCount, villaCount int
		window                int
	)
	if opt.Limit > 0 {
		window = opt.Skip + opt.Limit
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lands, landCount, err = listTable[Land](gctx, s.db, 0, window)
		return err
	})
	g.Go(func() error {
		var err error
		villas, villaCount, err = listTable[Villa](gctx, s.db, 0, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	list := append(lands, villas...)
	slices.SortStableFunc(list, func(a, b usecase.Asset) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := landCount + villaCount
	if opt.Skip >= len(list) {
		return []usecase.Asset{}, total, nil
	}
	list = list[opt.Skip:]
	if opt.Limit > 0 && len(list) > opt.Limit {
		list = list[:opt.Limit]
	}
	return list, total, nil
}

type assetRow interface {
	Land | Villa
}

func listTable[T assetRow](ctx context.Context, db *gorm.DB, skip, limit int) ([]usecase.Asset, int, error) {
	var (
		rows  []T
		count int64
	)

	q := db.WithContext(ctx).Model(new(T))
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	q = db.WithContext(ctx).Order("created_at DESC").Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	list := make([]usecase.Asset, 0, len(rows))
	for _, r := range rows {
		list = append(list, convertRow(any(r)))
	}
	return list, int(count), nil
}

func convertRow(r any) usecase.Asset {
	switch m := r.(type) {
	case Land:
		return m.ConvertToUsecase()
	case Villa:
		return m.ConvertToUsecase()
	}
	panic(fmt.Sprintf("database: unexpected asset row %T", r))
}

func (s *service) GetAssetByID(ctx context.Context, t usecase.AssetType, id uuid.UUID) (usecase.Asset, error) {
	switch t {
	case usecase.AssetTypeLand:
		var l Land
		if err := s.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
			return usecase.Asset{}, notFound(err)
		}
		return l.ConvertToUsecase(), nil
	case usecase.AssetTypeVilla:
		var v Villa
		if err := s.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
			return usecase.Asset{}, notFound(err)
		}
		return v.ConvertToUsecase(), nil
	}
	return usecase.Asset{}, fmt.Errorf("unknown asset type %q", t)
}

func (s *service) CreateAsset(ctx context.Context, a usecase.Asset) (usecase.Asset, error) {
	base := newAssetBase(a)

	switch d := a.Details.(type) {
	case usecase.LandDetails:
		l := Land{AssetBase: base, LandArea: d.LandArea, Zoning: d.Zoning}
		if err := s.db.WithContext(ctx).Create(&l).Error; err != nil {
			return usecase.Asset{}, err
		}
		return l.ConvertToUsecase(), nil
	case usecase.VillaDetails:
		v := Villa{
			AssetBase:       base,
			Bedrooms:        d.Bedrooms,
			Bathrooms:       d.Bathrooms,
			BuiltArea:       d.BuiltArea,
			LandArea:        d.LandArea,
			Pool:            d.Amenities.Pool,
			Garden:          d.Amenities.Garden,
			Furnished:       d.Amenities.Furnished,
			AirConditioning: d.Amenities.AirConditioned,
			Wifi:            d.Amenities.Wifi,
			Parking:         d.Amenities.Parking,
		}
		if err := s.db.WithContext(ctx).Create(&v).Error; err != nil {
			return usecase.Asset{}, err
		}
		return v.ConvertToUsecase(), nil
	}
	return usecase.Asset{}, fmt.Errorf("unknown asset details %T", a.Details)
}

// UpdateAsset writes every editable column, zero values included. The image
// list is only written when a.Images is non-nil.
func (s *service) UpdateAsset(ctx context.Context, a usecase.Asset) (usecase.Asset, error) {
	cols := map[string]any{
		"title":          a.Title,
		"location":       a.Location,
		"description":    a.Description,
		"price":          a.Price,
		"currency":       a.Currency,
		"tenure":         string(a.Tenure),
		"lease_duration": a.LeaseDuration,
	}
	if a.Images != nil {
		cols["images"] = datatypes.NewJSONSlice(a.Images)
	}

	var model any
	switch d := a.Details.(type) {
	case usecase.LandDetails:
		model = &Land{}
		cols["land_area"] = d.LandArea
		cols["zoning"] = d.Zoning
	case usecase.VillaDetails:
		model = &Villa{}
		cols["bedrooms"] = d.Bedrooms
		cols["bathrooms"] = d.Bathrooms
		cols["built_area"] = d.BuiltArea
		cols["land_area"] = d.LandArea
		cols["pool"] = d.Amenities.Pool
		cols["garden"] = d.Amenities.Garden
		cols["furnished"] = d.Amenities.Furnished
		cols["air_conditioning"] = d.Amenities.AirConditioned
		cols["wifi"] = d.Amenities.Wifi
		cols["parking"] = d.Amenities.Parking
	default:
		return usecase.Asset{}, fmt.Errorf("unknown asset details %T", a.Details)
	}

	res := s.db.WithContext(ctx).Model(model).Where("id = ?", a.ID).Updates(cols)
	if res.Error != nil {
		return usecase.Asset{}, res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.Asset{}, usecase.ErrNotFound
	}
	return s.GetAssetByID(ctx, a.Type(), a.ID)
}

func (s *service) UpdateAssetImages(ctx context.Context, t usecase.AssetType, id uuid.UUID, urls []string) error {
	return s.updateAssetColumn(ctx, t, id, "images", datatypes.NewJSONSlice(urls))
}

func (s *service) UpdateAssetColors(ctx context.Context, t usecase.AssetType, id uuid.UUID, colors []byte) error {
	return s.updateAssetColumn(ctx, t, id, "colors", datatypes.JSON(colors))
}

func (s *service) updateAssetColumn(ctx context.Context, t usecase.AssetType, id uuid.UUID, column string, value any) error {
	model, err := modelFor(t)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func (s *service) DeleteAsset(ctx context.Context, t usecase.AssetType, id uuid.UUID) error {
	model, err := modelFor(t)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrNotFound
	}
	return nil
}

func newAssetBase(a usecase.Asset) AssetBase {
	images := a.Images
	if images == nil {
		images = []string{}
	}
	return AssetBase{
		ID:            a.ID,
		Title:         a.Title,
		Location:      a.Location,
		Description:   a.Description,
		Price:         a.Price,
		Currency:      a.Currency,
		Tenure:        string(a.Tenure),
		LeaseDuration: a.LeaseDuration,
		Images:        datatypes.NewJSONSlice(images),
		Colors:        datatypes.JSON(a.Colors),
	}
}

func (b AssetBase) convertToUsecase(d usecase.AssetDetails) usecase.Asset {
	images := []string(b.Images)
	if images == nil {
		images = []string{}
	}
	var colors []byte
	if len(b.Colors) > 0 {
		colors = []byte(b.Colors)
	}
	return usecase.Asset{
		ID:            b.ID,
		Title:         b.Title,
		Location:      b.Location,
		Description:   b.Description,
		Price:         b.Price,
		Currency:      b.Currency,
		Tenure:        usecase.Tenure(b.Tenure),
		LeaseDuration: b.LeaseDuration,
		Images:        images,
		Colors:        colors,
		Details:       d,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// Convert core model to Usecase
func (l Land) ConvertToUsecase() usecase.Asset {
	return l.AssetBase.convertToUsecase(usecase.LandDetails{
		LandArea: l.LandArea,
		Zoning:   l.Zoning,
	})
}

// Convert core model to Usecase
func (v Villa) ConvertToUsecase() usecase.Asset {
	return v.AssetBase.convertToUsecase(usecase.VillaDetails{
		Bedrooms:  v.Bedrooms,
		Bathrooms: v.Bathrooms,
		BuiltArea: v.BuiltArea,
		LandArea:  v.LandArea,
		Amenities: usecase.Amenities{
			Pool:           v.Pool,
			Garden:         v.Garden,
			Furnished:      v.Furnished,
			AirConditioned: v.AirConditioning,
			Wifi:           v.Wifi,
			Parking:        v.Parking,
		},
	})
}
