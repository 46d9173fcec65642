package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/cenkalti/dominantcolor"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// ProcessAssetColors stores the dominant colours of the asset's primary
// image. Assets without images are left alone.
func (u Usecase) ProcessAssetColors(ctx context.Context, t AssetType, id uuid.UUID) error {
	a, err := u.repo.GetAssetByID(ctx, t, id)
	if err != nil {
		return err
	}
	primary := a.PrimaryImage()
	if primary == "" {
		u.logger.InfoContext(ctx, "asset has no primary image", "asset_id", id)
		return nil
	}

	colors, err := ExtractColors(ctx, primary)
	if err != nil {
		return fmt.Errorf("extract colors of %s: %w", primary, err)
	}
	return u.repo.UpdateAssetColors(ctx, t, id, colors)
}

// SweepAssetColors enqueues colour extraction for every asset that has
// images but no stored colours. It returns the number of tasks enqueued.
func (u Usecase) SweepAssetColors(ctx context.Context) (int, error) {
	if u.queueClient == nil {
		return 0, nil
	}

	const pageSize = 100
	var enqueued int
	for skip := 0; ; skip += pageSize {
		list, total, err := u.repo.ListAssets(ctx, ListAssetsOption{Skip: skip, Limit: pageSize})
		if err != nil {
			return enqueued, err
		}
		for _, a := range list {
			if a.PrimaryImage() == "" || len(a.Colors) > 0 {
				continue
			}
			if err := u.queueClient.EnqueueAssetColors(ctx, a.Type(), a.ID); err != nil {
				return enqueued, err
			}
			enqueued++
		}
		if len(list) == 0 || skip+pageSize >= total {
			return enqueued, nil
		}
	}
}

// ExtractColors downloads an image and returns its 4 dominant colours as
// JSON, keyed by rank: {"0":[r,g,b,a],...}.
func ExtractColors(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	img, _, err := image.Decode(res.Body)
	if err != nil {
		return nil, err
	}

	colors := make(map[int][4]uint8)
	for i, c := range dominantcolor.FindN(img, 4) {
		colors[i] = [4]uint8{c.R, c.G, c.B, c.A}
	}
	return json.Marshal(colors)
}
