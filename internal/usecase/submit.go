package usecase

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/estatease/estatease/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("github.com/estatease/estatease/internal/usecase")
	meter  = otel.Meter("github.com/estatease/estatease/internal/usecase")

	submissionCounter, _ = meter.Int64Counter("estatease.investment.submissions",
		metric.WithDescription("Investment submissions by last completed step"))
	imageUploadCounter, _ = meter.Int64Counter("estatease.asset.image_uploads",
		metric.WithDescription("Asset image uploads by outcome"))
)

// Step names a stage of an investment submission.
type Step int

const (
	StepValidate Step = iota
	StepCreateAsset
	StepUploadImages
	StepAttachImages
	StepCreateInvestment
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepValidate:
		return "validate"
	case StepCreateAsset:
		return "create_asset"
	case StepUploadImages:
		return "upload_images"
	case StepAttachImages:
		return "attach_images"
	case StepCreateInvestment:
		return "create_investment"
	case StepDone:
		return "done"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ProgressFunc receives the upload progress in percent. Values never
// decrease and end at 100 once every staged file has been attempted.
type ProgressFunc func(percent int)

// SubmitResult describes how far a submission got. It is populated up to
// the last completed step even when SubmitInvestment returns an error.
type SubmitResult struct {
	// Step is the last step that completed.
	Step       Step
	Asset      Asset
	Investment Investment

	UploadErrors []*ImageUploadError
	AttachError  *ImageAttachError
}

// ImageURLs are the uploaded images in upload order; the first one is the
// primary image.
func (r SubmitResult) ImageURLs() []string {
	return r.Asset.Images
}

// HasWarnings reports non-fatal failures: skipped uploads or an image list
// that could not be attached.
func (r SubmitResult) HasWarnings() bool {
	return len(r.UploadErrors) > 0 || r.AttachError != nil
}

// SubmitInvestment creates an asset, uploads the staged images, links them
// to the asset and finally creates the investment that references it.
//
// The steps are sequential and nothing is rolled back. A failed upload is
// skipped, a failed attach is a warning, and a failed investment leaves the
// asset in place and returns *InvestmentCreationError.
func (u Usecase) SubmitInvestment(ctx context.Context, form InvestmentForm, files []StagedFile, onProgress ProgressFunc) (res SubmitResult, err error) {
	ctx, span := tracer.Start(ctx, "SubmitInvestment")
	defer span.End()

	defer func() {
		submissionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", res.Step.String()),
			attribute.Bool("success", err == nil),
		))
	}()

	draft, err := form.Validate()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	res.Step = StepValidate

	// later changes to the caller's buffer must not leak into this run
	files = slices.Clone(files)

	asset, err := u.createAsset(ctx, draft.asset)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	res.Asset, res.Step = asset, StepCreateAsset
	span.SetAttributes(
		attribute.String("asset.type", string(asset.Type())),
		attribute.String("asset.id", asset.ID.String()),
	)

	var urls []string
	if len(files) > 0 {
		urls, res.UploadErrors = u.uploadImages(ctx, asset, files, onProgress)
	}
	res.Step = StepUploadImages

	if len(urls) > 0 {
		if err := u.attachImages(ctx, asset, urls); err != nil {
			res.AttachError = err
		} else {
			res.Asset.Images = urls
			u.enqueueAssetColors(ctx, asset)
		}
	}
	res.Step = StepAttachImages

	draft.investment.AssetID = asset.ID
	inv, err := u.createInvestment(ctx, draft.investment)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		u.notifyOrphanAsset(ctx, res.Asset, err)
		return res, err
	}
	inv.Asset = &res.Asset
	res.Investment, res.Step = inv, StepDone

	u.logger.InfoContext(ctx, "investment submitted",
		"asset_type", asset.Type(),
		"asset_id", asset.ID,
		"investment_id", inv.ID,
		"images", len(res.Asset.Images),
		"upload_failures", len(res.UploadErrors),
	)
	return res, nil
}

func (u Usecase) createAsset(ctx context.Context, a Asset) (Asset, error) {
	ctx, span := tracer.Start(ctx, "createAsset")
	defer span.End()

	created, err := u.repo.CreateAsset(ctx, a)
	if err != nil {
		u.logger.ErrorContext(ctx, "asset creation failed", "asset_type", a.Type(), "err", err)
		span.RecordError(err)
		return Asset{}, &AssetCreationError{AssetType: a.Type(), Cause: err}
	}
	return created, nil
}

// uploadImages uploads files one at a time in selection order. A failure is
// recorded and the loop moves on; successes keep their relative order.
func (u Usecase) uploadImages(ctx context.Context, a Asset, files []StagedFile, onProgress ProgressFunc) ([]string, []*ImageUploadError) {
	ctx, span := tracer.Start(ctx, "uploadImages", trace.WithAttributes(
		attribute.Int("images.total", len(files)),
	))
	defer span.End()

	var (
		urls     []string
		failures []*ImageUploadError
		bucket   = bucketFor(a.Type())
	)
	for i, f := range files {
		url, err := u.uploadImage(ctx, bucket, ObjectPath(a, f, i, u.now().UnixMilli()), f)
		imageUploadCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
		if err != nil {
			failures = append(failures, &ImageUploadError{Index: i, File: f.Name, Cause: err})
			u.logger.WarnContext(ctx, "image upload failed, skipping",
				"asset_id", a.ID, "index", i, "file", f.Name, "err", err)
		} else {
			urls = append(urls, url)
		}

		if onProgress != nil {
			onProgress(progressPercent(i+1, len(files)))
		}
	}

	span.SetAttributes(attribute.Int("images.uploaded", len(urls)))
	return urls, failures
}

func (u Usecase) uploadImage(ctx context.Context, bucket, path string, f StagedFile) (string, error) {
	if err := u.fileStorageProvider.Upload(ctx, bucket, path, f.Data, f.MIME()); err != nil {
		return "", err
	}
	return u.fileStorageProvider.GetPublicURL(ctx, bucket, path)
}

func (u Usecase) attachImages(ctx context.Context, a Asset, urls []string) *ImageAttachError {
	ctx, span := tracer.Start(ctx, "attachImages")
	defer span.End()

	if err := u.repo.UpdateAssetImages(ctx, a.Type(), a.ID, urls); err != nil {
		u.logger.WarnContext(ctx, "uploaded images not linked to asset",
			"asset_id", a.ID, "images", len(urls), "err", err)
		span.RecordError(err)
		return &ImageAttachError{AssetID: a.ID, URLs: urls, Cause: err}
	}
	return nil
}

func (u Usecase) createInvestment(ctx context.Context, inv Investment) (Investment, error) {
	ctx, span := tracer.Start(ctx, "createInvestment")
	defer span.End()

	created, err := u.repo.CreateInvestment(ctx, inv)
	if err != nil {
		u.logger.ErrorContext(ctx, "investment creation failed, asset left without investment",
			"asset_type", inv.AssetType, "asset_id", inv.AssetID, "err", err)
		span.RecordError(err)
		return Investment{}, &InvestmentCreationError{AssetType: inv.AssetType, AssetID: inv.AssetID, Cause: err}
	}
	return created, nil
}

func (u Usecase) enqueueAssetColors(ctx context.Context, a Asset) {
	if u.queueClient == nil {
		return
	}
	if err := u.queueClient.EnqueueAssetColors(ctx, a.Type(), a.ID); err != nil {
		u.logger.WarnContext(ctx, "enqueue asset colors failed", "asset_id", a.ID, "err", err)
	}
}

func progressPercent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func bucketFor(t AssetType) string {
	switch t {
	case AssetTypeVilla:
		return config.BUCKET_VILLAS
	case AssetTypeLand:
		return config.BUCKET_LANDS
	}
	panic(fmt.Sprintf("usecase: no bucket for asset type %q", t))
}

func pathSegmentFor(t AssetType) string {
	switch t {
	case AssetTypeVilla:
		return config.PATH_SEGMENT_VILLAS
	case AssetTypeLand:
		return config.PATH_SEGMENT_LANDS
	}
	panic(fmt.Sprintf("usecase: no path segment for asset type %q", t))
}

// ObjectPath is the key of the index-th image of a submission inside the
// asset type's bucket: {segment}/{assetID}/{millis}_{index}.{ext}
func ObjectPath(a Asset, f StagedFile, index int, millis int64) string {
	return fmt.Sprintf("%s/%s/%d_%d.%s", pathSegmentFor(a.Type()), a.ID, millis, index, f.Ext())
}
