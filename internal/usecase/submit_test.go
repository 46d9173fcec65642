package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/estatease/estatease/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pathIndex(i int) interface{} {
	return mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, fmt.Sprintf("_%d.", i))
	})
}

func TestSubmitInvestment_VillaWithoutImages(t *testing.T) {
	repo := newMemRepo()
	fs := new(MockFileStorage)
	u := newTestUsecase(repo, fs)

	res, err := u.SubmitInvestment(context.Background(), villaForm(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, StepDone, res.Step)
	assert.False(t, res.HasWarnings())
	require.Len(t, repo.assets, 1)
	require.Len(t, repo.investments, 1)

	asset := repo.assets[res.Asset.ID]
	assert.Empty(t, asset.Images)
	assert.Equal(t, AssetTypeVilla, asset.Type())
	require.NotNil(t, asset.LeaseDuration)
	assert.Equal(t, 25, *asset.LeaseDuration)

	inv := repo.investments[res.Investment.ID]
	assert.Equal(t, AssetTypeVilla, inv.AssetType)
	assert.Equal(t, asset.ID, inv.AssetID)
	require.NotNil(t, inv.ExpectedYield)
	assert.InDelta(t, 8.5, *inv.ExpectedYield, 1e-9)
	assert.True(t, inv.LegalChecked)
	assert.False(t, inv.ManagementAvailable)

	assert.Equal(t, 0, repo.called("UpdateAssetImages"))
	fs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitInvestment_LeaseholdWithoutDurationFailsBeforeAnyWrite(t *testing.T) {
	for _, lease := range []string{"", "0", "-3", "two", "1.5"} {
		t.Run(fmt.Sprintf("lease=%q", lease), func(t *testing.T) {
			repo := newMemRepo()
			u := newTestUsecase(repo, new(MockFileStorage))

			form := villaForm()
			form.LeaseDuration = lease

			res, err := u.SubmitInvestment(context.Background(), form, []StagedFile{jpeg("a.jpg")}, nil)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "lease_duration", verr.Field)
			assert.Equal(t, StepValidate, res.Step)
			assert.Equal(t, 0, repo.called("CreateAsset"))
			assert.Empty(t, repo.assets)
		})
	}
}

func TestSubmitInvestment_ValidationNamesField(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*InvestmentForm)
		field string
	}{
		{"unknown type", func(f *InvestmentForm) { f.AssetType = "castle" }, "asset_type"},
		{"missing title", func(f *InvestmentForm) { f.Title = "  " }, "title"},
		{"missing location", func(f *InvestmentForm) { f.Location = "" }, "location"},
		{"zero price", func(f *InvestmentForm) { f.Price = "0" }, "price"},
		{"text price", func(f *InvestmentForm) { f.Price = "cheap" }, "price"},
		{"nan price", func(f *InvestmentForm) { f.Price = "NaN" }, "price"},
		{"bad tenure", func(f *InvestmentForm) { f.Tenure = "rent" }, "tenure"},
		{"land without area", func(f *InvestmentForm) { f.AssetType = "land"; f.LandArea = "" }, "land_area"},
		{"land negative area", func(f *InvestmentForm) { f.AssetType = "land"; f.LandArea = "-1" }, "land_area"},
		{"negative bedrooms", func(f *InvestmentForm) { f.Bedrooms = "-1" }, "bedrooms"},
		{"yield out of range", func(f *InvestmentForm) { f.ExpectedYield = "140" }, "expected_yield"},
		{"yield not a number", func(f *InvestmentForm) { f.ExpectedYield = "high" }, "expected_yield"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := villaForm()
			tt.edit(&form)

			_, err := form.Validate()

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestInvestmentForm_FreeholdDropsLeaseDuration(t *testing.T) {
	form := landForm()
	form.LeaseDuration = "30"

	d, err := form.Validate()
	require.NoError(t, err)

	assert.Nil(t, d.asset.LeaseDuration)
	assert.Equal(t, "USD", d.asset.Currency)
	land, ok := d.asset.Details.(LandDetails)
	require.True(t, ok)
	assert.InDelta(t, 12.5, land.LandArea, 1e-9)
	assert.Equal(t, "green", land.Zoning)
	assert.Nil(t, d.investment.ExpectedYield)
}

func TestSubmitInvestment_PartialUploadFailureKeepsSuccessOrder(t *testing.T) {
	repo := newMemRepo()
	fs := new(MockFileStorage)
	fs.On("Upload", mock.Anything, config.BUCKET_VILLAS, pathIndex(0), mock.Anything, "image/jpeg").Return(errBoom)
	fs.On("Upload", mock.Anything, config.BUCKET_VILLAS, pathIndex(2), mock.Anything, "image/jpeg").Return(errBoom)
	fs.On("Upload", mock.Anything, config.BUCKET_VILLAS, mock.Anything, mock.Anything, "image/jpeg").Return(nil)
	u := newTestUsecase(repo, fs)

	files := []StagedFile{jpeg("a.jpg"), jpeg("b.jpg"), jpeg("c.jpg"), jpeg("d.JPG")}
	res, err := u.SubmitInvestment(context.Background(), villaForm(), files, nil)
	require.NoError(t, err)

	id := res.Asset.ID
	want := []string{
		fmt.Sprintf("https://cdn.test/properties/villas/%s/%d_1.jpg", id, testNow.UnixMilli()),
		fmt.Sprintf("https://cdn.test/properties/villas/%s/%d_3.jpg", id, testNow.UnixMilli()),
	}
	assert.Equal(t, want, repo.assets[id].Images)
	assert.Equal(t, want, res.ImageURLs())
	assert.Equal(t, want[0], res.Asset.PrimaryImage())

	require.Len(t, res.UploadErrors, 2)
	assert.Equal(t, 0, res.UploadErrors[0].Index)
	assert.Equal(t, "a.jpg", res.UploadErrors[0].File)
	assert.ErrorIs(t, res.UploadErrors[0], errBoom)
	assert.Equal(t, 2, res.UploadErrors[1].Index)
	assert.True(t, res.HasWarnings())

	assert.Len(t, repo.investments, 1)
	assert.Equal(t, StepDone, res.Step)
	fs.AssertNumberOfCalls(t, "Upload", 4)
}

func TestSubmitInvestment_AllUploadsFail(t *testing.T) {
	repo := newMemRepo()
	fs := new(MockFileStorage)
	fs.On("Upload", mock.Anything, config.BUCKET_LANDS, mock.Anything, mock.Anything, mock.Anything).Return(errBoom)
	u := newTestUsecase(repo, fs)

	files := []StagedFile{jpeg("a.jpg"), jpeg("b.jpg")}
	res, err := u.SubmitInvestment(context.Background(), landForm(), files, nil)
	require.NoError(t, err)

	require.Len(t, repo.assets, 1)
	assert.Empty(t, repo.assets[res.Asset.ID].Images)
	assert.Len(t, repo.investments, 1)
	assert.Len(t, res.UploadErrors, 2)
	assert.Equal(t, 0, repo.called("UpdateAssetImages"))
	assert.Equal(t, "", res.Asset.PrimaryImage())
}

func TestSubmitInvestment_InvestmentFailureLeavesAsset(t *testing.T) {
	repo := newMemRepo()
	repo.createInvestmentErr = errBoom
	fs := new(MockFileStorage)
	fs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mp := new(MockMailProvider)
	mp.On("SendEmail", mock.Anything, mock.MatchedBy(func(e Email) bool {
		return len(e.To) == 1 && e.To[0] == "admin@estatease.test" && strings.Contains(e.Body, "Villa Sunset")
	})).Return(nil).Once()

	u := New(repo, fs, nil, mp, nil).WithAdminEmail("no-reply@estatease.test", "admin@estatease.test")

	res, err := u.SubmitInvestment(context.Background(), villaForm(), []StagedFile{jpeg("a.jpg")}, nil)

	var ierr *InvestmentCreationError
	require.ErrorAs(t, err, &ierr)
	assert.ErrorIs(t, err, errBoom)
	var aerr *AssetCreationError
	assert.False(t, errors.As(err, &aerr))

	assert.Equal(t, res.Asset.ID, ierr.AssetID)
	assert.Equal(t, AssetTypeVilla, ierr.AssetType)
	assert.Equal(t, StepAttachImages, res.Step)

	require.Len(t, repo.assets, 1)
	assert.Len(t, repo.assets[ierr.AssetID].Images, 1)
	assert.Empty(t, repo.investments)
	assert.Equal(t, 0, repo.called("DeleteAsset"))
	mp.AssertExpectations(t)
}

func TestSubmitInvestment_AssetFailureStopsEverything(t *testing.T) {
	repo := newMemRepo()
	repo.createAssetErr = errBoom
	fs := new(MockFileStorage)
	u := newTestUsecase(repo, fs)

	var progress []int
	res, err := u.SubmitInvestment(context.Background(), villaForm(), []StagedFile{jpeg("a.jpg")}, func(p int) {
		progress = append(progress, p)
	})

	var aerr *AssetCreationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssetTypeVilla, aerr.AssetType)
	var ierr *InvestmentCreationError
	assert.False(t, errors.As(err, &ierr))

	assert.Equal(t, StepValidate, res.Step)
	assert.Empty(t, progress)
	assert.Equal(t, 0, repo.called("CreateInvestment"))
	fs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitInvestment_AttachFailureIsWarning(t *testing.T) {
	repo := newMemRepo()
	repo.updateImagesErr = errBoom
	fs := new(MockFileStorage)
	fs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	qc := new(MockQueueClient)
	u := New(repo, fs, qc, nil, nil)

	res, err := u.SubmitInvestment(context.Background(), villaForm(), []StagedFile{jpeg("a.jpg"), jpeg("b.jpg")}, nil)
	require.NoError(t, err)

	require.NotNil(t, res.AttachError)
	assert.Len(t, res.AttachError.URLs, 2)
	assert.ErrorIs(t, res.AttachError, errBoom)
	assert.True(t, res.HasWarnings())
	assert.Empty(t, res.Asset.Images)
	assert.Len(t, repo.investments, 1)
	assert.Equal(t, StepDone, res.Step)
	qc.AssertNotCalled(t, "EnqueueAssetColors", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitInvestment_EnqueuesColorsAfterAttach(t *testing.T) {
	repo := newMemRepo()
	fs := new(MockFileStorage)
	fs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	qc := new(MockQueueClient)
	qc.On("EnqueueAssetColors", mock.Anything, AssetTypeLand, mock.Anything).Return(errBoom).Once()
	u := New(repo, fs, qc, nil, nil)

	res, err := u.SubmitInvestment(context.Background(), landForm(), []StagedFile{jpeg("a.png")}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Asset.Images, 1)
	qc.AssertExpectations(t)
}

func TestSubmitInvestment_ProgressIsMonotonicAndEndsAt100(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			fs := new(MockFileStorage)
			fs.On("Upload", mock.Anything, mock.Anything, pathIndex(n-1), mock.Anything, mock.Anything).Return(errBoom)
			fs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			u := newTestUsecase(newMemRepo(), fs)

			files := make([]StagedFile, n)
			for i := range files {
				files[i] = jpeg(fmt.Sprintf("%d.jpg", i))
			}

			var progress []int
			_, err := u.SubmitInvestment(context.Background(), villaForm(), files, func(p int) {
				progress = append(progress, p)
			})
			require.NoError(t, err)

			require.Len(t, progress, n)
			for i := 1; i < len(progress); i++ {
				assert.GreaterOrEqual(t, progress[i], progress[i-1])
			}
			assert.Equal(t, 100, progress[len(progress)-1])
		})
	}
}

func TestSubmitInvestment_StagingChangesDoNotAffectSubmittedFiles(t *testing.T) {
	repo := newMemRepo()
	fs := new(MockFileStorage)
	fs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	u := newTestUsecase(repo, fs)

	buf := NewStagingBuffer(func(StagedFile) (string, error) { return "preview", nil })
	buf.Add(jpeg("a.jpg"), jpeg("b.jpg"), jpeg("c.jpg"))
	buf.Wait()

	res, err := u.SubmitInvestment(context.Background(), villaForm(), buf.Files(), nil)
	require.NoError(t, err)
	before := repo.assets[res.Asset.ID].Images

	buf.Remove(0)

	assert.Equal(t, 2, buf.Len())
	assert.Len(t, before, 3)
	assert.Equal(t, before, repo.assets[res.Asset.ID].Images)
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 33, progressPercent(1, 3))
	assert.Equal(t, 67, progressPercent(2, 3))
	assert.Equal(t, 100, progressPercent(3, 3))
	assert.Equal(t, 0, progressPercent(0, 0))
}

func TestObjectPath(t *testing.T) {
	repo := newMemRepo()
	villa, err := repo.CreateAsset(context.Background(), Asset{Details: VillaDetails{}})
	require.NoError(t, err)
	land, err := repo.CreateAsset(context.Background(), Asset{Details: LandDetails{LandArea: 1}})
	require.NoError(t, err)

	assert.Equal(t,
		fmt.Sprintf("villas/%s/1700000000000_0.png", villa.ID),
		ObjectPath(villa, StagedFile{Name: "Pool.PNG"}, 0, 1700000000000))
	assert.Equal(t,
		fmt.Sprintf("lands/%s/1700000000000_4.bin", land.ID),
		ObjectPath(land, StagedFile{Name: "noext"}, 4, 1700000000000))

	// same file twice in one submission
	f := jpeg("same.jpg")
	assert.NotEqual(t, ObjectPath(villa, f, 0, 1), ObjectPath(villa, f, 1, 1))
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "create_investment", StepCreateInvestment.String())
	assert.Equal(t, "step(42)", Step(42).String())
}
