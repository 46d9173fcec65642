package usecase

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

type Email struct {
	To          []string
	From        string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	Attachments []EmailAttachment
}

type EmailAttachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// notifyOrphanAsset tells the admin about an asset left without an
// investment. Cleanup stays manual.
func (u Usecase) notifyOrphanAsset(ctx context.Context, a Asset, cause error) {
	if u.mailProvider == nil || u.adminEmail == "" {
		return
	}

	body, err := u.buildOrphanAssetEmailBody(a, cause)
	if err != nil {
		u.logger.ErrorContext(ctx, "build orphan asset email failed", "asset_id", a.ID, "err", err)
		return
	}

	email := Email{
		To:      []string{u.adminEmail},
		From:    u.mailFrom,
		Subject: fmt.Sprintf("Orphaned %s listing: %s", a.Type(), a.Title),
		Body:    body,
	}
	if err := u.mailProvider.SendEmail(ctx, email); err != nil {
		u.logger.ErrorContext(ctx, "send orphan asset email failed", "asset_id", a.ID, "err", err)
	}
}

type OrphanAssetEmailData struct {
	Title       string
	CurrentYear string

	AssetType     string
	AssetID       string
	AssetTitle    string
	AssetLocation string
	ImageCount    int
	Cause         string
	QRCodeURL     string
}

//go:embed templates/*
var templates embed.FS

func (u Usecase) buildOrphanAssetEmailBody(a Asset, cause error) (string, error) {
	tmpl, err := template.
		New("base.html").
		Funcs(template.FuncMap{
			"safeURL": func(s string) template.URL {
				return template.URL(s)
			},
		}).
		ParseFS(
			templates,
			"templates/base.html",
			"templates/orphan_asset.html",
		)
	if err != nil {
		return "", err
	}

	png, _ := qrcode.Encode(a.ID.String(), qrcode.Low, 128)
	data := OrphanAssetEmailData{
		Title:         "Listing needs attention",
		CurrentYear:   u.now().Format("2006"),
		AssetType:     string(a.Type()),
		AssetID:       a.ID.String(),
		AssetTitle:    a.Title,
		AssetLocation: a.Location,
		ImageCount:    len(a.Images),
		Cause:         cause.Error(),
		QRCodeURL:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// AssetQRCode encodes the public listing URL of an asset as a PNG.
func (u Usecase) AssetQRCode(ctx context.Context, t AssetType, id uuid.UUID, baseURL string, size int) ([]byte, error) {
	a, err := u.repo.GetAssetByID(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	link := fmt.Sprintf("%s/%ss/%s", baseURL, a.Type(), a.ID)
	return qrcode.Encode(link, qrcode.Medium, size)
}
