package controllers

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/sellforge/sellforge/app/models"
	"github.com/sellforge/sellforge/internal/pkg/env"
	"github.com/sellforge/sellforge/internal/pkg/metrics/counter"
	"github.com/sellforge/sellforge/internal/pkg/security"
	"github.com/sellforge/sellforge/internal/pkg/storage"
	"github.com/sellforge/sellforge/internal/pkg/usercontext"
)

const downloadLinkTTL = 15 * time.Minute

// HandleListDownloads returns the caller's download grants with their
// remaining-use state.
func HandleListDownloads(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	grants, err := repos.Fulfillment.ListGrantsByUser(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "download_list_failed"})
	}

	now := time.Now()
	items := make([]fiber.Map, 0, len(grants))
	for i := range grants {
		grant := &grants[i]
		item := fiber.Map{
			"token":          grant.Token,
			"downloadable":   grant.CanDownload(now),
			"max_downloads":  grant.MaxDownloads,
			"download_count": grant.DownloadCount,
			"expires_at":     grant.ExpiresAt,
		}
		if grant.Asset != nil {
			item["title"] = grant.Asset.Title
			item["pending"] = grant.Asset.IsPending
			item["file_size_bytes"] = grant.Asset.FileSizeBytes
			item["version"] = grant.Asset.VersionLabel
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"downloads": items})
}

// HandleRedeemDownload exchanges a grant token for a time-limited download
// URL and counts the use. The grant token itself is the capability; no API
// key is required.
func HandleRedeemDownload(c *fiber.Ctx) error {
	grant, err := repos.Fulfillment.GetGrantByToken(c.Params("token"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "grant_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "grant_lookup_failed"})
	}

	now := time.Now()
	if grant.Asset == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "asset_missing"})
	}
	if grant.Asset.IsPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "asset_pending", "reason": grant.Asset.PendingReason})
	}
	if !grant.CanDownload(now) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "grant_exhausted"})
	}

	url, err := downloadURL(c.Context(), grant)
	if err != nil {
		log.Printf("download url for grant %d failed: %v", grant.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "download_unavailable"})
	}

	if err := repos.Fulfillment.RegisterDownload(grant.ID, now); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "download_count_failed"})
	}
	if cerr := counter.AddAssetDownload(grant.AssetID); cerr != nil {
		log.Printf("asset download counter failed: %v", cerr)
	}

	if c.QueryBool("redirect", false) {
		return c.Redirect(url, fiber.StatusFound)
	}
	return c.JSON(fiber.Map{
		"url":        url,
		"expires_at": now.Add(downloadLinkTTL),
		"remaining":  remainingDownloads(grant.MaxDownloads, grant.DownloadCount+1),
	})
}

// HandleDownloadFile serves an asset from local disk for deployments without
// an object store. The signed token authorizes one grant/asset pair and is
// only minted by the redeem endpoint.
func HandleDownloadFile(c *fiber.Ctx) error {
	secret := env.GetEnv("DOWNLOAD_TOKEN_SECRET", "")
	claims, err := security.VerifyDownloadToken(c.Params("token"), secret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_download_token"})
	}

	asset, err := repos.Catalog.GetAssetByID(claims.AssetID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "asset_not_found"})
	}

	baseDir := env.GetEnv("ASSET_LOCAL_DIR", "./data/assets")
	return c.Download(filepath.Join(baseDir, asset.FilePath), asset.Title)
}

// downloadURL prefers a presigned object store URL and falls back to a
// locally signed link when no store is configured.
func downloadURL(ctx context.Context, grant *models.DownloadGrant) (string, error) {
	if client := storage.DefaultClient(); client != nil {
		return client.PresignAssetDownload(ctx, grant.Asset, downloadLinkTTL)
	}

	secret := env.GetEnv("DOWNLOAD_TOKEN_SECRET", "")
	token, err := security.GenerateDownloadToken(grant.ID, grant.AssetID, grant.UserID, downloadLinkTTL, secret)
	if err != nil {
		return "", err
	}
	baseURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080"), "/")
	return baseURL + "/downloads/file/" + token, nil
}

func remainingDownloads(max, used int) int {
	if max <= 0 {
		return -1
	}
	left := max - used
	if left < 0 {
		return 0
	}
	return left
}
