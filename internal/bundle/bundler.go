package bundle

import (
	"context"
	"fmt"
	"time"

	"homefolio/internal/fetch"
	"homefolio/internal/render"
	"homefolio/internal/storage"
	"homefolio/pkg/logger"
	"homefolio/store"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Summary counts what happened to one property's attachments.
type Summary struct {
	Appended int
	Skipped  int
	Pages    int
}

type Bundler struct {
	signer  storage.Signer
	fetcher Fetcher
	ttl     time.Duration
}

func NewBundler(signer storage.Signer, fetcher Fetcher, ttl time.Duration) *Bundler {
	return &Bundler{signer: signer, fetcher: fetcher, ttl: ttl}
}

// Bundle appends each attachment to asm in stored order, one at a time. A
// failing attachment is logged and skipped; it never affects the others.
func (b *Bundler) Bundle(ctx context.Context, asm *Assembly, atts []store.AttachmentRecord) Summary {
	log := logger.FromContext(ctx)
	var sum Summary

	for _, att := range atts {
		pages, err := b.appendOne(ctx, asm, att)
		if err != nil {
			sum.Skipped++
			log.Warnw("Skipping attachment", "attachmentId", att.ID, "name", att.Name, "error", err)
			continue
		}
		sum.Appended++
		sum.Pages += pages
	}

	if len(atts) > 0 {
		log.Infow("Bundled attachments", "appended", sum.Appended, "skipped", sum.Skipped, "pages", sum.Pages)
	}
	return sum
}

func (b *Bundler) appendOne(ctx context.Context, asm *Assembly, att store.AttachmentRecord) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("panic while embedding: %v", r)
		}
	}()

	url, err := b.signer.SignedURL(ctx, att.StorageRef, b.ttl)
	if err != nil {
		return 0, fmt.Errorf("sign: %w", err)
	}
	resp, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	switch mt := resp.MediaType(); mt {
	case "application/pdf":
		return asm.AppendPDF(resp.Body)
	case "image/png", "image/jpeg", "image/jpg", "image/webp":
		img, err := render.DecodeImage(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("decode image: %w", err)
		}
		render.AddImagePage(asm, img)
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported content type %q", mt)
	}
}
