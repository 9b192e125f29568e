package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/fieldsales-backend/internal/domain"
	domainagg "github.com/yungbote/fieldsales-backend/internal/domain/aggregates"
	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

// MediaStore is the blob store visit photos are written to.
type MediaStore interface {
	Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// MediaFile is one uploaded photo. Open is called once per upload.
type MediaFile struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ItemFiles holds the photos of one batch item per slot.
type ItemFiles map[domain.MediaSlot][]MediaFile

var mediaFieldPattern = regexp.MustCompile(`^visit_(\d+)_(self_images|customer_images|cooler_images)$`)

// ParseMediaFieldName splits a multipart field name of the form visit_<i>_<slot>.
func ParseMediaFieldName(name string) (int, domain.MediaSlot, bool) {
	m := mediaFieldPattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, "", false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return idx, domain.MediaSlot(m[2]), true
}

// MediaLedger records every URL written for one item so a failed item can
// be rolled back.
type MediaLedger struct {
	mu   sync.Mutex
	urls []string
}

func (l *MediaLedger) Add(url string) {
	l.mu.Lock()
	l.urls = append(l.urls, url)
	l.mu.Unlock()
}

func (l *MediaLedger) URLs() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}

// ItemMedia is the upload result of one item. Slots only holds slots that
// received files.
type ItemMedia struct {
	Slots  map[domain.MediaSlot]*string
	Ledger *MediaLedger
}

type MediaUploader struct {
	log     *logger.Logger
	store   MediaStore
	metrics *observability.Metrics
	now     func() time.Time
}

func NewMediaUploader(baseLog *logger.Logger, store MediaStore, metrics *observability.Metrics) *MediaUploader {
	return &MediaUploader{
		log:     baseLog.With("service", "MediaUploader"),
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}
}

// UploadItem uploads every slot of one item. Slots run in parallel, files in
// a slot run in order. The ledger is returned even on error so partial
// uploads can be removed.
func (u *MediaUploader) UploadItem(ctx context.Context, index int, files ItemFiles) (ItemMedia, error) {
	out := ItemMedia{Slots: map[domain.MediaSlot]*string{}, Ledger: &MediaLedger{}}
	if len(files) == 0 {
		return out, nil
	}
	if u.store == nil {
		err := fmt.Errorf("media store not configured")
		return out, domainagg.NewError(domainagg.CodeUploadFailed, "visit.media", "Image upload failed: "+err.Error(), err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, slot := range domain.MediaSlots {
		slotFiles := files[slot]
		if len(slotFiles) == 0 {
			continue
		}
		slot := slot
		g.Go(func() error {
			urls := make([]string, 0, len(slotFiles))
			for _, f := range slotFiles {
				url, err := u.uploadOne(gctx, slot, f)
				if err != nil {
					u.metrics.IncMediaUpload(string(slot), "error")
					return fmt.Errorf("%s %q: %w", slot, f.Filename, err)
				}
				u.metrics.IncMediaUpload(string(slot), "success")
				out.Ledger.Add(url)
				urls = append(urls, url)
			}
			mu.Lock()
			out.Slots[slot] = domain.JoinMediaURLs(urls)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		u.log.Warn("Visit media upload failed", "index", index, "uploaded", len(out.Ledger.URLs()), "error", err)
		return out, domainagg.NewError(domainagg.CodeUploadFailed, "visit.media", "Image upload failed: "+err.Error(), err)
	}
	return out, nil
}

func (u *MediaUploader) uploadOne(ctx context.Context, slot domain.MediaSlot, f MediaFile) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("file has no content")
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	var body io.Reader = rc
	contentType := strings.TrimSpace(f.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		head := make([]byte, 512)
		n, err := io.ReadFull(rc, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return "", fmt.Errorf("read: %w", err)
		}
		head = head[:n]
		contentType = http.DetectContentType(head)
		body = io.MultiReader(bytes.NewReader(head), rc)
	}
	return u.store.Upload(ctx, body, u.objectKey(slot, f.Filename, contentType), contentType)
}

// objectKey is visits/<slot>/<yyyy>/<mm>/<uuid><ext>.
func (u *MediaUploader) objectKey(slot domain.MediaSlot, filename, contentType string) string {
	now := u.now().UTC()
	return fmt.Sprintf("visits/%s/%04d/%02d/%s%s", slot, now.Year(), int(now.Month()), uuid.New().String(), mediaExt(filename, contentType))
}

func mediaExt(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename))); ext != "" && len(ext) <= 6 {
		return ext
	}
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	default:
		return ""
	}
}
