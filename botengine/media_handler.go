package botengine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainMedia "github.com/AzielCF/az-aiwa/domains/media"
	domainOutbound "github.com/AzielCF/az-aiwa/domains/outbound"
	pkgError "github.com/AzielCF/az-aiwa/pkg/error"
	"github.com/sirupsen/logrus"
)

// ListLimit caps how many titles a listing shows.
const ListLimit = 10

// MediaHandler answers list and send requests for stored documents and images.
// It never touches conversation history.
type MediaHandler struct {
	repo     domainMedia.IMediaRepository
	outbound domainOutbound.IOutboundClient
	messages Messages
}

func NewMediaHandler(repo domainMedia.IMediaRepository, outbound domainOutbound.IOutboundClient, messages Messages) *MediaHandler {
	return &MediaHandler{repo: repo, outbound: outbound, messages: messages}
}

type kindTexts struct {
	notFound, listEmpty, listHeader, bullet, found, sent, sendFailed, uploadError string
}

func (h *MediaHandler) texts(kind domainMedia.Kind) kindTexts {
	m := h.messages
	if kind == domainMedia.KindImage {
		return kindTexts{m.ImageNotFound, m.ImageListEmpty, m.ImageListHeader, m.ImageListBullet, m.ImageFound, m.ImageSent, m.ImageSendFailed, m.ImageUploadError}
	}
	return kindTexts{m.DocumentNotFound, m.DocumentListEmpty, m.DocumentListHeader, m.DocumentListBullet, m.DocumentFound, m.DocumentSent, m.DocumentSendFailed, m.DocumentUploadError}
}

// HandleList sends up to ListLimit titles of the given kind.
func (h *MediaHandler) HandleList(ctx context.Context, kind domainMedia.Kind, recipientID string) error {
	txt := h.texts(kind)

	titles, err := h.repo.ListTitles(ctx, kind, ListLimit)
	if err != nil {
		return fmt.Errorf("list %s titles: %w", kind, err)
	}
	if len(titles) == 0 {
		return h.outbound.SendText(ctx, recipientID, txt.listEmpty)
	}

	var b strings.Builder
	b.WriteString(txt.listHeader)
	for _, title := range titles {
		b.WriteString("\n")
		b.WriteString(txt.bullet)
		b.WriteString(title)
	}
	return h.outbound.SendText(ctx, recipientID, b.String())
}

// HandleRequest finds the asset the user asked for and sends it. Outcomes the
// user should hear about (not found, upload or send failure) are answered here
// and return nil; repository and transport errors are returned.
func (h *MediaHandler) HandleRequest(ctx context.Context, kind domainMedia.Kind, recipientID, body string) error {
	txt := h.texts(kind)
	log := logrus.WithFields(logrus.Fields{"kind": kind, "recipient": suffix(recipientID)})

	query := CleanQuery(kind, body)
	if query == "" {
		log.Info("[MEDIA] Query is empty after cleaning")
		return h.outbound.SendText(ctx, recipientID, txt.notFound)
	}

	asset, err := h.repo.Find(ctx, kind, query)
	if err != nil {
		var nf pkgError.NotFoundError
		if errors.As(err, &nf) {
			log.WithField("query", query).Info("[MEDIA] No matching asset")
			return h.outbound.SendText(ctx, recipientID, txt.notFound)
		}
		return fmt.Errorf("find %s: %w", kind, err)
	}

	if err := h.outbound.SendText(ctx, recipientID, fmt.Sprintf(txt.found, asset.Title)); err != nil {
		return err
	}

	mediaID := asset.MediaID
	if mediaID == "" {
		log.WithField("title", asset.Title).Info("[MEDIA] No media_id yet, uploading")
		mediaID, err = h.outbound.UploadMedia(ctx, FileNameFor(asset), MimeTypeFor(kind, asset.FileExtension), asset.FileData)
		if err != nil || mediaID == "" {
			log.WithError(err).Error("[MEDIA] Upload failed")
			return h.outbound.SendText(ctx, recipientID, txt.uploadError)
		}
		if err := h.repo.SaveMediaID(ctx, kind, asset.ID, mediaID); err != nil {
			// the upload is still usable for this send
			log.WithError(err).Warn("[MEDIA] Failed to persist media_id")
		}
	}

	if kind == domainMedia.KindImage {
		err = h.outbound.SendImage(ctx, recipientID, mediaID)
	} else {
		err = h.outbound.SendDocument(ctx, recipientID, mediaID, FileNameFor(asset))
	}
	if err != nil {
		log.WithError(err).Error("[MEDIA] Send failed")
		return h.outbound.SendText(ctx, recipientID, txt.sendFailed)
	}

	if desc := strings.TrimSpace(asset.Description); desc != "" {
		if err := h.outbound.SendText(ctx, recipientID, desc); err != nil {
			return err
		}
	}
	log.WithField("title", asset.Title).Info("[MEDIA] Asset sent")
	return h.outbound.SendText(ctx, recipientID, txt.sent)
}

func suffix(id string) string {
	if len(id) <= 4 {
		return id
	}
	return "..." + id[len(id)-4:]
}
