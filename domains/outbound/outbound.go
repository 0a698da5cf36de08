package outbound

import "context"

// IOutboundClient sends messages to a WhatsApp user.
type IOutboundClient interface {
	SendText(ctx context.Context, recipientID, body string) error
	SendImage(ctx context.Context, recipientID, mediaID string) error
	SendDocument(ctx context.Context, recipientID, mediaID, filename string) error
	UploadMedia(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}
