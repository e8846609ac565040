package tg

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
	"github.com/olekv/tgmirror/internal/media"
	"github.com/olekv/tgmirror/internal/remote"
)

// mapAttachment extracts downloadable media from a message. Non-file media
// (polls, geo, contacts, webpage previews) yields nil and the message is
// stored text-only.
func (c *Client) mapAttachment(m *tg.Message) *remote.Attachment {
	md, ok := m.GetMedia()
	if !ok {
		return nil
	}

	switch mm := md.(type) {
	case *tg.MessageMediaPhoto:
		ph, ok := mm.GetPhoto()
		if !ok {
			return nil
		}
		photo, ok := ph.(*tg.Photo)
		if !ok {
			return nil
		}
		thumb, ok := largestPhotoSize(photo.Sizes)
		if !ok {
			return nil
		}
		return &remote.Attachment{
			Meta: media.Attachment{Kind: media.KindPhoto, MessageID: int64(m.ID)},
			Source: &fileSource{
				client: c,
				loc: &tg.InputPhotoFileLocation{
					ID:            photo.ID,
					AccessHash:    photo.AccessHash,
					FileReference: photo.FileReference,
					ThumbSize:     thumb,
				},
			},
		}

	case *tg.MessageMediaDocument:
		dc, ok := mm.GetDocument()
		if !ok {
			return nil
		}
		doc, ok := dc.(*tg.Document)
		if !ok {
			return nil
		}
		return &remote.Attachment{
			Meta: media.Attachment{
				Kind:       media.KindDocument,
				MessageID:  int64(m.ID),
				DocumentID: doc.ID,
				MimeType:   doc.MimeType,
				Size:       doc.Size,
				FileName:   documentFileName(doc),
			},
			Source: &fileSource{
				client: c,
				loc: &tg.InputDocumentFileLocation{
					ID:            doc.ID,
					AccessHash:    doc.AccessHash,
					FileReference: doc.FileReference,
				},
			},
		}
	}
	return nil
}

// largestPhotoSize picks the thumb type of the biggest stored rendition.
func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, bool) {
	var (
		bestType  string
		bestBytes int
		found     bool
	)
	for _, s := range sizes {
		switch sz := s.(type) {
		case *tg.PhotoSize:
			if sz.Size >= bestBytes {
				bestType, bestBytes, found = sz.Type, sz.Size, true
			}
		case *tg.PhotoSizeProgressive:
			if n := len(sz.Sizes); n > 0 && sz.Sizes[n-1] >= bestBytes {
				bestType, bestBytes, found = sz.Type, sz.Sizes[n-1], true
			}
		case *tg.PhotoCachedSize:
			if len(sz.Bytes) >= bestBytes {
				bestType, bestBytes, found = sz.Type, len(sz.Bytes), true
			}
		}
	}
	return bestType, found
}

func documentFileName(doc *tg.Document) string {
	for _, attr := range doc.Attributes {
		if fn, ok := attr.(*tg.DocumentAttributeFilename); ok {
			return fn.FileName
		}
	}
	return ""
}

// fileSource downloads one Telegram file location to a local path.
type fileSource struct {
	client *Client
	loc    tg.InputFileLocationClass
}

func (s *fileSource) DownloadTo(ctx context.Context, absPath string) error {
	if _, err := s.client.dl.Download(s.client.raw, s.loc).ToPath(ctx, absPath); err != nil {
		return fmt.Errorf("download to %s: %w", absPath, err)
	}
	return nil
}
