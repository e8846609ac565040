package media

import (
	"fmt"
	"path"
	"strings"
)

// Bucket is one of the four media storage categories.
type Bucket string

const (
	BucketVoices  Bucket = "voices"
	BucketPhotos  Bucket = "photos"
	BucketUnder50 Bucket = "media_under_50"
	BucketPlus50  Bucket = "media_plus_50"
)

// AttachmentKind is the shape of a remote attachment as far as
// classification cares.
type AttachmentKind int

const (
	KindNone AttachmentKind = iota
	KindPhoto
	KindDocument
)

// Attachment is the metadata the classifier operates on. It carries no
// download reference; classification is pure.
type Attachment struct {
	Kind       AttachmentKind
	MessageID  int64
	DocumentID int64
	MimeType   string
	Size       int64
	FileName   string
}

// Classify maps attachment metadata to a bucket and a relative storage path.
// Deterministic, no I/O. ok is false when there is nothing to store.
// threshold is the byte boundary between the two generic buckets
// (inclusive on the under side).
func Classify(att Attachment, threshold int64) (bucket Bucket, relPath string, ok bool) {
	switch att.Kind {
	case KindPhoto:
		name := fmt.Sprintf("%d_photo.jpg", att.MessageID)
		return BucketPhotos, path.Join(string(BucketPhotos), name), true

	case KindDocument:
		mt := strings.ToLower(att.MimeType)
		if strings.HasPrefix(mt, "audio/") {
			name := fmt.Sprintf("%d%s", att.MessageID, audioExt(mt))
			return BucketVoices, path.Join(string(BucketVoices), name), true
		}
		bucket = BucketUnder50
		if att.Size > threshold {
			bucket = BucketPlus50
		}
		name := att.FileName
		if name == "" {
			name = fmt.Sprintf("%d_%d", att.MessageID, att.DocumentID)
		}
		return bucket, path.Join(string(bucket), name), true

	default:
		return "", "", false
	}
}

// audioExts maps the audio MIME types Telegram actually sends to file
// extensions. The table is fixed rather than read from the host's mime
// database so classification is identical on every machine.
var audioExts = map[string]string{
	"audio/ogg":    ".oga",
	"audio/opus":   ".opus",
	"audio/mpeg":   ".mp3",
	"audio/mp4":    ".m4a",
	"audio/aac":    ".aac",
	"audio/flac":   ".flac",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/amr":    ".amr",
	"audio/webm":   ".weba",
	"audio/x-midi": ".mid",
}

// audioExt derives a file extension from a lower-cased audio MIME type,
// falling back to .oga for unknown types (Telegram voice notes).
func audioExt(mt string) string {
	// Strip parameters like "; codecs=opus".
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if ext, ok := audioExts[mt]; ok {
		return ext
	}
	return ".oga"
}
