package botengine

import (
	"regexp"
	"strings"

	domainMedia "github.com/AzielCF/az-aiwa/domains/media"
)

var (
	documentStopWords = regexp.MustCompile(`(?i)\b(kirimkan|file|tolong|cari|dokumen|pdf|unduh|download|kirim)\b`)
	imageStopWords    = regexp.MustCompile(`(?i)\b(kirimkan|gambar|image|foto|tolong|cari|kirim)\b`)
)

var documentMimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"doc":  "application/msword",
}

// CleanQuery strips request verbs and media nouns from a user message,
// leaving the words that identify the asset. Result is lower-case.
func CleanQuery(kind domainMedia.Kind, body string) string {
	re := documentStopWords
	if kind == domainMedia.KindImage {
		re = imageStopWords
	}
	cleaned := re.ReplaceAllString(body, "")
	return strings.ToLower(strings.Join(strings.Fields(cleaned), " "))
}

// NormalizeForMatch lower-cases and turns separators into spaces so
// "laporan_tahunan" matches "laporan tahunan". Images also treat "-" as a separator.
func NormalizeForMatch(kind domainMedia.Kind, s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "_", " ")
	if kind == domainMedia.KindImage {
		s = strings.ReplaceAll(s, "-", " ")
	}
	return s
}

func MimeTypeFor(kind domainMedia.Kind, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if kind == domainMedia.KindImage {
		if ext == "" {
			return "image/jpeg"
		}
		if ext == "jpg" {
			return "image/jpeg"
		}
		return "image/" + ext
	}
	if mt, ok := documentMimeTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// FileNameFor builds the name WhatsApp shows for the attachment.
func FileNameFor(asset domainMedia.Asset) string {
	ext := strings.TrimPrefix(asset.FileExtension, ".")
	if ext == "" {
		if asset.Kind == domainMedia.KindImage {
			ext = "jpg"
		} else {
			ext = "pdf"
		}
	}
	return asset.Title + "." + ext
}
