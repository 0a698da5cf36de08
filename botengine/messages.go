package botengine

// Messages holds every fixed text the bot sends on its own. Image and
// document variants mirror each other.
type Messages struct {
	Fallback string
	Apology  string

	DocumentNotFound    string
	DocumentListEmpty   string
	DocumentListHeader  string
	DocumentListBullet  string
	DocumentFound       string // %s = title
	DocumentSent        string
	DocumentSendFailed  string
	DocumentUploadError string
	DocumentError       string

	ImageNotFound    string
	ImageListEmpty   string
	ImageListHeader  string
	ImageListBullet  string
	ImageFound       string // %s = title
	ImageSent        string
	ImageSendFailed  string
	ImageUploadError string
	ImageError       string
}

var DefaultMessages = Messages{
	Fallback: "Maaf, sistem tidak dapat memproses permintaan Anda.",
	Apology:  "Maaf, saya sedang mengalami masalah. Coba lagi nanti.",

	DocumentNotFound:    "Maaf, dokumen tidak ditemukan.",
	DocumentListEmpty:   "Maaf, belum ada dokumen yang tersedia.",
	DocumentListHeader:  "📋 *Berikut daftar dokumen yang tersedia:*",
	DocumentListBullet:  "📄 ",
	DocumentFound:       "Saya sudah menemukan dokumen '%s'. Mohon tunggu sebentar...",
	DocumentSent:        "Dokumen sudah terkirim! Apakah ada yang bisa saya bantu lagi?",
	DocumentSendFailed:  "Gagal mengirim dokumen ke WhatsApp.",
	DocumentUploadError: "Gagal mengupload dokumen ke WhatsApp.",
	DocumentError:       "Terjadi kesalahan saat memproses permintaan Anda.",

	ImageNotFound:    "Maaf, gambar tidak ditemukan.",
	ImageListEmpty:   "Maaf, belum ada gambar yang tersedia.",
	ImageListHeader:  "📋 *Berikut daftar gambar yang tersedia:*",
	ImageListBullet:  "🖼️ ",
	ImageFound:       "Saya sudah menemukan gambar: *%s*. Mohon tunggu sebentar...",
	ImageSent:        "Gambar sudah terkirim! Apakah ada yang bisa saya bantu lagi?",
	ImageSendFailed:  "Gagal mengirim gambar ke WhatsApp.",
	ImageUploadError: "Gagal mengupload gambar ke WhatsApp.",
	ImageError:       "⚠️ Terjadi kesalahan saat mengambil gambar.",
}
