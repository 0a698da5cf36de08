package botengine

import (
	"strings"

	domainIntent "github.com/AzielCF/az-aiwa/domains/intent"
)

// KeywordRule maps a set of substrings to an intent.
type KeywordRule struct {
	Intent   domainIntent.Intent
	Keywords []string
}

// KeywordTable is evaluated in order; the first rule with a matching keyword wins.
type KeywordTable []KeywordRule

// DefaultKeywordTable holds the Indonesian/English triggers. Listing rules
// come before the single-item rules they overlap with ("daftar gambar"
// also contains "gambar").
var DefaultKeywordTable = KeywordTable{
	{Intent: domainIntent.ListImages, Keywords: []string{"daftar gambar", "list gambar", "gambar tersedia", "lihat gambar"}},
	{Intent: domainIntent.ImageRequest, Keywords: []string{"gambar", "image", "foto"}},
	{Intent: domainIntent.ListDocuments, Keywords: []string{"daftar dokumen", "list dokumen", "dokumen tersedia"}},
	{Intent: domainIntent.DocumentRequest, Keywords: []string{"pdf", "dokumen", "file", "unduh", "download"}},
}

// KeywordRouter classifies by case-insensitive substring match.
type KeywordRouter struct {
	table KeywordTable
}

func NewKeywordRouter(table KeywordTable) *KeywordRouter {
	if table == nil {
		table = DefaultKeywordTable
	}
	normalized := make(KeywordTable, 0, len(table))
	for _, rule := range table {
		kws := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		normalized = append(normalized, KeywordRule{Intent: rule.Intent, Keywords: kws})
	}
	return &KeywordRouter{table: normalized}
}

func (r *KeywordRouter) Classify(body string) domainIntent.Intent {
	lower := strings.ToLower(body)
	if strings.TrimSpace(lower) == "" {
		return domainIntent.AgentQuery
	}
	for _, rule := range r.table {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Intent
			}
		}
	}
	return domainIntent.AgentQuery
}
