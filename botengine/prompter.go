package botengine

import (
	"context"
	"sort"
	"strings"
	"time"

	domainAgent "github.com/AzielCF/az-aiwa/domains/agent"
	"github.com/sirupsen/logrus"
)

const toolsPlaceholder = "{tools}"

// DefaultSystemTemplate is used when AI_SYSTEM_PROMPT is empty.
const DefaultSystemTemplate = `Anda adalah Aiwa, asisten AI untuk karyawan perusahaan yang menjawab lewat WhatsApp.
Tools tersedia: {tools}
- Untuk sapaan, jawab dengan ramah tanpa memakai tools.
- Untuk pertanyaan faktual terstruktur, gunakan tool jawaban pasti; jika tidak ada hasil, gunakan pencarian semantik.
- Jika tidak ada informasi yang relevan, jawab: "Maaf, saya tidak memiliki informasi mengenai hal tersebut."
- Jawab singkat, dalam bahasa yang sama dengan pengguna.`

// Prompter se encarga de ensamblar la instrucción de sistema en cada invocación.
type Prompter struct {
	template string
	toolbox  domainAgent.IToolbox
	now      func() time.Time
}

// NewPrompter accepts a nil toolbox; the tool list then renders as "-".
func NewPrompter(template string, toolbox domainAgent.IToolbox) *Prompter {
	if strings.TrimSpace(template) == "" {
		template = DefaultSystemTemplate
	}
	return &Prompter{template: template, toolbox: toolbox, now: time.Now}
}

// BuildSystemInstruction renders the template with the current tool names.
func (p *Prompter) BuildSystemInstruction(ctx context.Context) string {
	tools := "-"
	if p.toolbox != nil {
		list, err := p.toolbox.ListTools(ctx)
		if err != nil {
			logrus.WithError(err).Warn("[PROMPTER] Could not list tools, rendering without them")
		} else if len(list) > 0 {
			names := make([]string, 0, len(list))
			for _, t := range list {
				names = append(names, t.Name)
			}
			sort.Strings(names)
			tools = strings.Join(names, ", ")
		}
	}

	out := strings.ReplaceAll(p.template, toolsPlaceholder, tools)
	return out + "\n\nTanggal hari ini: " + p.now().Format("2006-01-02")
}
