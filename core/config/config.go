package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	MCP        MCPConfig
	Database   DatabaseConfig
	Whatsapp   WhatsappConfig
	AI         AIConfig
	History    HistoryConfig
	WorkerPool WorkerPoolConfig
	Monitor    MonitorConfig
}

type AppConfig struct {
	Version   string
	Port      string
	Debug     bool
	LogFormat string
	BasePath  string
	StorePath string
	BasicAuth []string // user:secret pairs guarding /api; the webhook stays public
}

// MCPConfig configures the knowledge base MCP server (`mcp` command).
type MCPConfig struct {
	Port              string
	Host              string
	KnowledgeBasePath string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
	LedgerTTL       time.Duration
}

type WhatsappConfig struct {
	AccessToken     string
	PhoneNumberID   string
	VerifyToken     string
	AppSecret       string // verifies X-Hub-Signature-256 when set
	APIVersion      string
	APIBaseURL      string
	AllowedContacts []string
	HTTPTimeout     time.Duration
	SendRate        float64
}

// MCPServerRef points the agent at one remote tool server.
type MCPServerRef struct {
	Name string
	URL  string
}

type AIConfig struct {
	Provider           string
	Model              string
	APIKey             string
	BaseURL            string
	Timeout            time.Duration
	MaxToolSteps       int
	SystemPrompt       string
	SerializePerSender bool
	MCPServers         []MCPServerRef
	MCPTransport       string
}

type HistoryConfig struct {
	MaxTurns int // 0 keeps everything
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

// MonitorConfig sizes the in-memory event buffer behind /api/bot-monitor/stats.
type MonitorConfig struct {
	BufferSize int
	TTL        time.Duration // 0 keeps events until overwritten
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	storePath := getEnv("APP_STORE_PATH", "storages")

	appCfg := AppConfig{
		Version:   "v1.0.0",
		Port:      getEnv("APP_PORT", getEnv("PORT", "3000")),
		Debug:     getEnvBool("APP_DEBUG", getEnvBool("DEBUG_LOGGING", false)),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		BasePath:  getEnv("APP_BASE_PATH", ""),
		StorePath: storePath,
		BasicAuth: getEnvList("APP_BASIC_AUTH", nil),
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(storePath, "media.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "aiwa:"),
		LedgerTTL:       getEnvDuration("LEDGER_TTL", 10*time.Minute),
	}

	waCfg := WhatsappConfig{
		AccessToken:     getEnv("ACCESS_TOKEN", ""),
		PhoneNumberID:   getEnv("PHONE_NUMBER_ID", ""),
		VerifyToken:     getEnv("VERIFY_TOKEN", ""),
		AppSecret:       getEnv("WHATSAPP_APP_SECRET", ""),
		APIVersion:      getEnv("META_API_VERSION", "v21.0"),
		APIBaseURL:      strings.TrimSuffix(getEnv("META_API_BASE_URL", "https://graph.facebook.com"), "/"),
		AllowedContacts: getEnvList("WHATSAPP_ALLOWED_CONTACTS", getEnvList("ALLOWED_CONTACT", nil)),
		HTTPTimeout:     getEnvDuration("WHATSAPP_HTTP_TIMEOUT", 30*time.Second),
		SendRate:        getEnvFloat("WHATSAPP_SEND_RATE", 20),
	}

	provider := strings.ToLower(getEnv("AI_PROVIDER", "openrouter"))
	aiCfg := AIConfig{
		Provider:           provider,
		Model:              getEnv("AI_MODEL", defaultModel(provider)),
		APIKey:             getEnv("AI_API_KEY", providerAPIKey(provider)),
		BaseURL:            getEnv("AI_BASE_URL", ""),
		Timeout:            getEnvDuration("AI_TIMEOUT", 60*time.Second),
		MaxToolSteps:       getEnvInt("AI_MAX_TOOL_STEPS", 6),
		SystemPrompt:       getEnv("AI_SYSTEM_PROMPT", ""),
		SerializePerSender: getEnvBool("AI_SERIALIZE_PER_SENDER", false),
		MCPServers:         parseMCPServers(getEnvList("MCP_SERVERS", nil)),
		MCPTransport:       strings.ToLower(getEnv("MCP_TRANSPORT", "sse")),
	}

	cfg := &Config{
		App: appCfg,
		MCP: MCPConfig{
			Port:              getEnv("MCP_PORT", "8080"),
			Host:              getEnv("MCP_HOST", "localhost"),
			KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", filepath.Join("data", "json", "data.json")),
		},
		Database:   dbCfg,
		Whatsapp:   waCfg,
		AI:         aiCfg,
		History:    HistoryConfig{MaxTurns: getEnvInt("HISTORY_MAX_TURNS", 0)},
		WorkerPool: WorkerPoolConfig{Size: getEnvInt("MESSAGE_WORKER_POOL_SIZE", 20), QueueSize: getEnvInt("MESSAGE_WORKER_QUEUE_SIZE", 1000)},
		Monitor:    MonitorConfig{BufferSize: getEnvInt("BOT_MONITOR_BUFFER", 200), TTL: getEnvDuration("BOT_MONITOR_TTL", 0)},
	}

	Global = cfg
	return cfg, nil
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-2.5-flash"
	case "groq":
		return "qwen/qwen3-32b"
	case "ollama":
		return "qwen3:8b"
	case "openai":
		return "gpt-4o-mini"
	default:
		return "deepseek/deepseek-chat-v3-0324:free"
	}
}

func providerAPIKey(provider string) string {
	switch provider {
	case "gemini":
		return getEnv("GEMINI_API_KEY", "")
	case "groq":
		return getEnv("GROQ_API_KEY", "")
	case "openai":
		return getEnv("OPENAI_API_KEY", "")
	case "ollama":
		return ""
	default:
		return getEnv("OPENROUTER_API_KEY", "")
	}
}

// parseMCPServers reads entries shaped like name=url. An entry without a
// name is named after its position.
func parseMCPServers(entries []string) []MCPServerRef {
	var refs []MCPServerRef
	for i, e := range entries {
		name, url, ok := strings.Cut(e, "=")
		if !ok {
			url = name
			name = "mcp" + strconv.Itoa(i+1)
		}
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if url == "" {
			continue
		}
		refs = append(refs, MCPServerRef{Name: name, URL: url})
	}
	return refs
}
