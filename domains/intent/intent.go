package intent

type Intent string

const (
	ListImages      Intent = "list_images"
	ImageRequest    Intent = "image_request"
	ListDocuments   Intent = "list_documents"
	DocumentRequest Intent = "document_request"
	AgentQuery      Intent = "agent_query"
)

// IIntentRouter classifies a message body. Implementations must be pure.
type IIntentRouter interface {
	Classify(body string) Intent
}
