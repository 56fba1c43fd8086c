package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	DefaultSessionTitle = "New Chat"
	SessionTitleMaxLen  = 50
	SessionTitleSuffix  = "..."

	ChatMessageMaxLen = 10000
)
