package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUsername   = "username"
	FieldFunnelID   = "funnel_id"
	FieldSpendingID = "spending_id"
	FieldTokenKind  = "token_kind"
	FieldIssuedAt   = "iat"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentAuth     = "auth"
	ComponentStorage  = "storage"
	ComponentFunnel   = "funnel"
	ComponentSpending = "spending"
	ComponentPruner   = "pruner"
)

// Operations defines standard operation names.
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpRegister   = "register"
	OpLogin      = "login"
	OpRefresh    = "refresh"
	OpRevoke     = "revoke"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)
