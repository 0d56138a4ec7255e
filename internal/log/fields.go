package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldKind       = "kind"
	FieldTxID       = "transaction_id"
	FieldCategoryID = "category_id"
	FieldCategory   = "category"
	FieldAmount     = "amount_cents"
	FieldStartDate  = "start_date"
	FieldEndDate    = "end_date"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentStorage   = "storage"
	ComponentFinance   = "finance"
	ComponentEvents    = "events"
	ComponentBackend   = "backend"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpResolve  = "resolve"
	OpSummary  = "summary"
	OpRegister = "register"
	OpLogin    = "login"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
