package log

import "github.com/shopspring/decimal"

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldQuery           = "query"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldUserAgent       = "user_agent"
	FieldSuccess         = "success"
	FieldError           = "error"
	FieldOperation       = "operation"
	FieldTransactionID   = "transaction_id"
	FieldTransactionType = "transaction_type"
	FieldAmount          = "amount"
	FieldCategory        = "category"
	FieldDivision        = "division"
	FieldStart           = "start"
	FieldEnd             = "end"
)

// Components
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentTransaction = "transaction"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentRateLimit   = "rate_limit"
	ComponentTrace       = "trace"
	ComponentBackend     = "backend"
	ComponentReport      = "report"
)

// Operations
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSummary  = "summary"
	OpReport   = "report"
	OpSync     = "sync"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields is an ordered builder for slog key/value pairs.
type LogFields struct {
	keys   []string
	values map[string]any
}

func NewFields() *LogFields {
	return &LogFields{values: make(map[string]any)}
}

func (f *LogFields) set(k string, v any) *LogFields {
	if _, ok := f.values[k]; !ok {
		f.keys = append(f.keys, k)
	}
	f.values[k] = v
	return f
}

// Get returns the value stored under key.
func (f *LogFields) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *LogFields) WithComponent(component string) *LogFields {
	return f.set(FieldComponent, component)
}

func (f *LogFields) WithRequestID(requestID string) *LogFields {
	return f.set(FieldRequestID, requestID)
}

func (f *LogFields) WithClientIP(ip string) *LogFields {
	return f.set(FieldClientIP, ip)
}

// WithError adds the error message; nil errors are skipped.
func (f *LogFields) WithError(err error) *LogFields {
	if err != nil {
		f.set(FieldError, err.Error())
	}
	return f
}

func (f *LogFields) WithOperation(op string) *LogFields {
	return f.set(FieldOperation, op)
}

// WithTransaction adds the identifying fields of a transaction.
func (f *LogFields) WithTransaction(id, typ string, amount decimal.Decimal, category string) *LogFields {
	f.set(FieldTransactionID, id)
	f.set(FieldTransactionType, typ)
	f.set(FieldAmount, amount.String())
	if category != "" {
		f.set(FieldCategory, category)
	}
	return f
}

func (f *LogFields) WithHTTPRequest(method, path, query, userAgent string) *LogFields {
	f.set(FieldMethod, method)
	f.set(FieldPath, path)
	if query != "" {
		f.set(FieldQuery, query)
	}
	if userAgent != "" {
		f.set(FieldUserAgent, userAgent)
	}
	return f
}

func (f *LogFields) WithHTTPResponse(statusCode int, durationMs int64) *LogFields {
	f.set(FieldStatusCode, statusCode)
	f.set(FieldDuration, durationMs)
	f.set(FieldSuccess, statusCode < 400)
	return f
}

// ToSlice converts the fields to slog args in insertion order.
func (f *LogFields) ToSlice() []any {
	out := make([]any, 0, len(f.keys)*2)
	for _, k := range f.keys {
		out = append(out, k, f.values[k])
	}
	return out
}
