package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldRunID     = "run_id"
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldEvents    = "events"
	FieldSelected  = "selected"
	FieldFareTotal = "fare_total"
	FieldAmount    = "amount"
	FieldStatus    = "status"
	FieldBackend   = "backend"
	FieldSink      = "sink"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentDriver  = "driver"
	ComponentWorker  = "worker"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentHistory = "history"
	ComponentMetrics = "metrics"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpFetch    = "fetch"
	OpParse    = "parse"
	OpFlag     = "flag"
	OpApply    = "apply"
	OpRecord   = "record"
	OpExtract  = "extract"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMonth adds year and month fields
func (f LogFields) WithMonth(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithRunID adds the month run identifier
func (f LogFields) WithRunID(id string) LogFields {
	if id != "" {
		f[FieldRunID] = id
	}
	return f
}

// WithSelection adds event and selection counts
func (f LogFields) WithSelection(events, selected int, fareTotal string) LogFields {
	f[FieldEvents] = events
	f[FieldSelected] = selected
	f[FieldFareTotal] = fareTotal
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
