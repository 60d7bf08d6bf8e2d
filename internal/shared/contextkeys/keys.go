package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "cosmosdb-wrapper context key " + string(c)
}

// RequestIDKey is the key for the per-request correlation ID in context.Context
const RequestIDKey = contextKey("requestID")

// DatabaseKey is the key for the database name an operation targets
const DatabaseKey = contextKey("database")

// ContainerKey is the key for the container name an operation targets
const ContainerKey = contextKey("container")

// ComponentKey is the key for the component emitting a log line
const ComponentKey = contextKey("component")

// OperationKey is the key for the helper operation being executed
const OperationKey = contextKey("operation")
