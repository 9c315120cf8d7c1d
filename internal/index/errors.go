package index

// Op constants map to index RPC names for error context.
const (
	OpHealthCheck      = "HealthCheck"
	OpCollectionExists = "CollectionExists"
	OpCreateCollection = "CreateCollection"
	OpCount            = "Count"
	OpUpsert           = "Upsert"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
