package logg

// Shared zap field names so log lines stay greppable across layers.
const (
	Layer     = "layer"
	Operation = "operation"
	URL       = "url"
	Selector  = "selector"
	Suite     = "suite"
	Check     = "check"
	Engine    = "engine"
	Path      = "path"
	RunID     = "run_id"
)
