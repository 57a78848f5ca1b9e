package jcs

// Pinned schema tags. New heads or wire shapes are never layered onto an
// existing tag; a breaking change always bumps the tag and the driver
// rejects the old one by name (see SchemaMismatchError).
const (
	SchemaX07AST        = "x07.x07ast@0.3.0"
	SchemaDiagnostics   = "x07.x07diag@0.1.0"
	SchemaTestReport    = "x07.x07test@0.3.0"
	SchemaHostRunner    = "x07-host-runner.report@0.3.0"
	SchemaRunReport     = "x07.run.report@0.1.0"
	SchemaProject       = "x07.project@0.2.0"
	SchemaLockfile      = "x07.lock@0.2.0"
	SchemaBundleReport  = "x07.bundle.report@0.1.0"
	SchemaPolicy        = "x07.run-os-policy@0.1.0"
	SchemaBuildReport   = "x07.build.report@0.1.0"
	SchemaPatchedResult = "x07.patch.report@0.1.0"
)
