// Package core provides the table browsing and mutation engine for a
// columnar OLAP database.
//
// This package contains all domain logic independent of any UI or transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification. The database itself is consumed through the [Engine]
// interface; concrete drivers live in internal/engine.
//
// # Architecture
//
// The package is organized around six components:
//
//   - Value Encoder: [EncodeLiteral] and [EncodeIdentifier] render Go values
//     and names as engine-safe SQL text. Every interpolation goes through them.
//   - Predicate Builder: [BuildEqualityPredicate] turns a [RowSnapshot] into a
//     WHERE clause matching every column of the row.
//   - Query Planner: pure functions ([PlanPageRead], [PlanStatsRead],
//     [PlanUpdate], [PlanDelete], [PlanDrop], [PlanExport]) that validate
//     input and produce statements. Nothing reaches the engine unvalidated.
//   - Mutation Coordinator: [Service.ApplyEdit], [Service.DeleteRow] and
//     [Service.DropTable] run a statement, wait for acknowledgement and only
//     then refresh the page and stats.
//   - Export Streamer: [Service.ExportTable] writes a bounded CSV stream.
//   - Stats Aggregator: [Service.LoadStats] summarises system.parts.
//
// # Row Identity
//
// Columnar tables have no primary key that identifies a single physical row,
// so a row is identified by the full snapshot of values last read for it.
// The equality predicate matches every row holding identical values; a
// preflight count ([PlanMatchCount]) refuses to mutate more than one row
// unless the caller opts in with [MutationOptions.AllowAmbiguous].
//
// # Mutation Visibility
//
// ALTER TABLE ... UPDATE and DELETE are asynchronous in the engine. The
// planner appends SETTINGS mutations_sync when configured so that the
// acknowledgement implies the change is materialised before the refresh read.
//
// # Error Handling
//
// Errors are typed ([EncodingError], [InvalidLimitError], [EngineError],
// [ExportError], [AmbiguousMutationWarning], ...) and wrapped with %w.
// Technical errors are mapped to user-facing messages using [MapError].
// Each error category has a code for support reference:
//
//   - ENC001-ENC003: Value or identifier encoding
//   - PLN001-PLN004: Rejected by the planner
//   - MUT001-MUT003: Row targeting
//   - ENG001-ENG007: Engine errors
//   - EXP001-EXP002: Export errors
//   - REQ001-REQ004: Request lifecycle and drop confirmation
//
// # Audit Logging
//
// Every mutation, drop and export is recorded as a structured log entry with
// a severity level:
//
//   - Medium: Cell edits
//   - High: Row deletions, exports
//   - Critical: Table drops
package core
