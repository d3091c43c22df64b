package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tablebrowser/internal/logging"
)

// ApplyEdit rewrites the row identified by original with changes.
func (s *Service) ApplyEdit(ctx context.Context, id TableIdentity, original, changes RowSnapshot, opts MutationOptions) (*MutationOutcome, error) {
	return s.Mutate(ctx, id, MutationRequest{
		Kind:     MutationUpdate,
		Original: original,
		Changes:  changes,
		Options:  opts,
	})
}

// DeleteRow deletes the row identified by original.
func (s *Service) DeleteRow(ctx context.Context, id TableIdentity, original RowSnapshot, opts MutationOptions) (*MutationOutcome, error) {
	return s.Mutate(ctx, id, MutationRequest{
		Kind:     MutationDelete,
		Original: original,
		Options:  opts,
	})
}

// DropTable drops the table. Callers are responsible for confirmation.
// The outcome carries NavigateAway and no refreshed view.
func (s *Service) DropTable(ctx context.Context, id TableIdentity) (*MutationOutcome, error) {
	return s.Mutate(ctx, id, MutationRequest{Kind: MutationDropTable})
}

// CheckDropConfirmation accepts the table name, or database.table, typed
// back by the operator.
func CheckDropConfirmation(id TableIdentity, typed string) error {
	typed = strings.TrimSpace(typed)
	if typed == "" || (typed != id.Table && typed != id.String()) {
		return ErrDropNotConfirmed
	}
	return nil
}

// Mutate runs a single mutation through the coordinator:
//
//  1. plan the statement (no engine I/O on invalid input)
//  2. take the table's mutation lock
//  3. preflight: verify columns and count matching rows
//  4. execute on a context detached from caller cancellation
//  5. after acknowledgement, refresh page and stats concurrently
//
// When the engine rejects the statement, the returned outcome records the
// failed trace alongside the *EngineError.
func (s *Service) Mutate(ctx context.Context, id TableIdentity, req MutationRequest) (*MutationOutcome, error) {
	stmt, predicate, err := s.planMutation(id, req, nil)
	if err != nil {
		return nil, err
	}

	outcome := &MutationOutcome{
		OperationID: s.operationID(ctx),
		Kind:        req.Kind,
		Table:       id,
		Statement:   stmt,
		Matched:     -1,
		Trace:       []MutationState{StateIdle},
	}
	log := logging.WithFields(ctx,
		"operation_id", outcome.OperationID,
		"table", id.String(),
		"kind", req.Kind,
	)

	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if req.Kind != MutationDropTable {
		stmt, err = s.preflight(ctx, id, req, predicate, outcome)
		if err != nil {
			log.Info("mutation refused", "error", err, "matched", outcome.Matched)
			return nil, err
		}
		outcome.Statement = stmt
	}

	start := s.now()
	outcome.Trace = append(outcome.Trace, StateExecuting)
	log.Info("mutation submitted", "statement", stmt)

	execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.MutationTimeout)
	err = s.engine.Exec(execCtx, stmt)
	cancel()
	outcome.Elapsed = s.now().Sub(start)

	if err != nil {
		engErr := NewEngineError(stmt, err)
		outcome.Trace = append(outcome.Trace, StateFailed, StateIdle)
		log.Error("mutation failed", "error", engErr, "elapsed", outcome.Elapsed)
		s.auditMutation(ctx, outcome, engErr)
		return outcome, engErr
	}

	outcome.Trace = append(outcome.Trace, StateSucceeded)
	log.Info("mutation acknowledged", "elapsed", outcome.Elapsed)
	s.auditMutation(ctx, outcome, nil)

	if req.Kind == MutationDropTable {
		outcome.NavigateAway = true
		outcome.Trace = append(outcome.Trace, StateIdle)
		return outcome, nil
	}

	outcome.Trace = append(outcome.Trace, StateRefreshing)
	limit, err := s.PageLimit(req.Options.RefreshLimit)
	if err != nil {
		limit = s.cfg.DefaultPageLimit
	}
	view, err := s.LoadView(ctx, id, limit)
	if err != nil {
		// The mutation stands; only the reread failed.
		outcome.RefreshError = err.Error()
		log.Warn("refresh after mutation failed", "error", err)
	} else {
		outcome.View = view
	}
	outcome.Trace = append(outcome.Trace, StateIdle)

	return outcome, nil
}

// planMutation validates the request and returns the statement plus, for
// row mutations, the equality predicate. columns, when known, type the
// predicate's literals.
func (s *Service) planMutation(id TableIdentity, req MutationRequest, columns []ColumnMeta) (string, string, error) {
	if err := id.Validate(); err != nil {
		return "", "", err
	}

	var opts []MutationOption
	if s.cfg.MutationsSync > 0 {
		opts = append(opts, WithMutationsSync(s.cfg.MutationsSync))
	}

	switch req.Kind {
	case MutationUpdate:
		predicate, err := BuildTypedEqualityPredicate(req.Original, columns)
		if err != nil {
			return "", "", err
		}
		assignments, err := BuildAssignments(req.Changes)
		if err != nil {
			return "", "", err
		}
		stmt, err := PlanUpdate(id, predicate, assignments, opts...)
		return stmt, predicate, err

	case MutationDelete:
		predicate, err := BuildTypedEqualityPredicate(req.Original, columns)
		if err != nil {
			return "", "", err
		}
		stmt, err := PlanDelete(id, predicate, opts...)
		return stmt, predicate, err

	case MutationDropTable:
		stmt, err := PlanDrop(id)
		return stmt, "", err
	}

	return "", "", fmt.Errorf("unknown mutation kind %q", req.Kind)
}

// preflight checks the snapshot against the live table before executing.
// When columns are verified, the statement is replanned with their types
// and returned; otherwise the untyped plan stands.
func (s *Service) preflight(ctx context.Context, id TableIdentity, req MutationRequest, predicate string, outcome *MutationOutcome) (string, error) {
	stmt := outcome.Statement
	if s.cfg.VerifyColumns {
		cols, err := s.LoadColumns(ctx, id)
		if err != nil {
			return "", err
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		if err := CheckColumns(req.Original, names); err != nil {
			return "", err
		}
		if err := CheckChangeColumns(req.Changes, names); err != nil {
			return "", err
		}
		if stmt, predicate, err = s.planMutation(id, req, cols); err != nil {
			return "", err
		}
	}

	if !s.cfg.VerifyUnique {
		return stmt, nil
	}

	matched, err := s.countMatches(ctx, id, predicate)
	if err != nil {
		return "", err
	}
	outcome.Matched = matched

	switch {
	case matched == 0:
		return "", ErrSnapshotNotFound
	case matched > 1:
		warning := &AmbiguousMutationWarning{Matched: matched}
		if !req.Options.AllowAmbiguous {
			return "", warning
		}
		outcome.Warning = warning
	}
	return stmt, nil
}

func (s *Service) countMatches(ctx context.Context, id TableIdentity, predicate string) (int64, error) {
	stmt, err := PlanMatchCount(id, predicate)
	if err != nil {
		return 0, err
	}
	result, err := s.execute(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, errors.New("match count returned no rows")
	}
	n, err := toUint64(result.Rows[0][0].Value)
	if err != nil {
		return 0, fmt.Errorf("match count: %w", err)
	}
	return int64(n), nil
}

func (s *Service) auditMutation(ctx context.Context, outcome *MutationOutcome, err error) {
	action := ActionRowUpdate
	switch outcome.Kind {
	case MutationDelete:
		action = ActionRowDelete
	case MutationDropTable:
		action = ActionTableDrop
	}
	s.LogAudit(ctx, AuditLogParams{
		OperationID: outcome.OperationID,
		Action:      action,
		Table:       outcome.Table,
		Statement:   outcome.Statement,
		Matched:     outcome.Matched,
		Err:         err,
		Elapsed:     outcome.Elapsed,
	})
}
