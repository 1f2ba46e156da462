package registry

import (
	"context"
	"fmt"

	"orgregistry/internal/core/apperror"
	"orgregistry/internal/core/id"
)

// DefaultMaxParentDepth bounds the parent-chain walk during cycle
// detection. Chains longer than this are treated as cyclic.
const DefaultMaxParentDepth = 50

// Checker verifies cross-record invariants against current repository
// state: name uniqueness among non-inactive records, parent existence
// and liveness, and hierarchy acyclicity.
//
// The repository's partial unique index remains the final authority on
// name uniqueness under concurrency; the checker exists to report the
// problem as a violation before any write is attempted.
type Checker struct {
	repo     Repository
	maxDepth int
}

// NewChecker creates a Checker. maxDepth <= 0 selects the default.
func NewChecker(repo Repository, maxDepth int) *Checker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxParentDepth
	}
	return &Checker{repo: repo, maxDepth: maxDepth}
}

// Check runs all integrity checks for a candidate record and collects
// every violation instead of stopping at the first one. excludeID is
// the record's own ID during edits, so it does not collide with itself.
// A non-nil error means a repository fault, not a rule violation.
func (c *Checker) Check(ctx context.Context, candidate *Organisation, excludeID *id.ID) ([]apperror.Violation, error) {
	var violations []apperror.Violation

	if candidate.Name != "" && candidate.Status != StatusInactive {
		v, err := c.checkDuplicateName(ctx, candidate.Name, excludeID)
		if err != nil {
			return nil, err
		}
		violations = append(violations, v...)
	}

	if candidate.ParentID != nil {
		v, err := c.checkParent(ctx, candidate, excludeID)
		if err != nil {
			return nil, err
		}
		violations = append(violations, v...)
	}

	return violations, nil
}

// CountDependents returns the number of external records still pointing
// at the organisation. Dependents never block deactivation; the count
// feeds the warning flag on the result.
func (c *Checker) CountDependents(ctx context.Context, refs ReferenceCounter, orgID id.ID) (int64, error) {
	count, err := refs.CountReferencesTo(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to count references to %s: %w", orgID, err)
	}
	return count, nil
}

func (c *Checker) checkDuplicateName(ctx context.Context, name string, excludeID *id.ID) ([]apperror.Violation, error) {
	existing, err := c.repo.FindActiveByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up name %q: %w", name, err)
	}
	if existing == nil {
		return nil, nil
	}
	if excludeID != nil && existing.ID == *excludeID {
		return nil, nil
	}
	return []apperror.Violation{{
		Field:   "name",
		Code:    apperror.ViolationDuplicateName,
		Message: fmt.Sprintf("an organisation named %q already exists", existing.Name),
	}}, nil
}

// checkParent verifies the parent exists, is active, and that adopting
// it does not create a cycle. The walk is bounded by maxDepth; a chain
// that long is reported as cyclic rather than walked forever.
func (c *Checker) checkParent(ctx context.Context, candidate *Organisation, excludeID *id.ID) ([]apperror.Violation, error) {
	parentID := *candidate.ParentID

	if excludeID != nil && parentID == *excludeID {
		return []apperror.Violation{{
			Field:   "parentId",
			Code:    apperror.ViolationCyclicHierarchy,
			Message: "an organisation cannot be its own parent",
		}}, nil
	}

	parent, err := c.repo.Get(ctx, parentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return []apperror.Violation{{
				Field:   "parentId",
				Code:    apperror.ViolationParentNotFound,
				Message: fmt.Sprintf("parent organisation %s does not exist", parentID),
			}}, nil
		}
		return nil, fmt.Errorf("failed to load parent %s: %w", parentID, err)
	}

	if !parent.IsActive() {
		return []apperror.Violation{{
			Field:   "parentId",
			Code:    apperror.ViolationParentNotFound,
			Message: fmt.Sprintf("parent organisation %s is not active", parentID),
		}}, nil
	}

	if excludeID == nil {
		// New record: nothing can point back at it yet.
		return nil, nil
	}

	// Walk the ancestor chain from the new parent upwards. Hitting the
	// record being edited means the edit would close a loop.
	current := parent
	for depth := 1; ; depth++ {
		if depth > c.maxDepth {
			return []apperror.Violation{{
				Field:   "parentId",
				Code:    apperror.ViolationCyclicHierarchy,
				Message: fmt.Sprintf("parent chain exceeds maximum depth of %d", c.maxDepth),
			}}, nil
		}
		if current.ParentID == nil {
			return nil, nil
		}
		nextID := *current.ParentID
		if nextID == *excludeID {
			return []apperror.Violation{{
				Field:   "parentId",
				Code:    apperror.ViolationCyclicHierarchy,
				Message: "change would create a cycle in the organisation hierarchy",
			}}, nil
		}
		next, err := c.repo.Get(ctx, nextID)
		if err != nil {
			if apperror.IsNotFound(err) {
				// Broken link higher up the chain. Not this record's
				// problem; the chain cannot loop through a missing node.
				return nil, nil
			}
			return nil, fmt.Errorf("failed to walk parent chain at %s: %w", nextID, err)
		}
		current = next
	}
}
