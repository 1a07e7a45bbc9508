// Package resolver selects the contract package applicable to a
// jurisdiction and checks a package's completeness before a job may be
// submitted.
//
// Resolution: exact jurisdiction mapping first, then the package flagged
// default, otherwise model.ErrNoApplicablePackage.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-contractpack/internal/model"
	"go-contractpack/internal/store"
)

type Resolver struct {
	store store.Store
}

func New(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the package for the given jurisdiction code. The code is
// treated as an opaque uppercase string; no further validation happens here.
func (r *Resolver) Resolve(ctx context.Context, code string) (*model.PackageDefinition, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	pkgID, err := r.store.GetMapping(ctx, code)
	switch {
	case err == nil:
		pkg, err := r.store.GetPackage(ctx, pkgID)
		if err != nil {
			return nil, fmt.Errorf("jurisdiction %s maps to missing package %s: %w", code, pkgID, err)
		}
		return pkg, nil
	case errors.Is(err, model.ErrNotFound):
		// Fall through to the default package.
	default:
		return nil, err
	}

	pkg, err := r.store.DefaultPackage(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: jurisdiction %s is unmapped and no default package exists", model.ErrNoApplicablePackage, code)
	}
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// DocumentFor returns the template uploaded for the (package, contract type)
// pair, or model.ErrNotFound if that type was never uploaded.
func (r *Resolver) DocumentFor(ctx context.Context, packageID string, t model.ContractType) (*model.DocumentTemplate, error) {
	return r.store.GetDocumentByType(ctx, packageID, t)
}

// CheckComplete verifies that every required contract type has a template.
// Incomplete packages must never enter the job orchestrator.
func (r *Resolver) CheckComplete(ctx context.Context, packageID string) error {
	var missing []string
	for _, t := range model.RequiredContractTypes {
		_, err := r.store.GetDocumentByType(ctx, packageID, t)
		if errors.Is(err, model.ErrNotFound) {
			missing = append(missing, string(t))
			continue
		}
		if err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: package %s is missing %s", model.ErrIncompletePackage, packageID, strings.Join(missing, ", "))
	}
	return nil
}
