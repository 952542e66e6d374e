package model

import (
	"context"
	"fmt"

	"github.com/allie-ai/allie-core/internal/family"
)

// FamilySource resolves the structured family snapshot the pipeline
// grounds prompts and retrieval on.
type FamilySource interface {
	Lookup(ctx context.Context, familyID string) (*family.Data, error)
}

// StaticFamilySource serves snapshots from a fixed in-memory map.
type StaticFamilySource map[string]*family.Data

func (s StaticFamilySource) Lookup(_ context.Context, familyID string) (*family.Data, error) {
	fam, ok := s[familyID]
	if !ok {
		return nil, fmt.Errorf("unknown family %q", familyID)
	}
	return fam, nil
}

var _ FamilySource = (StaticFamilySource)(nil)
