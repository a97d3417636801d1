package projections

import (
	"context"
	"fmt"

	"ctbadmin/internal/domain/capsule"
)

// CapsuleLister defines the fetch needed by GetCapsuleList.
type CapsuleLister interface {
	ListCapsules(ctx context.Context) ([]capsule.Capsule, error)
}

// GetCapsuleListQuery carries query parameters.
type GetCapsuleListQuery struct {
	Type   string // all, audio or video
	Search string
}

// GetCapsuleListResult carries the query result.
type GetCapsuleListResult struct {
	Capsules []capsule.Capsule `json:"capsules"`
	Total    int               `json:"total"` // before filtering
}

// GetCapsuleListDeps holds dependencies for GetCapsuleList.
type GetCapsuleListDeps struct {
	API CapsuleLister
}

// QueryGetCapsuleList lists capsules filtered by type and a text query.
// PRE: Type is empty, "all", "audio" or "video"
// POST: Capsules keep backend order
func QueryGetCapsuleList(ctx context.Context, query GetCapsuleListQuery, deps GetCapsuleListDeps) (GetCapsuleListResult, error) {
	switch query.Type {
	case "", "all", capsule.TypeAudio, capsule.TypeVideo:
	default:
		return GetCapsuleListResult{}, capsule.ErrInvalidType
	}

	all, err := deps.API.ListCapsules(ctx)
	if err != nil {
		return GetCapsuleListResult{}, fmt.Errorf("load capsules: %w", err)
	}
	out := make([]capsule.Capsule, 0, len(all))
	for _, c := range all {
		if c.MatchesFilter(query.Type, query.Search) {
			out = append(out, c)
		}
	}
	return GetCapsuleListResult{Capsules: out, Total: len(all)}, nil
}
