package service

import (
	"context"
	"errors"
	"fmt"

	"tg-rum-bridge/internal/models"
	"tg-rum-bridge/internal/rum"
)

// ErrUnresolvable means the post id has no relation row, so the reply
// chain cannot be walked. Callers decide whether to degrade (treat the
// id as its own root) or surface the miss.
var ErrUnresolvable = errors.New("post id has no known relation")

// maxResolveDepth bounds the reply-chain walk. The chain is acyclic by
// construction, but the walk is over attacker-influenced data so it gets
// a hard cap and a visited set anyway.
const maxResolveDepth = 32

// Resolver chases comment reply links back to the root post.
type Resolver struct {
	store RelationStore
	chain rum.Client
}

func NewResolver(store RelationStore, chain rum.Client) *Resolver {
	return &Resolver{store: store, chain: chain}
}

// ResolveRoot returns the root post id for postID. A post resolves to
// itself; a comment is followed through its trx's declared reply target.
// Chain lookup failures propagate as errors distinct from ErrUnresolvable
// so callers can tell "no such post" from "could not verify".
func (r *Resolver) ResolveRoot(ctx context.Context, postID string) (string, error) {
	if postID == "" {
		return "", ErrUnresolvable
	}

	visited := make(map[string]bool)
	for depth := 0; depth < maxResolveDepth; depth++ {
		if visited[postID] {
			return "", fmt.Errorf("reply cycle detected at post %s", postID)
		}
		visited[postID] = true

		rel, err := r.store.FindByRumPostID(postID)
		if err != nil {
			return "", fmt.Errorf("failed to look up post %s: %w", postID, err)
		}
		if rel == nil {
			return "", fmt.Errorf("%w: %s", ErrUnresolvable, postID)
		}

		switch rel.TrxType {
		case models.TrxTypePost:
			return rel.RumPostID, nil
		case models.TrxTypeComment:
			trx, err := r.chain.GetTrx(ctx, rel.TrxID)
			if err != nil {
				return "", fmt.Errorf("failed to fetch trx %s: %w", rel.TrxID, err)
			}
			next := trx.ReplyTargetID()
			if next == "" {
				return "", fmt.Errorf("trx %s is recorded as a comment but declares no reply target", rel.TrxID)
			}
			postID = next
		default:
			return "", fmt.Errorf("%w: %s has trx type %q", ErrUnresolvable, postID, rel.TrxType)
		}
	}
	return "", fmt.Errorf("reply chain for %s exceeds depth %d", postID, maxResolveDepth)
}
