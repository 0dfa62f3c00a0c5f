// Package boardctx assembles the immutable context snapshot every other
// pipeline stage reads from: boards, users, and permissions for one account,
// captured at a single point in time and cached with per-part TTLs.
package boardctx

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"boardpilot/internal/config"
	"boardpilot/internal/logging"
	"boardpilot/internal/types"
)

// Request identifies what to gather context for.
type Request struct {
	AccountID string
	BoardID   string // optional; selects CurrentBoard
	UserID    string // optional; scopes permissions
}

// Source is the external collaborator that fetches live account state.
// Implementations talk to the upstream API; tests use fixtures.
type Source interface {
	Boards(ctx context.Context, accountID, boardID string) ([]types.Board, error)
	Users(ctx context.Context, accountID string) ([]types.User, error)
	Permissions(ctx context.Context, accountID, userID string) (types.Permissions, error)
}

// CacheStats reports snapshot-cache effectiveness.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Assembler gathers context snapshots, serving from a TTL cache when a fresh
// snapshot for the same request already exists. Snapshots are replaced
// wholesale, never patched: a stale entry is simply re-gathered.
type Assembler struct {
	source Source
	clock  Clock
	cache  *expirable.LRU[string, *types.Context]

	// Per-part TTLs. The snapshot as a whole is considered stale once the
	// shortest TTL among the parts it contains has elapsed.
	boardTTL time.Duration
	userTTL  time.Duration
	permTTL  time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	log *zap.Logger
}

// NewAssembler wires an assembler from config. clock may be nil, in which
// case the system clock is used.
func NewAssembler(source Source, cfg config.ContextConfig, clock Clock) *Assembler {
	if clock == nil {
		clock = SystemClock()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 128
	}
	userTTL := time.Duration(cfg.UserTTLMinutes) * time.Minute
	a := &Assembler{
		source:   source,
		clock:    clock,
		boardTTL: time.Duration(cfg.BoardTTLMinutes) * time.Minute,
		userTTL:  userTTL,
		permTTL:  time.Duration(cfg.PermissionTTLMinutes) * time.Minute,
		log:      logging.For(logging.CategoryContext),
	}
	// The LRU's own TTL is only a backstop; the clock-based staleness check
	// in Gather is authoritative so tests can drive time explicitly.
	a.cache = expirable.NewLRU[string, *types.Context](size, nil, userTTL)
	return a
}

// Gather returns a context snapshot for the request, from cache when fresh.
// Concurrent gathers for the same key may race; last write wins, which is
// harmless since every snapshot is an idempotent re-derivation of the same
// upstream state.
func (a *Assembler) Gather(ctx context.Context, req Request) (*types.Context, error) {
	if req.AccountID == "" {
		return nil, fmt.Errorf("gather context: account id required")
	}

	key := cacheKey(req)
	if snap, ok := a.cache.Get(key); ok && !a.stale(snap) {
		a.hits.Add(1)
		a.log.Debug("context cache hit", zap.String("key", key))
		return snap, nil
	}
	a.misses.Add(1)

	snap, err := a.gather(ctx, req)
	if err != nil {
		return nil, err
	}
	a.cache.Add(key, snap)
	a.log.Info("context gathered",
		zap.String("account", req.AccountID),
		zap.Int("boards", len(snap.Boards)),
		zap.Int("users", len(snap.Users)))
	return snap, nil
}

func (a *Assembler) gather(ctx context.Context, req Request) (*types.Context, error) {
	var (
		boards []types.Board
		users  []types.User
		perms  types.Permissions
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		boards, err = a.source.Boards(gctx, req.AccountID, req.BoardID)
		if err != nil {
			return fmt.Errorf("fetch boards: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = a.source.Users(gctx, req.AccountID)
		if err != nil {
			return fmt.Errorf("fetch users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		perms, err = a.source.Permissions(gctx, req.AccountID, req.UserID)
		if err != nil {
			return fmt.Errorf("fetch permissions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &types.Context{
		AccountID:   req.AccountID,
		Boards:      boards,
		Users:       users,
		Permissions: perms,
		CapturedAt:  a.clock.Now(),
	}
	if req.BoardID != "" {
		for i := range boards {
			if boards[i].ID == req.BoardID {
				snap.CurrentBoard = &boards[i]
				break
			}
		}
	}
	return snap, nil
}

// stale applies the shortest applicable TTL: permissions are always present,
// so a full snapshot goes stale on the permission TTL.
func (a *Assembler) stale(snap *types.Context) bool {
	age := a.clock.Now().Sub(snap.CapturedAt)
	ttl := a.permTTL
	if a.boardTTL < ttl {
		ttl = a.boardTTL
	}
	return age > ttl
}

// ClearCache removes cached snapshots whose key contains pattern. An empty
// pattern clears everything. Returns the number of entries removed.
func (a *Assembler) ClearCache(pattern string) int {
	removed := 0
	for _, key := range a.cache.Keys() {
		if pattern == "" || strings.Contains(key, pattern) {
			if a.cache.Remove(key) {
				removed++
			}
		}
	}
	a.log.Info("context cache cleared", zap.String("pattern", pattern), zap.Int("removed", removed))
	return removed
}

// CacheStats returns snapshot-cache counters.
func (a *Assembler) CacheStats() CacheStats {
	return CacheStats{
		Entries: a.cache.Len(),
		Hits:    a.hits.Load(),
		Misses:  a.misses.Load(),
	}
}

func cacheKey(req Request) string {
	return fmt.Sprintf("account:%s|board:%s|user:%s", req.AccountID, req.BoardID, req.UserID)
}
