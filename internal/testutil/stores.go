// Package testutil provides shared in-memory test doubles for service,
// fanout and server tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"feedline/internal/models"
	"feedline/internal/repository"
)

// PostStoreStub is an in-memory repository.PostRepository. GetByIDs returns
// posts in reverse request order to exercise callers that must reorder.
type PostStoreStub struct {
	mu    sync.Mutex
	items map[string]*models.Post

	// SaveErr and GetErr, when set, are returned by Save and by the read
	// methods respectively.
	SaveErr error
	GetErr  error
}

// NewPostStoreStub creates an empty post store stub.
func NewPostStoreStub() *PostStoreStub {
	return &PostStoreStub{items: make(map[string]*models.Post)}
}

// Save stores a copy of post.
func (s *PostStoreStub) Save(_ context.Context, post *models.Post) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[post.ID]; ok {
		return models.NewConflictError("Post already exists")
	}
	cp := *post
	s.items[post.ID] = &cp
	return nil
}

// GetByID returns a copy of the stored post.
func (s *PostStoreStub) GetByID(_ context.Context, id string) (*models.Post, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	cp := *p
	return &cp, nil
}

// GetByIDs returns the stored posts among ids, last requested first.
func (s *PostStoreStub) GetByIDs(_ context.Context, ids []string) ([]*models.Post, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Post, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if p, ok := s.items[ids[i]]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Delete removes a post.
func (s *PostStoreStub) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return models.NewNotFoundError("Post", id)
	}
	delete(s.items, id)
	return nil
}

// FollowGraphStub is an in-memory repository.FollowRepository.
type FollowGraphStub struct {
	mu    sync.Mutex
	edges map[string]map[string]bool // following -> followers

	// FollowersErr, when set, is returned by GetFollowers.
	FollowersErr error
}

// NewFollowGraphStub creates an empty follow graph stub.
func NewFollowGraphStub() *FollowGraphStub {
	return &FollowGraphStub{edges: make(map[string]map[string]bool)}
}

// Add records follower -> following without validation.
func (g *FollowGraphStub) Add(followerID, followingID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.edges[followingID] == nil {
		g.edges[followingID] = make(map[string]bool)
	}
	g.edges[followingID][followerID] = true
}

func (g *FollowGraphStub) Create(_ context.Context, follow *models.Follow) error {
	g.mu.Lock()
	exists := g.edges[follow.FollowingID][follow.FollowerID]
	g.mu.Unlock()
	if exists {
		return models.NewConflictError("Already following this user")
	}
	g.Add(follow.FollowerID, follow.FollowingID)
	return nil
}

func (g *FollowGraphStub) Delete(_ context.Context, followerID, followingID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.edges[followingID][followerID] {
		return models.NewNotFoundError("Follow", followerID+"->"+followingID)
	}
	delete(g.edges[followingID], followerID)
	return nil
}

func (g *FollowGraphStub) Exists(_ context.Context, followerID, followingID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.edges[followingID][followerID], nil
}

// GetFollowers returns followers sorted for stable assertions.
func (g *FollowGraphStub) GetFollowers(_ context.Context, userID string) ([]string, error) {
	if g.FollowersErr != nil {
		return nil, g.FollowersErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.edges[userID]))
	for f := range g.edges[userID] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func (g *FollowGraphStub) GetFollowing(_ context.Context, userID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []string{}
	for following, followers := range g.edges {
		if followers[userID] {
			out = append(out, following)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (g *FollowGraphStub) CountFollowers(ctx context.Context, userID string) (int64, error) {
	f, err := g.GetFollowers(ctx, userID)
	return int64(len(f)), err
}

func (g *FollowGraphStub) CountFollowing(ctx context.Context, userID string) (int64, error) {
	f, err := g.GetFollowing(ctx, userID)
	return int64(len(f)), err
}

// TimelineStub is an in-memory repository.TimelineRepository. Writes for
// owners listed in FailOwners fail.
type TimelineStub struct {
	mu      sync.Mutex
	entries map[string]map[string]models.TimelineEntry

	FailOwners map[string]bool
	QueryErr   error
	// BatchCalls counts AppendBatch invocations.
	BatchCalls int
}

// NewTimelineStub creates an empty timeline stub.
func NewTimelineStub() *TimelineStub {
	return &TimelineStub{
		entries:    make(map[string]map[string]models.TimelineEntry),
		FailOwners: make(map[string]bool),
	}
}

func (t *TimelineStub) put(entry models.TimelineEntry) error {
	if t.FailOwners[entry.OwnerUserID] {
		return fmt.Errorf("timeline write for %s unavailable", entry.OwnerUserID)
	}
	if t.entries[entry.OwnerUserID] == nil {
		t.entries[entry.OwnerUserID] = make(map[string]models.TimelineEntry)
	}
	if _, ok := t.entries[entry.OwnerUserID][entry.PostID]; !ok {
		t.entries[entry.OwnerUserID][entry.PostID] = entry
	}
	return nil
}

func (t *TimelineStub) AppendOne(_ context.Context, entry models.TimelineEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.put(entry)
}

// AppendBatch writes entries one by one and reports failures per entry as
// single-entry chunks.
func (t *TimelineStub) AppendBatch(_ context.Context, entries []models.TimelineEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.BatchCalls++
	var chunks []repository.ChunkError
	for i, e := range entries {
		if err := t.put(e); err != nil {
			chunks = append(chunks, repository.ChunkError{Index: i, Size: 1, Err: err})
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	return &repository.BatchWriteError{
		Total:   len(entries),
		Written: len(entries) - len(chunks),
		Chunks:  chunks,
	}
}

func (t *TimelineStub) QueryPage(_ context.Context, owner, cursor string, limit int) (*models.TimelinePage, error) {
	if t.QueryErr != nil {
		return nil, t.QueryErr
	}
	limit = models.NormalizeLimit(limit)
	t.mu.Lock()
	defer t.mu.Unlock()

	all := make([]models.TimelineEntry, 0, len(t.entries[owner]))
	for id, e := range t.entries[owner] {
		if cursor == "" || id < cursor {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PostID > all[j].PostID })

	page := &models.TimelinePage{Entries: []models.TimelineEntry{}}
	if len(all) > limit {
		all = all[:limit]
		next := all[limit-1].PostID
		page.NextCursor = &next
	}
	page.Entries = append(page.Entries, all...)
	return page, nil
}

// PostIDs returns the post IDs in owner's timeline, newest first.
func (t *TimelineStub) PostIDs(owner string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.entries[owner]))
	for id := range t.entries[owner] {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

// FanoutFailureStub is an in-memory repository.FanoutFailureRepository.
type FanoutFailureStub struct {
	mu   sync.Mutex
	rows map[string]*models.FanoutFailure
}

// NewFanoutFailureStub creates an empty ledger stub.
func NewFanoutFailureStub() *FanoutFailureStub {
	return &FanoutFailureStub{rows: make(map[string]*models.FanoutFailure)}
}

func (l *FanoutFailureStub) Record(_ context.Context, post *models.Post, failed int, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if row, ok := l.rows[post.ID]; ok {
		row.Attempts++
		row.Failed = failed
		row.LastError = msg
		return nil
	}
	l.rows[post.ID] = &models.FanoutFailure{
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Attempts:  1,
		Failed:    failed,
		LastError: msg,
	}
	return nil
}

func (l *FanoutFailureStub) ListPending(_ context.Context, maxAttempts, limit int) ([]models.FanoutFailure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.FanoutFailure, 0)
	for _, row := range l.rows {
		if row.Attempts < maxAttempts {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostID < out[j].PostID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *FanoutFailureStub) Resolve(_ context.Context, postID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rows, postID)
	return nil
}

// Get returns the ledger row for postID, if any.
func (l *FanoutFailureStub) Get(postID string) (models.FanoutFailure, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[postID]
	if !ok {
		return models.FanoutFailure{}, false
	}
	return *row, true
}

// PostID returns a valid, sortable post ID for sequence number n.
func PostID(n int) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", n)
}
