// Package store holds the client-side normalized cache of users, recs and comments.
package store

import (
	"sort"
	"sync"

	"recs/internal/models"
)

// RecDelta is a signed change to a cached rec's like state.
type RecDelta struct {
	Likes   int
	IsLiked bool
}

// UserDelta is a signed change to a cached user's counters.
// A nil IsFollowing leaves the flag untouched.
type UserDelta struct {
	TunedIn     int
	TunedTo     int
	Recs        int
	IsFollowing *bool
}

// FollowDelta moves both sides of a follow edge in one step.
type FollowDelta struct {
	Viewer      string
	Target      string
	TunedIn     int
	TunedTo     int
	IsFollowing bool
}

// FollowResult reports the state after PatchFollowEdge and the deltas that were
// actually applied after clamping.
type FollowResult struct {
	Target         models.User
	Viewer         *models.User
	AppliedTunedIn int
	AppliedTunedTo int
}

// Snapshot is a point-in-time copy of the store contents.
type Snapshot struct {
	Users    []models.User
	Recs     []models.Rec
	Comments []models.Comment
	Deleted  []uint
}

// An entry with pending > 0 has an optimistic change awaiting the server. Its
// engagement fields belong to that change until it settles. A restored entry
// came from a snapshot and has not been seen from the server since.
type recEntry struct {
	rec       models.Rec
	confirmed uint64
	pending   int
	restored  bool
}

type userEntry struct {
	user      models.User
	confirmed uint64
	pending   int
	restored  bool
}

// Store is safe for concurrent use. Every method is atomic with respect to the
// entities it touches.
type Store struct {
	mu       sync.RWMutex
	clock    uint64
	users    map[string]*userEntry
	recs     map[uint]*recEntry
	comments map[uint][]models.Comment
	deleted  map[uint]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]*userEntry),
		recs:     make(map[uint]*recEntry),
		comments: make(map[uint][]models.Comment),
		deleted:  make(map[uint]struct{}),
	}
}

// Mark advances the logical clock and returns the new value. Fetches call it
// before going to the network; confirmations stamped later than the mark win.
func (s *Store) Mark() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick()
}

func (s *Store) tick() uint64 {
	s.clock++
	return s.clock
}

func (s *Store) GetUser(username string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[username]
	if !ok {
		return models.User{}, false
	}
	return copyUser(e.user), true
}

// PutUser inserts or overwrites a user. Last write wins, except for the
// engagement of a user with a pending change.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.users[u.Username]; ok && e.pending > 0 {
		e.user = overlayUser(u, e.user)
		e.restored = false
		return
	}
	s.users[u.Username] = &userEntry{user: copyUser(u)}
}

// FreshUser reports whether a user is cached and was written in this process
// rather than restored from a snapshot.
func (s *Store) FreshUser(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.users[username]
	return ok && !e.restored
}

func (s *Store) GetRec(id uint) (models.Rec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.recs[id]
	if !ok {
		return models.Rec{}, false
	}
	return e.rec, true
}

// PutRec inserts or overwrites a rec. Deleted recs stay deleted, and a rec
// with a pending change keeps its like state.
func (s *Store) PutRec(r models.Rec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.deleted[r.ID]; gone {
		return
	}
	if e, ok := s.recs[r.ID]; ok && e.pending > 0 {
		e.rec = overlayRec(r, e.rec)
		e.restored = false
		return
	}
	s.recs[r.ID] = &recEntry{rec: r}
}

// FreshRec is FreshUser for recs.
func (s *Store) FreshRec(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.recs[id]
	return ok && !e.restored
}

// PatchRecEngagement applies d to a cached rec. LikesCount never drops below zero.
func (s *Store) PatchRecEngagement(id uint, d RecDelta) (models.Rec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.recs[id]
	if !ok {
		return models.Rec{}, models.NewNotFoundError("Rec", id)
	}
	patchRec(e, d)
	return e.rec, nil
}

// BeginLikeToggle flips the like flag of a cached rec and moves LikesCount by
// one in the same direction. The rec is held against merges until SettleRec.
func (s *Store) BeginLikeToggle(id uint) (before, after models.Rec, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.recs[id]
	if !ok {
		return models.Rec{}, models.Rec{}, models.NewNotFoundError("Rec", id)
	}
	before = e.rec
	d := RecDelta{Likes: 1, IsLiked: true}
	if before.IsLiked {
		d = RecDelta{Likes: -1, IsLiked: false}
	}
	patchRec(e, d)
	e.pending++
	return before, e.rec, nil
}

// SettleRec releases a hold taken by BeginLikeToggle. A nil undo confirms
// the change; otherwise undo is applied as the rollback.
func (s *Store) SettleRec(id uint, undo *RecDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.recs[id]
	if !ok {
		return
	}
	if e.pending > 0 {
		e.pending--
	}
	if undo != nil {
		patchRec(e, *undo)
		return
	}
	e.confirmed = s.tick()
}

// PatchUserEngagement applies d to a cached user. Counters never drop below zero.
func (s *Store) PatchUserEngagement(username string, d UserDelta) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[username]
	if !ok {
		return models.User{}, models.NewNotFoundError("User", username)
	}
	applyUserDelta(&e.user, d)
	return copyUser(e.user), nil
}

// PatchFollowEdge updates the target and, when cached, the viewer under one lock.
func (s *Store) PatchFollowEdge(d FollowDelta) (FollowResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patchFollowEdge(d, false)
}

// BeginFollowToggle flips whether viewer follows target. The target's TunedIn
// and, when cached, the viewer's TunedTo move together, and every user touched
// is held against merges until SettleFollowEdge. It returns the edge applied.
func (s *Store) BeginFollowToggle(viewer, target string) (FollowDelta, FollowResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.users[target]
	if !ok {
		return FollowDelta{}, FollowResult{}, models.NewNotFoundError("User", target)
	}
	d := FollowDelta{Viewer: viewer, Target: target, TunedIn: 1, TunedTo: 1, IsFollowing: true}
	if t.user.Following() {
		d = FollowDelta{Viewer: viewer, Target: target, TunedIn: -1, TunedTo: -1, IsFollowing: false}
	}
	res, err := s.patchFollowEdge(d, true)
	return d, res, err
}

// SettleFollowEdge releases the holds taken by BeginFollowToggle, which
// applied d and returned res. On success both sides are confirmed; otherwise the applied
// deltas are reverted and the follow flag restored.
func (s *Store) SettleFollowEdge(d FollowDelta, res FollowResult, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if target, ok := s.users[d.Target]; ok {
		if target.pending > 0 {
			target.pending--
		}
		if success {
			target.confirmed = s.tick()
		} else {
			applyUserDelta(&target.user, UserDelta{TunedIn: -res.AppliedTunedIn, IsFollowing: models.BoolPtr(!d.IsFollowing)})
		}
	}
	if res.Viewer == nil {
		return
	}
	if viewer, ok := s.users[d.Viewer]; ok {
		if viewer.pending > 0 {
			viewer.pending--
		}
		if success {
			viewer.confirmed = s.tick()
		} else {
			applyUserDelta(&viewer.user, UserDelta{TunedTo: -res.AppliedTunedTo})
		}
	}
}

func (s *Store) patchFollowEdge(d FollowDelta, hold bool) (FollowResult, error) {
	target, ok := s.users[d.Target]
	if !ok {
		return FollowResult{}, models.NewNotFoundError("User", d.Target)
	}

	before := target.user.TunedIn
	applyUserDelta(&target.user, UserDelta{TunedIn: d.TunedIn, IsFollowing: models.BoolPtr(d.IsFollowing)})
	if hold {
		target.pending++
	}
	res := FollowResult{
		Target:         copyUser(target.user),
		AppliedTunedIn: target.user.TunedIn - before,
	}

	if viewer, ok := s.users[d.Viewer]; ok && d.Viewer != d.Target {
		before := viewer.user.TunedTo
		applyUserDelta(&viewer.user, UserDelta{TunedTo: d.TunedTo})
		if hold {
			viewer.pending++
		}
		v := copyUser(viewer.user)
		res.Viewer = &v
		res.AppliedTunedTo = viewer.user.TunedTo - before
	}
	return res, nil
}

// MergeRec folds a fetched row into the cache and returns the row to display.
// The cached like state is kept while a change is pending or when it was
// confirmed after since; otherwise the fetched row replaces the cache. ok is
// false for deleted recs.
func (s *Store) MergeRec(fetched models.Rec, since uint64) (merged models.Rec, keptCached bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, gone := s.deleted[fetched.ID]; gone {
		return models.Rec{}, false, false
	}

	e, exists := s.recs[fetched.ID]
	if !exists || (e.pending == 0 && e.confirmed <= since) {
		s.recs[fetched.ID] = &recEntry{rec: fetched}
		return fetched, false, true
	}

	e.rec = overlayRec(fetched, e.rec)
	e.restored = false
	return e.rec, true, true
}

// MergeUser is MergeRec for users; the follow flag and counters are the overlaid fields.
func (s *Store) MergeUser(fetched models.User, since uint64) (merged models.User, keptCached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.users[fetched.Username]
	if !exists || (e.pending == 0 && e.confirmed <= since) {
		s.users[fetched.Username] = &userEntry{user: copyUser(fetched)}
		return copyUser(fetched), false
	}

	e.user = overlayUser(fetched, e.user)
	e.restored = false
	return copyUser(e.user), true
}

// MergeUserIdentity folds in a row that carries no engagement. A cached user
// keeps its follow flag and counters; an unknown user is inserted as given.
func (s *Store) MergeUserIdentity(fetched models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[fetched.Username]
	if !ok {
		s.users[fetched.Username] = &userEntry{user: copyUser(fetched)}
		return copyUser(fetched)
	}
	e.user = overlayUser(fetched, e.user)
	return copyUser(e.user)
}

// DeleteRec purges a rec and its comments. The id is never cached again.
func (s *Store) DeleteRec(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	delete(s.comments, id)
	s.deleted[id] = struct{}{}
}

// IsDeleted reports whether id was purged by DeleteRec.
func (s *Store) IsDeleted(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, gone := s.deleted[id]
	return gone
}

// Comments returns the cached comments of a rec in insertion order.
func (s *Store) Comments(recID uint) []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Comment(nil), s.comments[recID]...)
}

// AppendComment adds c at the end of its rec's list. A comment already present
// is not added twice.
func (s *Store) AppendComment(c models.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.deleted[c.RecID]; gone {
		return false
	}
	list := s.comments[c.RecID]
	for _, existing := range list {
		if existing.ID == c.ID {
			return false
		}
	}
	c.Position = len(list)
	s.comments[c.RecID] = append(list, c)
	return true
}

// MergeComments replaces a rec's comments with the fetched list, keeping any
// locally appended comment the fetch did not include yet.
func (s *Store) MergeComments(recID uint, fetched []models.Comment) []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.deleted[recID]; gone {
		return nil
	}

	seen := make(map[uint]struct{}, len(fetched))
	merged := make([]models.Comment, 0, len(fetched))
	for _, c := range fetched {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range s.comments[recID] {
		if _, ok := seen[c.ID]; !ok {
			merged = append(merged, c)
		}
	}
	for i := range merged {
		merged[i].Position = i
	}
	s.comments[recID] = merged
	return append([]models.Comment(nil), merged...)
}

// Snapshot copies the store contents. Confirmation stamps are not included.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap Snapshot
	for _, e := range s.users {
		snap.Users = append(snap.Users, copyUser(e.user))
	}
	for _, e := range s.recs {
		snap.Recs = append(snap.Recs, e.rec)
	}
	for _, list := range s.comments {
		snap.Comments = append(snap.Comments, list...)
	}
	for id := range s.deleted {
		snap.Deleted = append(snap.Deleted, id)
	}

	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].Username < snap.Users[j].Username })
	sort.Slice(snap.Recs, func(i, j int) bool { return snap.Recs[i].ID < snap.Recs[j].ID })
	sort.Slice(snap.Comments, func(i, j int) bool {
		if snap.Comments[i].RecID != snap.Comments[j].RecID {
			return snap.Comments[i].RecID < snap.Comments[j].RecID
		}
		return snap.Comments[i].Position < snap.Comments[j].Position
	})
	sort.Slice(snap.Deleted, func(i, j int) bool { return snap.Deleted[i] < snap.Deleted[j] })
	return snap
}

// Restore loads a snapshot on top of the current contents. Restored entities
// carry no confirmation stamp, so the next fetch replaces them. Until then
// they are not fresh.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range snap.Deleted {
		s.deleted[id] = struct{}{}
		delete(s.recs, id)
		delete(s.comments, id)
	}
	for _, u := range snap.Users {
		s.users[u.Username] = &userEntry{user: copyUser(u), restored: true}
	}
	for _, r := range snap.Recs {
		if _, gone := s.deleted[r.ID]; gone {
			continue
		}
		s.recs[r.ID] = &recEntry{rec: r, restored: true}
	}

	comments := append([]models.Comment(nil), snap.Comments...)
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].Position < comments[j].Position })
	for _, c := range comments {
		if _, gone := s.deleted[c.RecID]; gone {
			continue
		}
		s.comments[c.RecID] = append(s.comments[c.RecID], c)
	}
}

func patchRec(e *recEntry, d RecDelta) {
	e.rec.LikesCount = clamp(e.rec.LikesCount + d.Likes)
	e.rec.IsLiked = d.IsLiked
}

// overlayRec returns fetched with the like state of cached.
func overlayRec(fetched, cached models.Rec) models.Rec {
	fetched.LikesCount = cached.LikesCount
	fetched.IsLiked = cached.IsLiked
	return fetched
}

// overlayUser returns fetched with the follow state and counters of cached.
func overlayUser(fetched, cached models.User) models.User {
	fetched.TunedIn = cached.TunedIn
	fetched.TunedTo = cached.TunedTo
	fetched.IsFollowing = cached.IsFollowing
	return copyUser(fetched)
}

func applyUserDelta(u *models.User, d UserDelta) {
	u.TunedIn = clamp(u.TunedIn + d.TunedIn)
	u.TunedTo = clamp(u.TunedTo + d.TunedTo)
	u.RecsCount = clamp(u.RecsCount + d.Recs)
	if d.IsFollowing != nil {
		u.IsFollowing = models.BoolPtr(*d.IsFollowing)
	}
}

func copyUser(u models.User) models.User {
	if u.IsFollowing != nil {
		u.IsFollowing = models.BoolPtr(*u.IsFollowing)
	}
	return u
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
