// Package filebatch tracks selection over the hierarchical tree of
// exported files and drives the batch-download sub-protocol: a JSON array
// of selected keys (or the wildcard) is POSTed to the per-channel base
// URL, the server answers with a package index, and the index is
// exchanged for a one-shot download URL.
package filebatch

import (
	"sort"
	"sync"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
)

// SortMode orders the file tree for display.
type SortMode string

const (
	SortByName SortMode = "name"
	SortByDate SortMode = "date"
)

// Service is the selection-algebra twin of the client selection store,
// scoped to file-tree leaves. Listings are applied on the bus dispatch
// goroutine while the UI loop reads, so all state sits behind the lock.
type Service struct {
	bus eventbus.EventBus

	mu       sync.RWMutex
	nodes    []domain.FileNode
	byKey    map[string]domain.FileNode
	selected map[string]bool
	sortMode SortMode

	lastModified int64
}

// NewService creates a new file batch selector.
func NewService(bus eventbus.EventBus) *Service {
	return &Service{
		bus:      bus,
		byKey:    make(map[string]domain.FileNode),
		selected: make(map[string]bool),
		sortMode: SortByName,
	}
}

// SetFiles replaces the known tree. A payload whose lastModified stamp
// matches the current one is a no-op, matching the server's cheap
// freshness check. Selection is reset: the tree redrew.
func (s *Service) SetFiles(files []domain.FileNode, lastModified int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lastModified != 0 && lastModified == s.lastModified {
		return false
	}
	s.lastModified = lastModified
	s.nodes = append([]domain.FileNode(nil), files...)
	s.byKey = make(map[string]domain.FileNode, len(files))
	for _, f := range files {
		s.byKey[f.Key()] = f
	}
	s.selected = make(map[string]bool)
	s.sortLocked()
	return true
}

// SortBy reorders the tree.
func (s *Service) SortBy(mode SortMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == s.sortMode {
		return
	}
	s.sortMode = mode
	s.sortLocked()
}

func (s *Service) sortLocked() {
	switch s.sortMode {
	case SortByDate:
		sort.SliceStable(s.nodes, func(i, j int) bool {
			return s.nodes[i].ModTime.After(s.nodes[j].ModTime)
		})
	default:
		sort.SliceStable(s.nodes, func(i, j int) bool {
			if s.nodes[i].Dir != s.nodes[j].Dir {
				return s.nodes[i].Dir < s.nodes[j].Dir
			}
			return s.nodes[i].Name < s.nodes[j].Name
		})
	}
}

// Nodes returns the tree leaves in display order.
func (s *Service) Nodes() []domain.FileNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FileNode(nil), s.nodes...)
}

// Tree groups the leaves by directory, preserving display order.
func (s *Service) Tree() map[string][]domain.FileNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree := make(map[string][]domain.FileNode)
	for _, f := range s.nodes {
		tree[f.Dir] = append(tree[f.Dir], f)
	}
	return tree
}

// SelectAll marks every known leaf selected.
func (s *Service) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.byKey {
		s.selected[key] = true
	}
}

// SelectNone clears the selection.
func (s *Service) SelectNone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]bool)
}

// Toggle flips one leaf. Unknown keys are ignored.
func (s *Service) Toggle(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[key]; !ok {
		return
	}
	if s.selected[key] {
		delete(s.selected, key)
	} else {
		s.selected[key] = true
	}
}

// IsSelected reports one leaf's state.
func (s *Service) IsSelected(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected[key]
}

// Current returns the selected composite keys, sorted.
func (s *Service) Current() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.selected))
	for key := range s.selected {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Count returns selected and total leaf counts.
func (s *Service) Count() (selected, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.selected), len(s.byKey)
}

// IsFullSelection reports whether every known leaf is selected.
func (s *Service) IsFullSelection() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey) > 0 && len(s.selected) == len(s.byKey)
}

// LastModified returns the stamp of the current listing.
func (s *Service) LastModified() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastModified
}
