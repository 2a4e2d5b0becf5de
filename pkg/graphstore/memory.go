package graphstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type memNode struct {
	labels     []string
	properties map[string]any
}

type memEdge struct {
	startID, endID, relType string
	properties              map[string]any
}

// MemoryStore is an in-memory Store implementation used by tests that need
// a graph store without a Postgres instance.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]memNode
	edges []memEdge
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string]memNode)}
}

func (s *MemoryStore) CreateNode(ctx context.Context, labels []string, properties map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	propsCopy := make(map[string]any, len(properties))
	for k, v := range properties {
		propsCopy[k] = v
	}
	s.nodes[id] = memNode{labels: append([]string{}, labels...), properties: propsCopy}
	return id, nil
}

func (s *MemoryStore) CreateRelationship(ctx context.Context, startID, endID, relType string, properties map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, memEdge{startID: startID, endID: endID, relType: relType, properties: properties})
	return nil
}

// RunQuery is unsupported on MemoryStore: tests exercising ad hoc queries
// should use PostgresStore against a real (or testcontainers) database.
func (s *MemoryStore) RunQuery(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return nil, nil
}

func (s *MemoryStore) LoadFileContent(ctx context.Context, fileID string) (content, path, language string, found bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.edges {
		if e.startID != fileID || e.relType != RelHasContent {
			continue
		}
		contentNode, ok := s.nodes[e.endID]
		if !ok {
			continue
		}
		fileNode := s.nodes[fileID]
		c, _ := contentNode.properties["content"].(string)
		p, _ := fileNode.properties["path"].(string)
		l, _ := fileNode.properties["language"].(string)
		return c, p, l, true, nil
	}
	return "", "", "", false, nil
}

func (s *MemoryStore) FilesForRepository(ctx context.Context, repoID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, e := range s.edges {
		if e.startID == repoID && e.relType == RelHasFile {
			ids = append(ids, e.endID)
		}
	}
	return ids, nil
}
