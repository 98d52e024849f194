package dag

import (
	"fmt"
	"slices"
	"sync"
)

// Graph is a set of named vertices joined by directed edges. An edge from A
// to B means B consumes something A produces. All methods are safe for
// concurrent use.
type Graph struct {
	mu       sync.RWMutex
	vertices map[string]*vertex
	// order keeps insertion order so listings are stable across runs.
	order []string
}

// vertex is un-exported so callers work with IDs only.
type vertex struct {
	id         string
	upstream   map[string]*vertex
	downstream map[string]*vertex
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		vertices: make(map[string]*vertex),
	}
}

// AddNode registers a vertex. Adding an ID that already exists is a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.vertices[id]; ok {
		return
	}
	g.vertices[id] = &vertex{
		id:         id,
		upstream:   make(map[string]*vertex),
		downstream: make(map[string]*vertex),
	}
	g.order = append(g.order, id)
}

// Has reports whether a vertex with the given ID exists.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.vertices[id]
	return ok
}

// AddEdge creates a directed edge from `fromID` to `toID`, meaning `toID`
// depends on `fromID`. Both vertices must exist and must differ.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.vertices[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.vertices[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	to.upstream[fromID] = from
	from.downstream[toID] = to
	return nil
}

// RemoveEdge deletes the edge from `fromID` to `toID` if it exists.
func (g *Graph) RemoveEdge(fromID, toID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if from, ok := g.vertices[fromID]; ok {
		delete(from.downstream, toID)
	}
	if to, ok := g.vertices[toID]; ok {
		delete(to.upstream, fromID)
	}
}

// Dependencies returns the sorted IDs that the given vertex depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(v.upstream), nil
}

// Dependents returns the sorted IDs that depend on the given vertex.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(v.downstream), nil
}

// DetectCycles returns an error naming a vertex on the first cycle found.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// permanent: fully explored and cycle-free.
	// onStack: on the current DFS path.
	permanent := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		if permanent[v.id] {
			return nil
		}
		if onStack[v.id] {
			return fmt.Errorf("cycle detected involving node '%s'", v.id)
		}
		onStack[v.id] = true
		for _, id := range sortedKeys(v.downstream) {
			if err := visit(v.downstream[id]); err != nil {
				return err
			}
		}
		delete(onStack, v.id)
		permanent[v.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.vertices[id]); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns every vertex so that each one comes after all of
// its dependencies. Ties are broken by insertion order, which keeps the
// result deterministic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pending := make(map[string]int, len(g.vertices))
	for id, v := range g.vertices {
		pending[id] = len(v.upstream)
	}

	out := make([]string, 0, len(g.vertices))
	done := make(map[string]bool, len(g.vertices))
	for len(out) < len(g.vertices) {
		progressed := false
		for _, id := range g.order {
			if done[id] || pending[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for next := range g.vertices[id].downstream {
				pending[next]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("graph has a cycle; %d of %d nodes ordered", len(out), len(g.vertices))
		}
	}
	return out, nil
}

func sortedKeys(m map[string]*vertex) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
