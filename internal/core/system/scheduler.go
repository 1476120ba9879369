package system

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ErrCyclicDependency is returned when a registration would introduce a
// dependency cycle. The previous valid order is retained; the offending
// system is not added.
var ErrCyclicDependency = errors.New("system: cyclic dependency")

// UnknownSystemError reports a declared dependency with no matching
// registered system. Not fatal: the edge is ignored with a warning.
type UnknownSystemError struct {
	System     string
	Dependency string
}

func (e UnknownSystemError) Error() string {
	return fmt.Sprintf("system %q depends on unregistered system %q", e.System, e.Dependency)
}

// Scheduler keeps the registered systems in dependency-respecting order.
// The order is rebuilt on every membership change and is never left
// partially sorted: a cycle aborts the whole sort and the last valid order
// stays in effect.
type Scheduler struct {
	log     *zap.Logger
	byName  map[string]System
	ordered []System
}

func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		log:    log,
		byName: make(map[string]System, 16),
	}
}

// Register adds a system and re-sorts. If the new system closes a
// dependency cycle it is rejected and the schedule is unchanged.
func (s *Scheduler) Register(sys System) error {
	name := sys.Name()
	if _, exists := s.byName[name]; exists {
		s.log.Warn("system already scheduled, ignoring", zap.String("system", name))
		return nil
	}
	s.byName[name] = sys
	sorted, err := s.sort()
	if err != nil {
		delete(s.byName, name)
		s.log.Error("system registration rejected",
			zap.String("system", name), zap.Error(err))
		return err
	}
	s.ordered = sorted
	return nil
}

// Remove drops a system by name and re-sorts. Removal can never introduce
// a cycle, so the sort cannot fail.
func (s *Scheduler) Remove(name string) bool {
	if _, exists := s.byName[name]; !exists {
		return false
	}
	delete(s.byName, name)
	sorted, err := s.sort()
	if err != nil {
		// Unreachable: removing a node cannot create a back-edge.
		s.log.Error("re-sort after removal failed", zap.Error(err))
		return true
	}
	s.ordered = sorted
	return true
}

// Get returns a registered system by name.
func (s *Scheduler) Get(name string) (System, bool) {
	sys, ok := s.byName[name]
	return sys, ok
}

// Ordered returns the systems in execution order. The slice is owned by
// the scheduler; callers must not mutate it.
func (s *Scheduler) Ordered() []System {
	return s.ordered
}

func (s *Scheduler) Len() int { return len(s.byName) }

// sort performs a DFS-based topological sort. An edge A→B ("A depends on
// B") places B strictly before A. Ties among unconstrained systems break by
// descending priority, then ascending name, so the order is deterministic.
func (s *Scheduler) sort() ([]System, error) {
	roots := make([]System, 0, len(s.byName))
	for _, sys := range s.byName {
		roots = append(roots, sys)
	}
	sort.Slice(roots, func(i, j int) bool {
		if roots[i].Priority() != roots[j].Priority() {
			return roots[i].Priority() > roots[j].Priority()
		}
		return roots[i].Name() < roots[j].Name()
	})

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(roots))
	out := make([]System, 0, len(roots))

	var visit func(sys System) error
	visit = func(sys System) error {
		name := sys.Name()
		switch state[name] {
		case done:
			return nil
		case inStack:
			return fmt.Errorf("%w: involving %q", ErrCyclicDependency, name)
		}
		state[name] = inStack
		for _, dep := range sys.Dependencies() {
			depSys, ok := s.byName[dep]
			if !ok {
				s.log.Warn("dependency not registered, ignoring",
					zap.String("system", name), zap.String("dependency", dep))
				continue
			}
			if err := visit(depSys); err != nil {
				return err
			}
		}
		state[name] = done
		out = append(out, sys)
		return nil
	}

	for _, sys := range roots {
		if err := visit(sys); err != nil {
			return nil, err
		}
	}
	return out, nil
}
