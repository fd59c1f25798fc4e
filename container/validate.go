package container

// MissingDependency records a factory dependency key that is not registered.
type MissingDependency struct {
	Key        string // the factory declaring the dependency
	Dependency string // the unregistered key it declares
}

// Report is the result of a Validate audit.
type Report struct {
	Missing []MissingDependency
	Cycles  [][]string
}

// OK reports whether the audit found no problems.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Cycles) == 0
}

// Validate audits the registry without mutating it or raising: it reports
// every factory dependency key that is not registered, and every cycle among
// factory-to-factory dependency edges, found by depth-first traversal with a
// recursion-stack path.
func (c *Container) Validate() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	var report Report

	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int)

	var visit func(key string, stack []string)
	visit = func(key string, stack []string) {
		if marks[key] == done || marks[key] == visiting {
			return
		}
		marks[key] = visiting
		stack = append(stack, key)

		for _, dep := range c.entries[key].deps {
			target, ok := c.entries[dep]
			if !ok {
				report.Missing = append(report.Missing, MissingDependency{
					Key:        key,
					Dependency: dep,
				})
				continue
			}
			if target.state != stateFactory {
				continue
			}

			switch marks[dep] {
			case visiting:
				report.Cycles = append(report.Cycles, append(stackFrom(stack, dep), dep))
			default:
				visit(dep, stack)
			}
		}

		marks[key] = done
	}

	for _, key := range c.regOrder {
		if c.entries[key].state == stateFactory {
			visit(key, nil)
		}
	}

	return report
}
