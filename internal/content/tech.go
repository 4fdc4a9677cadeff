package content

import "fmt"

// validateTechTree rejects unknown prerequisites and prerequisite cycles.
// The tree is authored content, so this runs once at load time; the research
// engine can then assume the DAG is well-formed.
func (c *Catalog) validateTechTree() error {
	for id, tech := range c.Techs {
		if tech.ID != id {
			return fmt.Errorf("tech %q: id field %q does not match key", id, tech.ID)
		}
		for _, pre := range tech.Prerequisites {
			if _, ok := c.Techs[pre]; !ok {
				return fmt.Errorf("tech %q: unknown prerequisite %q", id, pre)
			}
		}
	}

	const (
		unvisited = 0
		inPath    = 1
		done      = 2
	)
	state := make(map[string]int, len(c.Techs))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case inPath:
			return fmt.Errorf("tech tree cycle through %q", id)
		case done:
			return nil
		}
		state[id] = inPath
		for _, pre := range c.Techs[id].Prerequisites {
			if err := visit(pre); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for id := range c.Techs {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// PrereqsMet reports whether every prerequisite of tech id is present in the
// unlocked set. The caller is responsible for id existing in the catalog.
func (c *Catalog) PrereqsMet(id string, unlocked map[string]bool) bool {
	for _, pre := range c.Techs[id].Prerequisites {
		if !unlocked[pre] {
			return false
		}
	}
	return true
}
