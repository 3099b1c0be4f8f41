package ecs

// intersect returns the entities of base that every other store also holds.
func intersect(base []Entity, others ...store) []Entity {
	out := make([]Entity, 0, len(base))
	for _, e := range base {
		keep := true
		for _, o := range others {
			if o == nil || !o.has(e) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}
	return out
}

// smallest picks the store with the fewest entries to drive iteration.
func smallest(stores ...store) store {
	var best store
	for _, s := range stores {
		if s == nil {
			return nil
		}
		if best == nil || s.len() < best.len() {
			best = s
		}
	}
	return best
}
