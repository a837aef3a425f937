package effects

// Stack is an ordered multiset of effects, oldest first.
// It is not safe for concurrent use; the engine serializes access per game.
type Stack []Effect

// Push appends an effect.
func (s *Stack) Push(e Effect) {
	*s = append(*s, e)
}

// Has reports whether any effect of type t is present.
func (s Stack) Has(t Type) bool {
	for _, e := range s {
		if e.Type == t {
			return true
		}
	}
	return false
}

// Count returns the number of effects of type t.
func (s Stack) Count(t Type) int {
	n := 0
	for _, e := range s {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Consume removes the oldest effect of type t and returns it.
func (s *Stack) Consume(t Type) (Effect, bool) {
	for i, e := range *s {
		if e.Type == t {
			*s = append((*s)[:i:i], (*s)[i+1:]...)
			return e, true
		}
	}
	return Effect{}, false
}

// ConsumeAny consumes the first effect of each listed type that is present
// and returns the types actually consumed.
func (s *Stack) ConsumeAny(types ...Type) []Type {
	var consumed []Type
	for _, t := range types {
		if _, ok := s.Consume(t); ok {
			consumed = append(consumed, t)
		}
	}
	return consumed
}

// Clone returns an independent copy.
func (s Stack) Clone() Stack {
	if s == nil {
		return nil
	}
	out := make(Stack, len(s))
	for i, e := range s {
		out[i] = e
		if e.Expiry != nil {
			exp := *e.Expiry
			out[i].Expiry = &exp
		}
	}
	return out
}
