package entropy

// Scripted replays fixed sequences of draws. Once a sequence is exhausted it
// keeps returning the fallback value, so unscripted gates behave predictably.
type Scripted struct {
	Floats []float64
	Ints   []int

	// FloatFallback is returned once Floats runs out. The zero value means
	// every probability gate passes.
	FloatFallback float64
	// IntFallback is returned (clamped to n-1) once Ints runs out.
	IntFallback int
}

// Never returns a Scripted source whose probability gates never pass.
func Never() *Scripted {
	return &Scripted{FloatFallback: 0.999999}
}

// Always returns a Scripted source whose probability gates always pass and
// whose picks always choose the first element.
func Always() *Scripted {
	return &Scripted{}
}

func (s *Scripted) Float64() float64 {
	if len(s.Floats) == 0 {
		return s.FloatFallback
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

func (s *Scripted) Intn(n int) int {
	v := s.IntFallback
	if len(s.Ints) > 0 {
		v = s.Ints[0]
		s.Ints = s.Ints[1:]
	}
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
