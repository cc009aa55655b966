package search

// PruningOptions is the tunable/toggle surface behind the search worker's
// pruning and extension heuristics, exposed as USI setoption entries per
// spec.md §6.3's "individual pruning toggles ... and their margins."
// Grounded on internal/engine/worker.go's Enable* flags and margin
// constants (probCutBeta, singular-extension margins, …), generalized
// from package-level constants into a value every Worker shares so
// setoption can retune a running engine between searches.
type PruningOptions struct {
	NMP          bool
	Razoring     bool
	StaticBeta   bool // reverse futility / static-beta pruning at the node
	Futility     bool
	LMP          bool
	SEEPruning   bool
	ProbCut      bool
	SmallProbCut bool
	IID          bool // internal iterative reduction when no TT move is present
	SingularExt  bool
	QSChecks     bool // quiescence also tries a few non-capture checking moves

	ProbCutMargin      int
	SmallProbCutMargin int
	StaticBetaMargin   int
	RazorMargin        int
	FutilityBase       int
	SingularMargin     int
	QSMaxQuietChecks   int
}

// DefaultPruningOptions returns every heuristic enabled at the teacher's
// tuned magnitudes (see the margin comments at each call site in
// worker.go), matching the teacher's own stance of shipping every
// technique on by default and letting setoption dial individual ones
// back for testing or weaker hardware.
func DefaultPruningOptions() PruningOptions {
	return PruningOptions{
		NMP:          true,
		Razoring:     true,
		StaticBeta:   true,
		Futility:     true,
		LMP:          true,
		SEEPruning:   true,
		ProbCut:      true,
		SmallProbCut: true,
		IID:          true,
		SingularExt:  true,
		QSChecks:     true,

		ProbCutMargin:      235,
		SmallProbCutMargin: 400,
		StaticBetaMargin:   80,
		RazorMargin:        280,
		FutilityBase:       200,
		SingularMargin:     53,
		QSMaxQuietChecks:   4,
	}
}
