package skillgraph

// Strand is a subject strand (the "domain" a node belongs to).
type Strand string

const (
	StrandNumberPlace Strand = "number-and-place-value"
	StrandAddSub      Strand = "addition-and-subtraction"
	StrandMultDiv     Strand = "multiplication-and-division"
	StrandFractions   Strand = "fractions"
)

// StrandDisplayName returns a human-readable name for a strand.
func StrandDisplayName(s Strand) string {
	switch s {
	case StrandNumberPlace:
		return "Number & Place Value"
	case StrandAddSub:
		return "Addition & Subtraction"
	case StrandMultDiv:
		return "Multiplication & Division"
	case StrandFractions:
		return "Fractions"
	default:
		return string(s)
	}
}

// Relationship describes how an edge's source depends on its target.
type Relationship string

const (
	RelRequires    Relationship = "requires"
	RelStrengthens Relationship = "strengthens"
	RelEnables     Relationship = "enables"
)

// rank orders relationships from strongest to weakest dependency.
func (r Relationship) rank() int {
	switch r {
	case RelRequires:
		return 0
	case RelStrengthens:
		return 1
	case RelEnables:
		return 2
	default:
		return 3
	}
}

func (r Relationship) valid() bool {
	return r.rank() < 3
}

// Node defaults applied at load time when a field is left zero.
const (
	DefaultSeverity            = 3
	DefaultQuestionsRequired   = 2
	DefaultConfidenceThreshold = 0.80
	DefaultEdgeWeight          = 1.0
)

// Node is a single curriculum skill.
type Node struct {
	Code                string
	Name                string
	Description         string
	Strand              Strand
	GradeLevel          int
	Severity            int     // 1 (minor) to 5 (foundational)
	QuestionsRequired   int     // uncertain attempts allowed before falling back to gap
	ConfidenceThreshold float64 // classification confidence needed to trust a result

	// Priority marks the node as part of the fixed root-cause screening set,
	// probed regardless of the learner's grade.
	Priority bool

	// ProbePrompt is an optional canned question for this node.
	ProbePrompt string

	// ExpectedAnswer is the canonical answer to ProbePrompt, if any.
	ExpectedAnswer string
}

// Edge is a prerequisite edge: Source depends on Target.
type Edge struct {
	Source       string
	Target       string
	Relationship Relationship
	Weight       float64
}

// Misconception is a known error pattern attached to exactly one node.
// The engine only carries its ID; description and evidence are read by
// response classifiers.
type Misconception struct {
	ID          string
	NodeCode    string
	Label       string
	Description string
	Evidence    string
}

// Cascade is a precomputed sequence of compounding prerequisite failures.
type Cascade struct {
	ID        string
	Name      string
	Nodes     []string
	EntryNode string
}

// Data is the raw input to Load.
type Data struct {
	Version        string
	Nodes          []Node
	Edges          []Edge
	Misconceptions []Misconception
	Cascades       []Cascade
}

// TraceStep is one node reached by a backward trace.
type TraceStep struct {
	Code  string
	Depth int    // 1 for direct prerequisites
	Via   string // the dependent through which this node was first reached
}
