// Package tier maps a document's token count onto one of four processing
// strategies. A document's tier is fixed at upload time and never changes.
package tier

// Tier selects the context-construction strategy for a document.
type Tier int

const (
	// DirectInjection emits the full document verbatim.
	DirectInjection Tier = 1
	// SmartTrimming removes boilerplate before injection.
	SmartTrimming Tier = 2
	// ChunkedRetrieval ranks sentence-aligned chunks with BM25.
	ChunkedRetrieval Tier = 3
	// VectorRetrieval narrows candidates by embedding similarity first.
	VectorRetrieval Tier = 4
)

// Thresholds are the inclusive upper token bounds for tiers 1-3. Anything
// above Tier3Max is tier 4.
type Thresholds struct {
	Tier1Max int
	Tier2Max int
	Tier3Max int
}

// DefaultThresholds mirror the documented defaults.
var DefaultThresholds = Thresholds{Tier1Max: 12000, Tier2Max: 25000, Tier3Max: 50000}

// Classify returns the tier for a document of the given token count.
// Monotone: more tokens never yields a lower tier.
func Classify(tokens int, t Thresholds) Tier {
	switch {
	case tokens <= t.Tier1Max:
		return DirectInjection
	case tokens <= t.Tier2Max:
		return SmartTrimming
	case tokens <= t.Tier3Max:
		return ChunkedRetrieval
	default:
		return VectorRetrieval
	}
}

// Info is the fixed human-facing metadata attached to every tier.
type Info struct {
	Tier        int    `json:"tier"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

var infos = map[Tier]Info{
	DirectInjection: {
		Tier:        1,
		Label:       "Direct Injection",
		Color:       "#22c55e",
		Description: "Document fits the context budget and is injected verbatim.",
	},
	SmartTrimming: {
		Tier:        2,
		Label:       "Smart Trimming",
		Color:       "#14b8a6",
		Description: "Boilerplate and redundant whitespace are stripped before injection.",
	},
	ChunkedRetrieval: {
		Tier:        3,
		Label:       "Chunked Retrieval",
		Color:       "#f59e0b",
		Description: "Sentence-aligned chunks are ranked against the query with BM25.",
	},
	VectorRetrieval: {
		Tier:        4,
		Label:       "Vector Retrieval",
		Color:       "#ef4444",
		Description: "Embedding similarity narrows candidates, which then fill the budget in similarity order.",
	},
}

// Info returns the fixed metadata for t. Unknown values report tier 0.
func (t Tier) Info() Info {
	return infos[t]
}

// Valid reports whether t is one of the four defined tiers.
func (t Tier) Valid() bool {
	return t >= DirectInjection && t <= VectorRetrieval
}
