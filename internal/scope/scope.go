package scope

// Scope is a marker selecting the strategy that governs how many instances a
// provider may produce. Custom markers can be registered with their own
// strategy.
type Scope string

const (
	Prototype Scope = "prototype"
	Singleton Scope = "singleton"
	Request   Scope = "request"
)

// Default is the scope of classes that declare none.
const Default = Prototype

func (s Scope) String() string {
	if s == "" {
		return string(Default)
	}
	return string(s)
}

// Or returns s, or fallback when s is unset.
func (s Scope) Or(fallback Scope) Scope {
	if s == "" {
		return fallback
	}
	return s
}
