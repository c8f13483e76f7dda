package constants

// Scope selects which configuration file a change is written to.
type Scope string

const (
	// ScopeLocal writes ./contagion.yaml in the working directory
	ScopeLocal Scope = "local"

	// ScopeGlobal writes ~/.contagion/config.yaml
	ScopeGlobal Scope = "global"
)

// Valid returns true if the scope is a recognized value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLocal, ScopeGlobal:
		return true
	}
	return false
}

// String returns the string representation of the scope.
func (s Scope) String() string {
	return string(s)
}
