package registry

import "fmt"

// UnknownFunctionError reports an invocation of a name not in the registry.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function: %s", e.Name)
}

// ArgumentError reports arguments that fail schema validation.
type ArgumentError struct {
	Function string
	Param    string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q for %s: %s", e.Param, e.Function, e.Reason)
}
