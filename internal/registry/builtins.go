package registry

import (
	"context"
	"time"
)

// RegisterBuiltins adds the functions every deployment gets regardless
// of which collaborators are configured.
func RegisterBuiltins(r *Registry) error {
	return r.Register(Definition{
		Name:        "current_time",
		Description: "Get the current date and time.",
		Parameters: map[string]Param{
			"timezone": {Type: "string", Description: "IANA timezone name, default local"},
		},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		now := time.Now()
		if tz, ok := args["timezone"].(string); ok && tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return nil, &ArgumentError{Function: "current_time", Param: "timezone", Reason: err.Error()}
			}
			now = now.In(loc)
		}
		return now.Format(time.RFC1123), nil
	})
}
