package pipeline

import "context"

type triggerKey struct{}

// WithTrigger tags ctx with what started the run (http, cli, cron, watch).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger of ctx, "http" when unset.
func TriggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return "http"
}
