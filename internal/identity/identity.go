// Package identity resolves and carries the actor identity attributed to
// each operation.
//
// The registry core never derives identity itself; it reads whatever this
// package put on the context. Authorization decisions (who may analyze,
// who may action) compare that string against record fields, so the
// resolution order here is the whole trust story for a local deployment:
// explicit flag first, then environment, then configuration, then the OS
// user as a last resort.
package identity

import (
	"context"
	"fmt"
	"os"
	"os/user"
)

// EnvVar names the environment variable consulted between the flag and
// the configuration file.
const EnvVar = "CINTEL_ACTOR"

// ctxKey is the private context key for the actor identity.
type ctxKey struct{}

// WithActor returns a context carrying the given actor identity.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// FromContext returns the actor identity on the context, or "" when no
// identity was attached.
func FromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ctxKey{}).(string); ok {
		return actor
	}
	return ""
}

// Resolve determines the acting identity from, in order: the explicit
// flag value, the CINTEL_ACTOR environment variable, the configured
// default, and finally the OS username.
func Resolve(flagValue, configValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env, nil
	}
	if configValue != "" {
		return configValue, nil
	}

	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "", fmt.Errorf("cannot determine actor identity: set --actor, %s, or the actor config key", EnvVar)
	}
	return u.Username, nil
}
