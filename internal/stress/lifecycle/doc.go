// Package lifecycle contains the built-in lifecycles that can be declared in
// a configuration file instead of being written in Go.
//
// Each constructor returns a stress.Factory. The factory is called once per
// instance, so every instance gets its own state (for http, its own client
// and connection pool).
package lifecycle
