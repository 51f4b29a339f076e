// Package execenv holds the state a stage threads through its steps: the
// project directory, the environment handed to child processes and the
// active virtualenv. Nothing here touches the process environment, so
// activating a virtualenv only affects commands started with this Context.
package execenv
