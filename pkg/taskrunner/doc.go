// Package taskrunner assembles the runtime of one buildpipe invocation. BuildDependencies wires the
// shell executor, the task catalogue and the registry once, and Resolve hands CLI commands an
// Executor that runs sequence plans and prints a one-line summary, while tests can swap in fakes
// through Factory.
package taskrunner
