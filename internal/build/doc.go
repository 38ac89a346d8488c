// Package build runs a complete site build for one configuration: a pipeline
// batch over the content root followed by publishing to the output
// directory.
//
// The CLI's build, check and watch paths all route through Service so that
// metrics, events and error classification behave the same everywhere.
package build
