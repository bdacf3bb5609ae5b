// Package testdoubles contains spies for the logging, metrics and tracing interfaces
// and a small counter aggregate, shared by the tests of this module.
package testdoubles
