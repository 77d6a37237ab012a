// Package testutil provides shared test infrastructure used across this
// module's package tests: context helpers, assertions, and eventually-
// consistent polling helpers. Package tests should prefer these over
// reimplementing the same boilerplate.
package testutil
