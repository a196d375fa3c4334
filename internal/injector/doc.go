// Package injector assembles shared dependencies with google/wire.
// Run `wire ./internal/injector` to regenerate the injectors.
package injector
