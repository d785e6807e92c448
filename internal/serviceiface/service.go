// Package serviceiface is the lifecycle contract every process component
// implements so the app manager can start them in order and stop them in
// reverse.
package serviceiface

type Service interface {
	Name() string
	Start() error
	Stop() error
}
