// Package memory provides in-process implementations of the storage ports.
// Contents are lost when the process exits; use it for tests and throwaway runs.
package memory
