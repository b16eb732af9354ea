// Package connectors holds the content sources Forager reads from.
// Each subpackage implements driven.ContentSource for one site.
package connectors
