// Package normalisers turns text fetched from Reddit or written by the model
// into forms suited to a particular output.
//
// The markdown subpackage flattens markdown to plain text for outputs that
// cannot render it, such as feed descriptions.
package normalisers
