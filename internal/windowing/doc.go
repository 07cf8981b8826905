// Package windowing selects the part of a conversation sent to the model
// under an input-token budget. Tool exchanges are atomic: an assistant tool
// request is never sent without its function results, or vice versa.
package windowing
