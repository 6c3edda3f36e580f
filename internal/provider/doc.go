// Package provider talks to the Anthropic Messages API. It builds request
// parameters from prepared history and adapts the SDK's server-sent event
// stream to the transport-neutral events the decoder consumes.
package provider
