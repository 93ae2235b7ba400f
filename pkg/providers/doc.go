// Package providers contains the HTTP adapter base shared by Sentinel's
// vendor integrations: the Anthropic rule generator (subpackage anthropic)
// and the Daytona sandbox executor (subpackage daytona).
//
// The base client provides connection pooling, bounded retries with
// exponential backoff, status-code classification into typed errors, and a
// coarse health signal derived from consecutive failures. Adapters embed
// Client and speak their vendor's wire format on top of DoJSONRequest.
package providers
