// Package findbar implements the find-in-page session controller that sits
// between a find overlay and the surface being searched.
//
// A Session never searches text itself. It relays queries typed into an
// Overlay to a Target's find capability, keeps track of the request token the
// target handed back, and reconciles the asynchronous FoundResult events the
// target emits afterwards:
//
//   - Overlay messages (query, back, forward, close) go through a fixed
//     decision policy that either starts a new request or advances within the
//     current one.
//   - Every request replaces the pending token. Progress events tagged with any
//     other token are stale and dropped, which is the only protection against
//     late callbacks from a superseded request.
//   - Partial progress updates only accumulate counters; the final update
//     pushes a result command to the overlay and a found notification to
//     subscribers.
//   - Returning focus to the overlay input goes through a Scheduler so hosts
//     can run it on their own event loop.
//
// Session is not safe for concurrent use. All calls, including delivery of
// target events and scheduled tasks, must happen on a single event loop.
package findbar
