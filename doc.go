// Package guestalbum is a client for an event album service: hosts log in
// and own albums, guests holding an access code upload media without an
// account.
//
// Session:
//   - State is an immutable snapshot driven by a closed set of actions through
//     Reduce. Manager is its only mutator. Every token transition is mirrored
//     into the API Authorization header and the CredentialStore before the
//     manager lock is released.
//   - Start seeds the token from the store and re-validates it once through the
//     profile endpoint. A rejected token drops the session to anonymous and
//     clears the store.
//   - Results that arrive after a logout are discarded and reported as
//     ErrSuperseded.
//
// Guest uploads:
//   - Resolver turns an access code into album metadata and a write scoped
//     Capability. It never looks at the session.
//   - Gate checks the declared MIME type against the allow list. Only an
//     Admitted value, which Gate alone can build, is accepted by Submitter.
//   - Submitter makes exactly one request per call; any failure is
//     ErrUploadFailed.
//
// Activity sinks:
//   - ActivitySink receives session and upload events best effort (errors are
//     logged) so they can be forwarded without blocking the caller.
package guestalbum
