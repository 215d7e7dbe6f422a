// Package client contains the client-side access to the Willnicht backend and
// the local database bootstrap.
//
// # Overview
//
//  1. The Client interface is the Remote Store Adapter contract: identity
//     (SignUp, SignIn, RestoreSession, SignOut, Session, Subscribe), listing
//     CRUD (CreateListing, FetchListings, FetchListing, DeleteListing,
//     DeleteAllListings) and the quota calls (CheckQuota, EvaluationCount).
//  2. HTTPClient implements it over HTTP/JSON. It injects the bearer access
//     token, refreshes an expired token once and retries, bounds every call
//     with a timeout and maps transport failures and statuses to sentinels.
//  3. InitDatabase and RunMigrations open the local SQLite file and apply the
//     embedded goose migrations.
//
// # Error Handling
//
// Match with errors.Is: ErrUnavailable, ErrUnauthorized, ErrTimeout,
// ErrQuotaExceeded, ErrNotFound, ErrNotSignedIn.
//
// # Identity
//
// Identity changes are delivered as a stream of models.IdentityEvent values to
// every Subscribe channel. A channel is closed when its context is done.
package client
