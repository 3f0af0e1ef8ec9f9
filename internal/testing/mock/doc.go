// Package mock provides test doubles for indiestream components.
//
//   - MockClock: a controllable clock with timers, used to simulate token
//     expiry and renewal without waiting for real time to pass.
//   - IdentityProvider: an in-process OpenID Connect provider with
//     discovery, authorization, token (authorization_code and
//     refresh_token grants with PKCE) and revocation endpoints.
//   - CatalogServer: an in-process catalog API serving /games.
//
// Both servers run on httptest and record the requests they receive so
// tests can assert on headers such as Authorization.
package mock
