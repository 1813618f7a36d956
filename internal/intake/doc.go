// Package intake is the submission boundary: owner authentication, rate
// limiting, request validation, status queries, and cancellation.
package intake
