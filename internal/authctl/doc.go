// Package authctl implements the authkeeper maintenance command line.
//
// It talks to the user store directly, bypassing the HTTP API, and is meant
// for operators seeding or cleaning up accounts:
//
//	authctl [config flags] list
//	authctl [config flags] add [-name "Full Name"] <username>
//	authctl [config flags] delete <username>
//
// Config flags are the same as the server's (-c, -b, -f, -d, ...).
package authctl
