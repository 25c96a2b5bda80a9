// Package repositories holds the persistence collaborators of the posts API.
package repositories

import "errors"

// ErrNotFound is returned by every store when a post does not exist.
var ErrNotFound = errors.New("record not found")
