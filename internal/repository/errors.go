package repository

import "errors"

// ErrNodeNotFound is returned when a NodeRef no longer resolves to an element.
var ErrNodeNotFound = errors.New("node not found")
