package sentinel

import "errors"

// ErrNotFound is the infrastructure fact "this entity does not exist (or is
// not yet visible) upstream". Clients return it, optionally wrapped, so
// callers can branch on existence without parsing upstream responses. For
// validation failures use pkg/domain-errors instead.
var ErrNotFound = errors.New("not found")
