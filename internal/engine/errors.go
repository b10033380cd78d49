package engine

import (
	"errors"
	"fmt"
)

// ErrNotSignedIn is returned by every basket operation attempted without an
// active supporter session. Always recoverable: the caller should prompt a
// re-login.
var ErrNotSignedIn = errors.New("no supporter is signed in")

// NeedNotFoundError reports a mutation referencing a need that is not in the
// cupboard. The caller should refresh its view of available needs.
type NeedNotFoundError struct {
	Name string
}

func (e *NeedNotFoundError) Error() string {
	return fmt.Sprintf("need %q is not in the cupboard", e.Name)
}

// UserNotFoundError reports a login for a username with no account.
type UserNotFoundError struct {
	Username string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("no user with username %q", e.Username)
}
