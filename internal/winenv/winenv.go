// Package winenv answers questions about the running Windows session: who the
// user is, whether the process is elevated, and enabling the privileges
// needed to mount hive files.
package winenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joshuapare/regrescue/internal/sysexec"
)

var (
	// ErrUnsupported is returned by every OS-bound call off Windows.
	ErrUnsupported = errors.New("winenv: not supported on this platform")
	// ErrNoSID reports that no SID could be determined.
	ErrNoSID = errors.New("winenv: no user SID")
	// ErrNoUser reports an unknown user name.
	ErrNoUser = errors.New("winenv: no user name")
)

var sidPattern = regexp.MustCompile(`(?i)\bS-1-\d+(?:-\d+)+\b`)

// ParseSID returns the first SID found in text, such as `whoami /user` output.
func ParseSID(text string) (string, error) {
	sid := sidPattern.FindString(text)
	if sid == "" {
		return "", ErrNoSID
	}
	return strings.ToUpper(sid), nil
}

// CurrentUserSID returns the SID of the process owner. When the token cannot
// be queried it falls back to `whoami /user`.
func CurrentUserSID(ctx context.Context, r sysexec.Runner) (string, error) {
	sid, err := tokenSID()
	if err == nil && sid != "" {
		return sid, nil
	}
	if r == nil {
		return "", errors.Join(ErrNoSID, err)
	}
	out, werr := r.Run(ctx, "whoami", "/user")
	if werr != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSID, errors.Join(err, werr))
	}
	return ParseSID(string(out))
}

// UserName returns the profile folder name of the current user. USERNAME is
// preferred because it names the folder under C:\Users.
func UserName() (string, error) {
	if u := os.Getenv("USERNAME"); u != "" {
		return u, nil
	}
	u, err := tokenUserName()
	if err != nil {
		return "", errors.Join(ErrNoUser, err)
	}
	return u, nil
}

// Identity bundles the user facts a repair needs.
type Identity struct {
	SID   string
	User  string
	Admin bool
}

// Current resolves the Identity of this process.
func Current(ctx context.Context, r sysexec.Runner) (Identity, error) {
	sid, err := CurrentUserSID(ctx, r)
	if err != nil {
		return Identity{}, err
	}
	user, err := UserName()
	if err != nil {
		return Identity{}, err
	}
	return Identity{SID: sid, User: user, Admin: IsAdmin()}, nil
}
