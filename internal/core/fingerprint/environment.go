package fingerprint

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/term"
)

// ErrSignalUnavailable is returned by an Environment getter whose signal
// cannot be read.
var ErrSignalUnavailable = errors.New("fingerprint: signal unavailable")

// Environment supplies the raw signals a fingerprint is built from.
// Any getter may fail.
type Environment interface {
	UserID() (string, error)
	Platform() (string, error)
	Screen() (string, error)
	Timezone() (string, error)
	Locale() (string, error)
}

// SystemEnvironment reads signals from the running process. The screen
// size is captured once at construction; later terminal resizes do not
// move the fingerprint.
type SystemEnvironment struct {
	userID    string
	screen    string
	screenErr error
	getenv    func(string) string
	now       func() time.Time
}

// NewSystemEnvironment returns an Environment for the current process.
// userID is the authenticated user, or "" when there is none.
func NewSystemEnvironment(userID string) *SystemEnvironment {
	return newSystemEnvironment(userID, stdoutSize)
}

func newSystemEnvironment(userID string, size func() (int, int, error)) *SystemEnvironment {
	e := &SystemEnvironment{
		userID: userID,
		getenv: os.Getenv,
		now:    time.Now,
	}
	w, h, err := size()
	switch {
	case errors.Is(err, ErrSignalUnavailable):
		e.screenErr = err
	case err != nil:
		e.screenErr = fmt.Errorf("fingerprint: screen: %w", err)
	default:
		e.screen = fmt.Sprintf("%dx%d", w, h)
	}
	return e
}

func stdoutSize() (int, int, error) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0, 0, ErrSignalUnavailable
	}
	return term.GetSize(fd)
}

// UserID returns the configured user id.
func (e *SystemEnvironment) UserID() (string, error) {
	if e.userID == "" {
		return "", ErrSignalUnavailable
	}
	return e.userID, nil
}

// Platform returns GOOS/GOARCH.
func (e *SystemEnvironment) Platform() (string, error) {
	return runtime.GOOS + "/" + runtime.GOARCH, nil
}

// Screen returns the stdout terminal size seen at construction, as "WxH".
func (e *SystemEnvironment) Screen() (string, error) {
	return e.screen, e.screenErr
}

// Timezone returns the local zone name and UTC offset in minutes.
func (e *SystemEnvironment) Timezone() (string, error) {
	name, offset := e.now().Zone()
	return fmt.Sprintf("%s%+d", name, offset/60), nil
}

// Locale returns the first of LC_ALL, LC_MESSAGES, LANG that is set.
func (e *SystemEnvironment) Locale() (string, error) {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := e.getenv(k); v != "" {
			return v, nil
		}
	}
	return "", ErrSignalUnavailable
}

var _ Environment = (*SystemEnvironment)(nil)
