package fingerprint

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/securestore/pkg/token"
)

// hourSeconds is the rotation granularity of the fingerprint.
const hourSeconds = 3600

// Signals is the collected input of one fingerprint computation.
type Signals struct {
	UserID     string `json:"user_id" yaml:"user_id"`
	Platform   string `json:"platform" yaml:"platform"`
	Screen     string `json:"screen" yaml:"screen"`
	Timezone   string `json:"timezone" yaml:"timezone"`
	Locale     string `json:"locale" yaml:"locale"`
	HourBucket int64  `json:"hour_bucket" yaml:"hour_bucket"`

	// Available counts the signals that were read successfully.
	Available int `json:"available" yaml:"available"`
}

// Degraded reports whether no signal could be read.
func (s Signals) Degraded() bool {
	return s.Available == 0
}

func (s Signals) canonical() string {
	return strings.Join([]string{
		s.UserID,
		s.Platform,
		s.Screen,
		s.Timezone,
		s.Locale,
		strconv.FormatInt(s.HourBucket, 10),
	}, "|")
}

// Generator computes fingerprints from an Environment.
type Generator struct {
	env Environment
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the wall clock used for the hour bucket.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a Generator. A nil env is allowed and always yields the
// degraded random fingerprint.
func New(env Environment, opts ...Option) *Generator {
	g := &Generator{
		env: env,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Signals collects the current signals. It never panics.
func (g *Generator) Signals() Signals {
	s := Signals{HourBucket: g.now().Unix() / hourSeconds}
	if g.env == nil {
		return s
	}

	read := func(get func() (string, error)) string {
		v, err := safeRead(get)
		if err != nil {
			return ""
		}
		s.Available++
		return v
	}

	s.UserID = read(g.env.UserID)
	s.Platform = read(g.env.Platform)
	s.Screen = read(g.env.Screen)
	s.Timezone = read(g.env.Timezone)
	s.Locale = read(g.env.Locale)
	return s
}

// Fingerprint returns the SHA-256 hex digest of the current signals.
//
// If every signal is unavailable the result is random and will not
// reproduce on the next call.
func (g *Generator) Fingerprint() (fp string) {
	defer func() {
		if r := recover(); r != nil {
			fp = randomFingerprint()
		}
	}()

	s := g.Signals()
	if s.Degraded() {
		return randomFingerprint()
	}
	return token.Hash(s.canonical())
}

func safeRead(get func() (string, error)) (v string, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = "", fmt.Errorf("fingerprint: signal panicked: %v", r)
		}
	}()
	return get()
}

func randomFingerprint() string {
	if h, err := token.GenerateHex(32); err == nil {
		return h
	}
	return token.Hash(fmt.Sprintf("%d:%d", time.Now().UnixNano(), os.Getpid()))
}
