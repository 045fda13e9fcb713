package gnews

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInterception is wrapped by every InterceptionError.
var ErrInterception = errors.New("google news: request intercepted")

// InterceptionKind distinguishes the two anti-automation responses.
type InterceptionKind int

const (
	// HardBlock is a redirect into the challenge subsystem with nothing a
	// user could act on.
	HardBlock InterceptionKind = iota + 1
	// Captcha means the provider explicitly asks for a CAPTCHA.
	Captcha
)

func (k InterceptionKind) String() string {
	switch k {
	case HardBlock:
		return "hard_block"
	case Captcha:
		return "captcha"
	default:
		return "unknown"
	}
}

// InterceptionError is returned instead of results when the provider served
// a challenge page.
type InterceptionError struct {
	Kind    InterceptionKind
	Message string
	URL     string
}

func (e *InterceptionError) Error() string {
	return "google news " + e.Kind.String() + ": " + e.Message
}

func (e *InterceptionError) Unwrap() error { return ErrInterception }

// IsHardBlock reports whether err is a HardBlock interception.
func IsHardBlock(err error) bool {
	var ie *InterceptionError
	return errors.As(err, &ie) && ie.Kind == HardBlock
}

// IsCaptcha reports whether err is a Captcha interception.
func IsCaptcha(err error) bool {
	var ie *InterceptionError
	return errors.As(err, &ie) && ie.Kind == Captcha
}

// CheckInterception inspects the final URL of a response. It returns nil for
// an ordinary result page and for URLs it cannot parse.
func (c *Config) CheckInterception(finalURL string) *InterceptionError {
	u, err := url.Parse(finalURL)
	if err != nil {
		return nil
	}
	if strings.EqualFold(u.Hostname(), c.challengeHost) || u.Path == c.indexRedirect {
		return &InterceptionError{Kind: HardBlock, Message: c.challengeHost, URL: finalURL}
	}
	if strings.HasPrefix(u.Path, c.challengePrefix) {
		return &InterceptionError{Kind: Captcha, Message: "CAPTCHA required", URL: finalURL}
	}
	return nil
}
