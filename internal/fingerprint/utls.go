// Package fingerprint builds HTTP transports whose TLS ClientHello matches a
// real browser, and pairs each profile with User-Agents of the same family.
package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"

	"github.com/FranksOps/newsprobe/pkg/useragent"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// Profiles lists every accepted profile name.
var Profiles = []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom}

// ParseProfile accepts a profile name case-insensitively. The empty string
// selects ProfileChrome.
func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProfileChrome, nil
	}
	for _, p := range Profiles {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown tls profile %q", s)
}

// UserAgents returns the User-Agents whose browser sends this profile's
// ClientHello. Go and random profiles get the whole default pool.
func (p Profile) UserAgents() []string {
	var family string
	switch p {
	case ProfileChrome:
		family = useragent.Chrome
	case ProfileFirefox:
		family = useragent.Firefox
	case ProfileSafari:
		family = useragent.Safari
	default:
		return append([]string(nil), useragent.DefaultPool...)
	}
	return useragent.Filter(useragent.DefaultPool, family)
}

func (p Profile) clientHello() (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedNoALPN, nil
	}
	return utls.ClientHelloID{}, fmt.Errorf("unknown tls profile %q", p)
}

// Transport returns an http.RoundTripper configured with the specified TLS
// fingerprint profile. ProfileGo yields a plain http.Transport; the others
// perform a uTLS handshake that only offers http/1.1 over ALPN, since
// http.Transport cannot speak HTTP/2 over a custom TLS conn.
// proxyFunc is optional.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	return transport(p, proxyFunc, false)
}

func transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error), insecure bool) (*http.Transport, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		tr.Proxy = proxyFunc
	}
	if p == ProfileGo {
		if insecure {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return tr, nil
	}

	id, err := p.clientHello()
	if err != nil {
		return nil, err
	}

	custom := p != ProfileRandom
	if custom {
		if _, err := helloSpec(id); err != nil {
			return nil, fmt.Errorf("load %s client hello: %w", p, err)
		}
	}

	tr.ForceAttemptHTTP2 = false
	dial := tr.DialContext
	tr.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		cfg := &utls.Config{ServerName: host, InsecureSkipVerify: insecure}
		var uConn *utls.UConn
		if custom {
			// ApplyPreset mutates the extensions, so every handshake gets a
			// fresh spec.
			spec, err := helloSpec(id)
			if err != nil {
				_ = tcpConn.Close()
				return nil, err
			}
			uConn = utls.UClient(tcpConn, cfg, utls.HelloCustom)
			if err := uConn.ApplyPreset(spec); err != nil {
				_ = tcpConn.Close()
				return nil, fmt.Errorf("apply %s client hello: %w", p, err)
			}
		} else {
			uConn = utls.UClient(tcpConn, cfg, id)
		}

		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}

	return tr, nil
}

// helloSpec loads the ClientHello for id with ALPN restricted to http/1.1.
func helloSpec(id utls.ClientHelloID) (*utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return &spec, nil
}
