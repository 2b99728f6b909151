package ssn

//go:generate mockgen -source=transport.go -destination=transport_mock.go -package=ssn

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TLSOptions configures server certificate checks.
type TLSOptions struct {
	Verify bool
	CAFile string
}

// newHTTPClient returns a client that negotiates TLS 1.2 or newer and
// trusts the system roots plus the optional CA bundle.
func newHTTPClient(opts TLSOptions, timeout time.Duration) (*http.Client, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if !opts.Verify {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // disabled explicitly in config
	} else if opts.CAFile != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no PEM certificates found in %s", opts.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
