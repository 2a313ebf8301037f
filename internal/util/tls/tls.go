/*
Copyright 2026 The EchoScribe Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// This file provides tls utilities.

package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// GetClientTlsConfig builds a client TLS config, optionally trusting a
// custom CA certificate file.
func GetClientTlsConfig(insecure bool, caCertFile string) (*tls.Config, error) {
	tlsConf := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if insecure {
		tlsConf.InsecureSkipVerify = true
		return tlsConf, nil
	}
	if caCertFile != "" {
		caCert, err := os.ReadFile(caCertFile)
		if err != nil {
			return nil, fmt.Errorf("GetClientTlsConfig: failed to read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("GetClientTlsConfig: no certificates parsed from %s", caCertFile)
		}
		tlsConf.RootCAs = pool
	}
	return tlsConf, nil
}
