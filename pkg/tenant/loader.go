package tenant

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of the tenants file:
//
//	tenants:
//	  acme:
//	    baseUrl: https://api.example.com/scim/v2
//	    oauth:
//	      clientId: dirbridge
//	      clientSecret: ${ACME_CLIENT_SECRET}
//	      tokenUrl: https://login.example.com/oauth2/token
//	    rateLimits: {requestsPerSecond: 10, requestsPerMinute: 100, burstLimit: 20}
//	    retryConfig: {maxAttempts: 3, backoffStrategy: exponential, baseDelayMs: 200, maxDelayMs: 5000}
//	    timeouts: {connectionTimeoutMs: 5000, requestTimeoutMs: 30000}
type File struct {
	Tenants map[string]Config `yaml:"tenants"`
}

// Parse reads a tenants document. ${VAR} references are expanded from the
// environment before decoding so secrets can stay out of the file.
// Defaults are applied and every tenant is validated.
func Parse(r io.Reader) ([]Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrLoadingFile, err)
	}
	raw = []byte(os.ExpandEnv(string(raw)))

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrLoadingFile, err)
	}

	configs := make([]Config, 0, len(f.Tenants))
	for id, cfg := range f.Tenants {
		cfg.ID = id
		cfg, err := prepare(cfg)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	slices.SortFunc(configs, func(a, b Config) int { return strings.Compare(a.ID, b.ID) })
	return configs, nil
}

// LoadFile parses the tenants file at path.
func LoadFile(path string) ([]Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrLoadingFile, err)
	}
	defer f.Close()

	configs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return configs, nil
}
