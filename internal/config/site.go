package config

import "net"

// SiteConfig holds settings for one host.
type SiteConfig struct {
	// Headers are extra HTTP headers sent with requests for this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Concurrency overrides the number of resources downloaded at once.
	// Zero keeps the global value.
	Concurrency int `yaml:"concurrency,omitempty"`

	// KeepQueryHash adds a query string hash to local names.
	// It can only turn the option on.
	KeepQueryHash bool `yaml:"keepQueryHash,omitempty"`
}

// File represents the structure of the .pageloader configuration file.
type File struct {
	// Sites maps hosts (e.g. "example.com" or "localhost:8080") to their
	// configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged with the defaults.
// An entry keyed by the exact host wins over one keyed by the host name
// without port.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		if name, _, err := net.SplitHostPort(host); err == nil {
			siteConfig, ok = cf.Sites[name]
		}
	}
	if !ok {
		return result
	}

	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.Concurrency != 0 {
		result.Concurrency = siteConfig.Concurrency
	}
	if siteConfig.KeepQueryHash {
		result.KeepQueryHash = true
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}

	return result
}
