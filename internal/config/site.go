package config

import (
	"maps"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/netclient"
)

// SiteConfig holds request settings for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// ScanSettings overrides the built-in scan defaults.
type ScanSettings struct {
	MaxLinks     int           `yaml:"maxLinks,omitempty"`
	Concurrency  int           `yaml:"concurrency,omitempty"`
	CheckTimeout time.Duration `yaml:"checkTimeout,omitempty"`
	FetchTimeout time.Duration `yaml:"fetchTimeout,omitempty"`
	UserAgent    string        `yaml:"userAgent,omitempty"`
	Proxy        string        `yaml:"proxy,omitempty"`
}

// File represents the structure of the .linkscan configuration file.
type File struct {
	// Scan overrides the default scan settings.
	Scan ScanSettings `yaml:"scan,omitempty"`

	// Sites maps host names to their request settings.
	// Keys are host names without scheme or port (e.g., "docs.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains request settings applied to every host
	// unless overridden in the host-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the host-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{
		Cookie:  cf.Defaults.Cookie,
		Headers: maps.Clone(cf.Defaults.Headers),
	}

	if siteConfig, ok := cf.Sites[strings.ToLower(host)]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			maps.Copy(result.Headers, siteConfig.Headers)
		}
	}

	return result
}

// HTTPSites converts the file into the per-host settings of the HTTP
// client. Defaults become the netclient.AnyHost entry.
func (cf *File) HTTPSites() map[string]netclient.Site {
	if cf == nil {
		return nil
	}

	sites := make(map[string]netclient.Site, len(cf.Sites)+1)
	if cf.Defaults.Cookie != "" || len(cf.Defaults.Headers) > 0 {
		sites[netclient.AnyHost] = netclient.Site{
			Cookie:  cf.Defaults.Cookie,
			Headers: maps.Clone(cf.Defaults.Headers),
		}
	}
	for host := range cf.Sites {
		sc := cf.GetSiteConfig(host)
		sites[strings.ToLower(host)] = netclient.Site{
			Cookie:  sc.Cookie,
			Headers: sc.Headers,
		}
	}
	return sites
}
