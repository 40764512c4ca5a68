package openapi

import "strings"

const defaultOpenAPIVersion = "3.0.3"

type documentConfig struct {
	openAPIVersion string
	info           Info
	contentType    string
}

// Info is the document's info block.
type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

func defaultDocumentConfig() documentConfig {
	return documentConfig{
		openAPIVersion: defaultOpenAPIVersion,
		info: Info{
			Title:   "POI Markers API",
			Version: "1.0.0",
		},
		contentType: "application/json",
	}
}

// Option configures a Builder.
type Option func(*documentConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) Option {
	return func(cfg *documentConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// InfoOption configures optional fields on the info block.
type InfoOption func(*Info)

// WithInfoDescription sets the info description.
func WithInfoDescription(description string) InfoOption {
	return func(info *Info) {
		info.Description = description
	}
}

// WithInfo sets the title and version. Empty strings keep the defaults.
func WithInfo(title, version string, opts ...InfoOption) Option {
	return func(cfg *documentConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// WithContentType sets the media type used for request and response bodies.
func WithContentType(contentType string) Option {
	return func(cfg *documentConfig) {
		contentType = strings.TrimSpace(contentType)
		if contentType == "" {
			return
		}
		cfg.contentType = contentType
	}
}
