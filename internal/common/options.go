package common

import (
	"go.uber.org/zap"

	"oxray-share/internal/importer"
)

// ServiceOptions defines common options for service constructors
type ServiceOptions struct {
	Logger         *zap.Logger
	Env            string
	ProfileCreator importer.ProfileCreator
	DocumentStore  importer.DocumentStore
}

// Option defines a service option modifier
type Option func(*ServiceOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *ServiceOptions) {
		o.Logger = logger
	}
}

func WithEnv(env string) Option {
	return func(o *ServiceOptions) {
		o.Env = env
	}
}

// WithProfileCreator wires the host callback that registers an imported
// configuration as a profile.
func WithProfileCreator(creator importer.ProfileCreator) Option {
	return func(o *ServiceOptions) {
		o.ProfileCreator = creator
	}
}

// WithDocumentStore overrides the default file-backed document store.
func WithDocumentStore(store importer.DocumentStore) Option {
	return func(o *ServiceOptions) {
		o.DocumentStore = store
	}
}
