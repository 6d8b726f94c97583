package model

import "github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"

// InstanceSetBuilderOption is a functional option for configuring an InstanceSet via NewInstanceSet.
type InstanceSetBuilderOption func(*instanceSet)

// WithProvider is an option builder that sets the provider holding the instance vertex buffer.
//
// Parameters:
//   - provider: the provider to upload into
//
// Returns:
//   - InstanceSetBuilderOption: a function that applies the provider option to a set
func WithProvider(provider bind_group_provider.BindGroupProvider) InstanceSetBuilderOption {
	return func(s *instanceSet) {
		s.provider = provider
	}
}

// WithDirty marks the set for upload on the first Write.
func WithDirty() InstanceSetBuilderOption {
	return func(s *instanceSet) {
		s.dirty = true
	}
}
