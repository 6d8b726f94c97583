package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithIncludes registers the WGSL struct sources available to //@oxy:include lines.
//
// Parameters:
//   - includes: struct sources keyed by include name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the include registry for this shader
func WithIncludes(includes map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		s.includes = includes
	}
}
