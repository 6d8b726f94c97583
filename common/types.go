// package common contains plain data types and helpers shared across the demo. They are not
// interface-wrapped structs, just values passed between the loaders, the renderer and the show.
package common

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a 2D texture pending GPU upload.
type TextureStagingData struct {
	// Label names the texture in GPU debug output.
	Label string
	// Pixels is the RGBA8 pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the texture width in pixels.
	Width uint32
	// Height is the texture height in pixels.
	Height uint32
}

// Check reports an error when Pixels does not hold exactly Width*Height RGBA texels.
func (t TextureStagingData) Check() error {
	if want := int(t.Width) * int(t.Height) * 4; len(t.Pixels) != want {
		return fmt.Errorf("%s: texture has %d bytes, want %d", t.Label, len(t.Pixels), want)
	}
	return nil
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero fields fall back to the backend defaults (linear filtering, repeat addressing).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode outside [0, 1] for each axis.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp clamp the sampled level of detail.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level.
	MaxAnisotropy uint16
}

// Descriptor builds the sampler descriptor, filling zero fields with linear filtering, repeat
// addressing, a [0, 32] LOD range and anisotropy 1.
func (s SamplerStagingData) Descriptor(label string) *wgpu.SamplerDescriptor {
	d := &wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  s.AddressModeU,
		AddressModeV:  s.AddressModeV,
		AddressModeW:  s.AddressModeW,
		MagFilter:     s.MagFilter,
		MinFilter:     s.MinFilter,
		MipmapFilter:  s.MipmapFilter,
		LodMinClamp:   s.LodMinClamp,
		LodMaxClamp:   s.LodMaxClamp,
		MaxAnisotropy: s.MaxAnisotropy,
	}
	for _, mode := range []*wgpu.AddressMode{&d.AddressModeU, &d.AddressModeV, &d.AddressModeW} {
		if *mode == 0 {
			*mode = wgpu.AddressModeRepeat
		}
	}
	for _, filter := range []*wgpu.FilterMode{&d.MagFilter, &d.MinFilter} {
		if *filter == 0 {
			*filter = wgpu.FilterModeLinear
		}
	}
	if d.MipmapFilter == 0 {
		d.MipmapFilter = wgpu.MipmapFilterModeLinear
	}
	if d.LodMaxClamp == 0 {
		d.LodMaxClamp = 32
	}
	if d.MaxAnisotropy == 0 {
		d.MaxAnisotropy = 1
	}
	return d
}

// VolumeStagingData describes a 3D texture allocation. Volumes are created empty; compute
// shaders fill them.
type VolumeStagingData struct {
	Label  string
	Size   [3]uint32
	Format wgpu.TextureFormat
	// Storage adds StorageBinding usage so compute shaders can write the volume.
	Storage bool
}
