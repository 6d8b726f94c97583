package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// instanceInputStruct is the struct name that marks per-instance vertex input.
const instanceInputStruct = "InstanceInput"

var (
	structRegex    = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	attributeRegex = regexp.MustCompile(`@(\w+)(?:\(([^)]*)\))?`)
	resourceRegex  = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
	workgroupRegex = regexp.MustCompile(`@workgroup_size\(([^)]*)\)`)
	entryRegex     = regexp.MustCompile(`@(vertex|fragment|compute)\b[^{]*?\bfn\s+(\w+)`)
)

var stageAttributes = map[ShaderType]string{
	ShaderTypeVertex:   "vertex",
	ShaderTypeFragment: "fragment",
	ShaderTypeCompute:  "compute",
}

// wgslMember is one member of a WGSL struct.
type wgslMember struct {
	name     string
	typeName string
	location int
	builtin  bool
}

// wgslStruct is a struct declaration in source order.
type wgslStruct struct {
	name    string
	members []wgslMember
}

// vertexInput reports whether every member carries @location and none is a builtin, which is
// how vertex inputs differ from inter-stage outputs.
func (s wgslStruct) vertexInput() bool {
	if len(s.members) == 0 {
		return false
	}
	for _, m := range s.members {
		if m.builtin || m.location < 0 {
			return false
		}
	}
	return true
}

// wgslModule is a comment-free WGSL source with its structs resolved to host-shareable
// layouts. It is built once per shader.
type wgslModule struct {
	text    string
	structs []wgslStruct
	layouts map[string]typeLayout
}

// scanModule strips comments from source, collects struct declarations and resolves their
// layouts.
//
// Parameters:
//   - source: WGSL source with includes already expanded
//
// Returns:
//   - *wgslModule: the scanned module
func scanModule(source string) *wgslModule {
	m := &wgslModule{text: uncomment(source), layouts: make(map[string]typeLayout)}
	for _, match := range structRegex.FindAllStringSubmatch(m.text, -1) {
		m.structs = append(m.structs, wgslStruct{name: match[1], members: parseMembers(match[2])})
	}
	m.resolveLayouts()
	return m
}

// resolveLayouts sizes structs in dependency order. Structs that reference an unknown type
// stay unresolved.
func (m *wgslModule) resolveLayouts() {
	pending := append([]wgslStruct(nil), m.structs...)
	for len(pending) > 0 {
		var blocked []wgslStruct
		for _, s := range pending {
			if l, ok := m.structLayout(s); ok {
				m.layouts[s.name] = l
				continue
			}
			blocked = append(blocked, s)
		}
		if len(blocked) == len(pending) {
			return
		}
		pending = blocked
	}
}

// structLayout places each member at its aligned offset and rounds the total up to the
// largest member alignment. A trailing runtime-sized array contributes one element.
func (m *wgslModule) structLayout(s wgslStruct) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, member := range s.members {
		if member.builtin {
			continue
		}
		l, ok := m.typeLayout(member.typeName)
		if !ok {
			return typeLayout{}, false
		}
		offset = alignUp(offset, l.align) + l.size
		align = max(align, l.align)
	}
	return typeLayout{size: alignUp(offset, align), align: align}, true
}

// typeLayout resolves a numeric type, a resolved struct or an array of either. A runtime-sized
// array resolves to one element stride so it can serve as a minimum binding size.
func (m *wgslModule) typeLayout(name string) (typeLayout, bool) {
	if n, ok := parseNumeric(name); ok {
		return n.layout(), true
	}
	if l, ok := m.layouts[name]; ok {
		return l, true
	}
	elem, count, sized, ok := arrayType(name)
	if !ok {
		return typeLayout{}, false
	}
	el, ok := m.typeLayout(elem)
	if !ok {
		return typeLayout{}, false
	}
	if !sized {
		count = 1
	}
	return typeLayout{size: count * el.stride(), align: el.align}, true
}

// structSize returns the size of a resolved struct.
func (m *wgslModule) structSize(name string) (uint64, bool) {
	l, ok := m.layouts[name]
	return l.size, ok
}

// entryPoint returns the name of the first function tagged for stage, or "".
func (m *wgslModule) entryPoint(stage ShaderType) string {
	want, ok := stageAttributes[stage]
	if !ok {
		return ""
	}
	for _, match := range entryRegex.FindAllStringSubmatch(m.text, -1) {
		if match[1] == want {
			return match[2]
		}
	}
	return ""
}

// workgroupSize returns the @workgroup_size dimensions with omitted ones set to 1.
func (m *wgslModule) workgroupSize() [3]uint32 {
	size := [3]uint32{1, 1, 1}
	match := workgroupRegex.FindStringSubmatch(m.text)
	if match == nil {
		return size
	}
	for i, dim := range strings.SplitN(match[1], ",", 3) {
		if v, err := strconv.ParseUint(strings.TrimSpace(dim), 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// vertexLayouts builds one buffer layout per vertex input struct. InstanceInput steps per
// instance and is always placed last so its buffer slot is the highest. Structs with a member
// that is not a vertex format are skipped.
func (m *wgslModule) vertexLayouts() []wgpu.VertexBufferLayout {
	var perVertex, perInstance []wgpu.VertexBufferLayout
	for _, s := range m.structs {
		if !s.vertexInput() {
			continue
		}
		layout, ok := vertexBufferLayout(s)
		if !ok {
			continue
		}
		if s.name == instanceInputStruct {
			layout.StepMode = wgpu.VertexStepModeInstance
			perInstance = append(perInstance, layout)
			continue
		}
		perVertex = append(perVertex, layout)
	}
	return append(perVertex, perInstance...)
}

func vertexBufferLayout(s wgslStruct) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	for _, member := range s.members {
		format, size, ok := vertexFormat(member.typeName)
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(member.location),
		})
		layout.ArrayStride += size
	}
	return layout, true
}

// bindGroups collects every @group/@binding declaration into layout descriptors keyed by
// group, entries sorted by binding. Buffer entries get MinBindingSize from the bound type.
func (m *wgslModule) bindGroups(visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	entries := make(map[int][]wgpu.BindGroupLayoutEntry)

	for _, match := range resourceRegex.FindAllStringSubmatch(m.text, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		typeName := strings.TrimSpace(match[5])

		entry := bindingEntry(uint32(binding), visibility, strings.TrimSpace(match[3]), typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := m.typeLayout(typeName); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		entries[group] = append(entries[group], entry)
	}

	descriptors := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for group, list := range entries {
		sort.Slice(list, func(i, j int) bool { return list[i].Binding < list[j].Binding })
		descriptors[group] = wgpu.BindGroupLayoutDescriptor{Entries: list}
	}
	return descriptors
}

// parseMembers splits a struct body at top-level commas and reads each member's attributes,
// name and type.
func parseMembers(body string) []wgslMember {
	var members []wgslMember
	for _, decl := range splitTopLevel(body) {
		decl = strings.TrimSpace(decl)
		member := wgslMember{location: -1}
		for _, attr := range attributeRegex.FindAllStringSubmatch(decl, -1) {
			switch attr[1] {
			case "builtin":
				member.builtin = true
			case "location":
				if loc, err := strconv.Atoi(strings.TrimSpace(attr[2])); err == nil {
					member.location = loc
				}
			}
		}
		decl = strings.TrimSpace(attributeRegex.ReplaceAllString(decl, ""))
		name, typeName, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		member.name = strings.TrimSpace(name)
		member.typeName = strings.TrimSpace(typeName)
		members = append(members, member)
	}
	return members
}

// splitTopLevel splits s at commas outside angle brackets so array<T, N> stays whole.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// uncomment removes // line comments and nested /* */ block comments in one pass. Newlines
// that end a line comment are kept.
func uncomment(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		rest := source[i:]
		switch {
		case strings.HasPrefix(rest, "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(rest, "*/"):
			depth--
			i++
		case depth > 0:
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
