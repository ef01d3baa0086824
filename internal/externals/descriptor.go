// Package externals decides which module requests a bundle leaves to the host page
// and how each one is referenced at runtime.
package externals

import "strings"

const globalPathSeparatorConstant = "."

// Shape describes how a consumer references an externalized module.
type Shape string

// Supported reference shapes.
const (
	ShapeNamespace    Shape = "namespace"
	ShapeFactory      Shape = "observable-factory"
	ShapeAugmentation Shape = "operator-augmentation"
	ShapeRoot         Shape = "root-namespace"
)

// Descriptor references an externalized module under the four module-loading conventions.
type Descriptor struct {
	Root      []string `json:"root" yaml:"root"`
	CommonJS  string   `json:"commonjs" yaml:"commonjs"`
	CommonJS2 string   `json:"commonjs2" yaml:"commonjs2"`
	AMD       string   `json:"amd" yaml:"amd"`
	Shape     Shape    `json:"-" yaml:"shape"`
}

// GlobalPath joins the root segments into the global-variable path used by script-tag consumers.
func (descriptor Descriptor) GlobalPath() string {
	return strings.Join(descriptor.Root, globalPathSeparatorConstant)
}

func newDescriptor(root []string, identifier string, shape Shape) Descriptor {
	return Descriptor{
		Root:      append([]string(nil), root...),
		CommonJS:  identifier,
		CommonJS2: identifier,
		AMD:       identifier,
		Shape:     shape,
	}
}
