package app

import (
	"reflect"
)

// Describer is an optional interface that modules can implement to provide
// additional metadata for documentation generation and introspection.
type Describer interface {
	DescribeModule() ModuleDescriptor
}

// ModuleDescriptor captures module-level metadata
type ModuleDescriptor struct {
	Name        string   // Module name
	Version     string   // Module version
	Description string   // Module description
	Tags        []string // Default tags of the module routes
	BasePath    string   // Base path for all module routes
}

// ModuleInfo contains both the module instance and its metadata
type ModuleInfo struct {
	Module     Module           // The actual module instance
	Descriptor ModuleDescriptor // Module metadata
	Package    string           // Go package path
}

// IsDescriber checks if a module implements the Describer interface
func IsDescriber(m Module) (Describer, bool) {
	d, ok := m.(Describer)
	return d, ok
}

func describe(module Module) ModuleInfo {
	info := ModuleInfo{
		Module:  module,
		Package: modulePackage(module),
	}
	if describer, ok := IsDescriber(module); ok {
		info.Descriptor = describer.DescribeModule()
	}
	if info.Descriptor.Name == "" {
		info.Descriptor.Name = module.Name()
	}
	if len(info.Descriptor.Tags) == 0 {
		info.Descriptor.Tags = []string{module.Name()}
	}
	return info
}

// modulePackage extracts the package path from a module instance
func modulePackage(module Module) string {
	moduleType := reflect.TypeOf(module)
	if moduleType.Kind() == reflect.Pointer {
		moduleType = moduleType.Elem()
	}
	return moduleType.PkgPath()
}
