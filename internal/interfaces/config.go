package interfaces

// ConfigStore owns the documented defaults and structural validation of the
// device configuration tree
type ConfigStore interface {
	// Defaults returns a tree with every built-in subsystem present and
	// every recognized key set to its documented default
	Defaults() Tree

	// Validate fills any subsystem or recognized key missing from an
	// externally supplied tree with its default. It never removes keys
	// and never fails.
	Validate(tree Tree) Tree
}

// ConfigPersistence reads and writes the device configuration tree
type ConfigPersistence interface {
	// Read parses the file at path, migrates its schema if needed, and
	// returns the validated tree
	Read(path string) (Tree, error)

	// Write serializes the full tree (unrecognized keys included) to path,
	// atomically replacing any previous file
	Write(path string, tree Tree) error
}
