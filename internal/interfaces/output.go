package interfaces

// OutputHandler manages the destinations a report or rendered configuration
// can be sent to
type OutputHandler interface {
	// WriteToClipboard copies content to the system clipboard
	WriteToClipboard(content string) error

	// WriteToStdout writes content to standard output
	WriteToStdout(content string) error

	// WriteToFile writes content to the specified file path
	WriteToFile(content string, path string) error

	// OpenInEditor opens the file at path in the specified editor and waits
	// for it to exit
	OpenInEditor(path string, editor string) error
}
