package toolregistry

import "os"

// readFile is the trivial file-read backing read_file. Left unsandboxed:
// the tool's concrete implementation is explicitly out of scope, only its
// interface needs to exist for the chat orchestration core to exercise.
func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
