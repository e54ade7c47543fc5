package storage

// Store is the blob persistence surface the engine depends on. Paths are
// opaque keys; implementations guarantee atomicity for single-path
// operations only.
type Store interface {
	Read(path string) (string, error)
	ReadBinary(path string) ([]byte, error)
	Write(path string, content string) error
	Append(path string, content string) error
	Rename(path, newPath string) error
	Exists(path string) bool
	ListChildren(path string) ([]string, error)
}
