package audio

// Workspace is the set of temporary paths owned by one pipeline run
type Workspace struct {
	ID          string
	SourcePath  string // uploaded bytes are written here
	TrackDir    string // extracted tracks are written here
	ArchivePath string // the archive is written here
}

// WorkspaceManager allocates workspaces and guarantees their removal.
// Release must be safe to call more than once and must not fail; removal
// problems are reported through the implementation's logger.
type WorkspaceManager interface {
	Acquire(ext string) (*Workspace, error)
	Release(ws *Workspace)
}
