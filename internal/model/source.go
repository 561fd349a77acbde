package model

// Path represents a file system path.
type Path string

// Source is one entry of the extraction manifest.
type Source struct {
	// Entry is the manifest line as written, used for deny-list matching and messages.
	Entry string
	// FullPath is Entry resolved against the source root.
	FullPath Path
}
