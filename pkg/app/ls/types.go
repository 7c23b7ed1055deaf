package ls

import (
	"time"

	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// Request represents a directory listing request
type Request struct {
	Target app.ImageTarget

	// Tree holding the directory, the default FS tree unless a subvolume is chosen
	Tree  uint64
	Inode uint64
}

// Response is one decoded directory
type Response struct {
	Tree      uint64      `json:"tree" yaml:"tree"`
	TreeRoot  uint64      `json:"tree_root" yaml:"tree_root"`
	Directory DirInfo     `json:"directory" yaml:"directory"`
	Entries   []EntryInfo `json:"entries" yaml:"entries"`
}

// DirInfo describes the listed directory itself
type DirInfo struct {
	Inode    uint64    `json:"inode" yaml:"inode"`
	Name     string    `json:"name" yaml:"name"`
	Parent   uint64    `json:"parent" yaml:"parent"`
	Mode     string    `json:"mode" yaml:"mode"`
	Links    uint32    `json:"links" yaml:"links"`
	Modified time.Time `json:"modified" yaml:"modified"`
}

// EntryInfo is one directory entry
type EntryInfo struct {
	Index    uint64    `json:"index" yaml:"index"`
	Inode    uint64    `json:"inode" yaml:"inode"`
	Name     string    `json:"name" yaml:"name"`
	Type     string    `json:"type" yaml:"type"`
	Size     uint64    `json:"size" yaml:"size"`
	Modified time.Time `json:"modified" yaml:"modified"`

	// Set when the entry is the root of another tree
	Subvolume bool `json:"subvolume,omitempty" yaml:"subvolume,omitempty"`

	// Set when the entry's inode could not be read
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
