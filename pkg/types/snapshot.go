package types

// SnapshotKey identifies the exact inputs of a report: the file's stat
// tuple plus a tag that changes when the tool's behavior changes. A stored
// result is only surfaced while its key matches the live snapshot.
type SnapshotKey struct {
	Size    int64  `cbor:"1,keyasint"`
	MtimeNS int64  `cbor:"2,keyasint"`
	Mode    uint32 `cbor:"3,keyasint"`
	Ino     uint64 `cbor:"4,keyasint"`
	Dev     uint64 `cbor:"5,keyasint"`
	ToolTag string `cbor:"6,keyasint"`
}

// FileSnapshot is the observed state of one file. Path is codebase-relative
// with forward-slash separators on every host, so a cache survives renaming
// the codebase root. Digest is the blake3 content digest; it is filled in
// lazily because many tools are routed by extension alone.
type FileSnapshot struct {
	Path    string `cbor:"1,keyasint"`
	Size    int64  `cbor:"2,keyasint"`
	MtimeNS int64  `cbor:"3,keyasint"`
	Mode    uint32 `cbor:"4,keyasint"`
	Ino     uint64 `cbor:"5,keyasint"`
	Dev     uint64 `cbor:"6,keyasint"`
	Digest  string `cbor:"7,keyasint,omitempty"`
}

// Same reports whether two snapshots of the same path are equivalent.
// Equivalence compares the full stat tuple, not just the modification
// time, so permission and ownership changes also invalidate reports.
func (s FileSnapshot) Same(o FileSnapshot) bool {
	return s.Size == o.Size && s.MtimeNS == o.MtimeNS && s.Mode == o.Mode &&
		s.Ino == o.Ino && s.Dev == o.Dev
}

// Key builds the snapshot key for a run of the tool identified by toolTag.
func (s FileSnapshot) Key(toolTag string) SnapshotKey {
	return SnapshotKey{
		Size:    s.Size,
		MtimeNS: s.MtimeNS,
		Mode:    s.Mode,
		Ino:     s.Ino,
		Dev:     s.Dev,
		ToolTag: toolTag,
	}
}
