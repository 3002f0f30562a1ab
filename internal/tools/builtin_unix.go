package tools

import (
	"os"
	"syscall"
)

type statIDs struct {
	uid uint32
	gid uint32
}

// sysStat extracts uid/gid from the platform stat payload.
func sysStat(info os.FileInfo) (statIDs, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return statIDs{}, false
	}
	return statIDs{uid: st.Uid, gid: st.Gid}, true
}
