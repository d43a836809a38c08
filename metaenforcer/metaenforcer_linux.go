package metaenforcer

import (
	"io/fs"
	"syscall"
)

type ownership struct {
	uid int
	gid int
}

func statOwnership(fi fs.FileInfo) (ownership, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return ownership{}, false
	}
	return ownership{uid: int(st.Uid), gid: int(st.Gid)}, true
}
