//go:build !windows
// +build !windows

package hostfs

import (
	"os/user"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// Owner implements Identity.
func (o *OS) Owner(info Info) (uid, gid int) {
	s, ok := info.sys.(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return int(s.Uid), int(s.Gid)
}

// UserName implements Identity.
func (o *OS) UserName(uid int) string {
	o.names.mu.Lock()
	defer o.names.mu.Unlock()
	if o.names.users == nil {
		o.names.users = make(map[int]string)
	}
	if name, ok := o.names.users[uid]; ok {
		return name
	}
	name := strconv.Itoa(uid)
	if u, err := user.LookupId(strconv.Itoa(uid)); err == nil {
		name = u.Username
	}
	o.names.users[uid] = name
	return name
}

// GroupName implements Identity.
func (o *OS) GroupName(gid int) string {
	o.names.mu.Lock()
	defer o.names.mu.Unlock()
	if o.names.groups == nil {
		o.names.groups = make(map[int]string)
	}
	if name, ok := o.names.groups[gid]; ok {
		return name
	}
	name := strconv.Itoa(gid)
	if g, err := user.LookupGroupId(strconv.Itoa(gid)); err == nil {
		name = g.Name
	}
	o.names.groups[gid] = name
	return name
}

// DeviceNumbers implements Identity.
func (o *OS) DeviceNumbers(info Info) (major, minor int64) {
	s, ok := info.sys.(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	if info.Kind != CharDevice && info.Kind != BlockDevice {
		return 0, 0
	}
	return int64(unix.Major(uint64(s.Rdev))), int64(unix.Minor(uint64(s.Rdev))) //nolint: unconvert
}

// InodeIdentity implements Identity.
func (o *OS) InodeIdentity(info Info) (InodeKey, uint64) {
	s, ok := info.sys.(*syscall.Stat_t)
	if !ok {
		return InodeKey{}, 0
	}
	return InodeKey{Device: uint64(s.Dev), Inode: s.Ino}, uint64(s.Nlink) //nolint: unconvert
}
