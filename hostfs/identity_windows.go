//go:build windows
// +build windows

package hostfs

import "strconv"

// Windows has no POSIX uid/gid, device major/minor, or inode/nlink
// concept exposed through os.FileInfo.Sys(); every Identity method is
// a no-op returning zero values, matching tarpatch's sysStat for
// windows.

// Owner implements Identity.
func (o *OS) Owner(info Info) (uid, gid int) { return 0, 0 }

// UserName implements Identity.
func (o *OS) UserName(uid int) string { return strconv.Itoa(uid) }

// GroupName implements Identity.
func (o *OS) GroupName(gid int) string { return strconv.Itoa(gid) }

// DeviceNumbers implements Identity.
func (o *OS) DeviceNumbers(info Info) (major, minor int64) { return 0, 0 }

// InodeIdentity implements Identity.
func (o *OS) InodeIdentity(info Info) (InodeKey, uint64) { return InodeKey{}, 0 }
