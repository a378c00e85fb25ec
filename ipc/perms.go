package ipc

import "os"

func chmodSocket(path string, mode os.FileMode) error {
	return os.Chmod(path, mode)
}

func chownSocket(path string, gid int) error {
	return os.Chown(path, -1, gid)
}
