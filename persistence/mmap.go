package persistence

import (
	"github.com/hupe1980/tagseek/internal/mmap"
)

// MapFile maps filename read-only and advises the kernel that access
// will be sequential. The caller owns the mapping and must keep it
// open for as long as any slice decoded from it is in use.
func MapFile(filename string) (*mmap.Mapping, error) {
	m, err := mmap.Open(filename)
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.AccessSequential)
	return m, nil
}
