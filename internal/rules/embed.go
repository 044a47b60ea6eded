package rules

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed data
var embedded embed.FS

// Data returns the built-in rule files.
func Data() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

var defaultRepo = sync.OnceValues(func() (*Repository, error) {
	return Load(Data())
})

// Default returns the repository built from the embedded rule files.
func Default() (*Repository, error) { return defaultRepo() }
