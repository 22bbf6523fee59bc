package uploads

import (
	"fmt"
	"path"
	"strings"
)

// resolveName returns filename unchanged when it does not collide with the
// user's existing artifact names, otherwise the first free "(n)" variant
// with the suffix inserted before the extension.
func resolveName(filename string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		taken[name] = struct{}{}
	}

	if _, ok := taken[filename]; !ok {
		return filename
	}

	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", base, n, ext)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
